package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-enroll-api/internal/models"
)

type roleReader interface {
	GetCourseRole(ctx context.Context, accountID, name string) (*models.CourseRole, error)
}

// ResolvedRole is the outcome of a successful role resolution: the canonical
// base type plus the custom role name when one applies.
type ResolvedRole struct {
	Type     models.EnrollmentType
	RoleName string
}

// RoleResolver maps a requested type/role pair onto a canonical enrollment
// type, validating custom roles against the governing account.
type RoleResolver struct {
	roles  roleReader
	logger *zap.Logger
}

// NewRoleResolver constructs a RoleResolver.
func NewRoleResolver(roles roleReader, logger *zap.Logger) *RoleResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleResolver{roles: roles, logger: logger}
}

// Resolve normalises the requested type and role name. All rejection reasons
// are accumulated; a non-nil error reports a repository failure only.
func (r *RoleResolver) Resolve(ctx context.Context, accountID, rawType, rawRole string) (ResolvedRole, []models.EnrollmentErrorKind, error) {
	// Callers sometimes pass a base type through the role argument; treat it
	// as the type and drop the role.
	if models.ValidEnrollmentType(rawRole) {
		rawType = rawRole
		rawRole = ""
	}

	var kinds []models.EnrollmentErrorKind

	if rawRole != "" {
		role, err := r.roles.GetCourseRole(ctx, accountID, rawRole)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			kinds = append(kinds, models.ErrKindBadRole)
		case err != nil:
			return ResolvedRole{}, nil, err
		case !role.Active():
			kinds = append(kinds, models.ErrKindInactiveRole)
		default:
			if rawType == "" {
				rawType = string(role.BaseRoleType)
			} else if rawType != string(role.BaseRoleType) {
				kinds = append(kinds, models.ErrKindBaseTypeMismatch)
			}
		}
	}

	if rawType == "" {
		rawType = string(models.EnrollmentTypeStudent)
	} else if !models.ValidEnrollmentType(rawType) {
		kinds = append(kinds, models.ErrKindBadType)
	}

	if len(kinds) > 0 {
		r.logger.Debug("role resolution rejected",
			zap.String("type", rawType),
			zap.String("role", rawRole),
			zap.Int("reasons", len(kinds)))
		return ResolvedRole{}, kinds, nil
	}

	return ResolvedRole{Type: models.EnrollmentType(rawType), RoleName: rawRole}, nil, nil
}
