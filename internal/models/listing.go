package models

// EndpointScope identifies which listing entry point a request came through.
type EndpointScope string

// Listing entry points.
const (
	ScopeCourse  EndpointScope = "course"
	ScopeSection EndpointScope = "section"
	ScopeUser    EndpointScope = "user"
)

// ListingRequest captures the requested filters and endpoint context for one
// enrollment listing call. It is never persisted.
type ListingRequest struct {
	Scope     EndpointScope
	CourseID  string
	SectionID string
	UserID    string

	Types  []string
	Roles  []string
	States []string

	Page     int
	PageSize int
}
