// Package query builds storage-independent filter specifications for
// enrollment listings. A Spec is a typed list of AND-combined predicates that
// the repository layer renders into SQL; composition rules stay testable
// without a live store.
package query

import "strings"

// Predicate is a single condition using '?' placeholders. Slice arguments are
// expanded by the executing adapter (sqlx.In).
type Predicate struct {
	Expr string
	Args []interface{}
}

// Spec is an ordered set of predicates plus an ordering clause.
type Spec struct {
	preds []Predicate
	order []string
}

// New returns an empty Spec.
func New() *Spec {
	return &Spec{}
}

// Where appends a predicate.
func (s *Spec) Where(expr string, args ...interface{}) *Spec {
	s.preds = append(s.preds, Predicate{Expr: expr, Args: args})
	return s
}

// Any appends the OR-combination of the given predicates as one predicate.
func (s *Spec) Any(preds ...Predicate) *Spec {
	if len(preds) == 0 {
		return s
	}
	if len(preds) == 1 {
		return s.Where(preds[0].Expr, preds[0].Args...)
	}
	exprs := make([]string, len(preds))
	var args []interface{}
	for i, p := range preds {
		exprs[i] = "(" + p.Expr + ")"
		args = append(args, p.Args...)
	}
	return s.Where("("+strings.Join(exprs, " OR ")+")", args...)
}

// OrderBy sets the ordering columns, replacing any previous ordering.
func (s *Spec) OrderBy(cols ...string) *Spec {
	s.order = cols
	return s
}

// Empty reports whether no predicates were added.
func (s *Spec) Empty() bool {
	return len(s.preds) == 0
}

// Predicates returns the accumulated predicates in insertion order.
func (s *Spec) Predicates() []Predicate {
	return s.preds
}

// Clause renders the predicates as a WHERE fragment (without the keyword) and
// the flattened argument list. An empty spec yields an empty string.
func (s *Spec) Clause() (string, []interface{}) {
	if len(s.preds) == 0 {
		return "", nil
	}
	exprs := make([]string, len(s.preds))
	var args []interface{}
	for i, p := range s.preds {
		exprs[i] = p.Expr
		args = append(args, p.Args...)
	}
	return strings.Join(exprs, " AND "), args
}

// Order renders the ORDER BY column list, empty when no ordering was set.
func (s *Spec) Order() string {
	return strings.Join(s.order, ", ")
}
