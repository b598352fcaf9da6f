package loan

import "github.com/arborlang/borrowck/pkg/ir"

// RootMap is the gc-root output map: every GC-pointer deref
// that preserve() discharged by rooting rather than by failing
// err_preserve_gc, keyed by the expression it was found at. Insert
// enforces the same invariant preserve() checks before calling it: a
// root is only ever recorded against a bounded (non-NoScopeID) scope,
// since an unbounded root is exactly the err_preserve_gc case.
type RootMap map[ir.ExprID]ir.ScopeID

// NewRootMap builds an empty root map.
func NewRootMap() RootMap {
	return make(RootMap)
}

// Insert records that expr must be GC-rooted for the duration of scope.
func (m RootMap) Insert(expr ir.ExprID, scope ir.ScopeID) {
	if scope == ir.NoScopeID {
		panic("loan: RootMap.Insert called with an unbounded scope")
	}
	m[expr] = scope
}

// MutblMap is the written-bindings output map: the set of
// binding ids the driver's check_assignment confirmed were legally
// written at least once. It is a set, not a count: only asks
// whether a binding was ever the target of a legal write.
type MutblMap map[ir.BindingID]struct{}

// NewMutblMap builds an empty written-bindings set.
func NewMutblMap() MutblMap {
	return make(MutblMap)
}

// Add records that binding was legally written.
func (m MutblMap) Add(binding ir.BindingID) {
	m[binding] = struct{}{}
}

// Contains reports whether binding was ever recorded as written.
func (m MutblMap) Contains(binding ir.BindingID) bool {
	_, ok := m[binding]
	return ok
}
