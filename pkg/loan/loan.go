// Package loan implements the preserver/loaner (C2, ) and the
// per-region loan map the gather/check driver (C3) reads and
// writes. A loan is a promise that a stack-interior address named by a
// loan path will remain at least as strong as a given mutability for a
// named scope; the per-region map groups loans additively by the scope
// that grants them.
package loan

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/arborlang/borrowck/pkg/cmt"
	"github.com/arborlang/borrowck/pkg/ir"
)

// ID identifies one loan within a Map.
type ID uint32

// Loan is the (lp, cmt, mutbl) triple from , plus the scope it
// was granted in.
type Loan struct {
	ID    ID
	Path  *cmt.LoanPath
	Cmt   *cmt.Cmt
	Mutbl ir.Mutability
	Scope ir.ScopeID
}

// Map is the per-region loan map: every loan ever granted, indexed both
// by the scope that granted it (NewAt) and, within each scope, by
// loan-path key (OnPathAt, which check_assignment / check_move_out's
// ancestor walk uses).
//
// Membership per scope is also backed by a bitset keyed on ID
// (HasDirect), the way a dataflow pass indexes live facts by dense id
// rather than rescanning a slice on every query; byScope keeps the same
// ids in insertion order for NewAt.
type Map struct {
	loans    []Loan // index 0 unused, ids start at 1
	byScope  map[ir.ScopeID][]ID
	bits     map[ir.ScopeID]*bitset.BitSet
	byPathIx map[ir.ScopeID]map[cmt.Key][]ID
}

// NewMap builds an empty per-region loan map.
func NewMap() *Map {
	return &Map{
		loans:    make([]Loan, 1),
		byScope:  make(map[ir.ScopeID][]ID),
		bits:     make(map[ir.ScopeID]*bitset.BitSet),
		byPathIx: make(map[ir.ScopeID]map[cmt.Key][]ID),
	}
}

// Add grants a new loan in scope and returns its id. Loans are additive
// per scope: Add never removes or replaces an existing loan.
func (m *Map) Add(scope ir.ScopeID, path *cmt.LoanPath, c *cmt.Cmt, mutbl ir.Mutability) ID {
	id := ID(len(m.loans))
	m.loans = append(m.loans, Loan{ID: id, Path: path, Cmt: c, Mutbl: mutbl, Scope: scope})

	m.byScope[scope] = append(m.byScope[scope], id)

	bs, ok := m.bits[scope]
	if !ok {
		bs = bitset.New(64)
		m.bits[scope] = bs
	}
	bs.Set(uint(id))

	byPath, ok := m.byPathIx[scope]
	if !ok {
		byPath = make(map[cmt.Key][]ID)
		m.byPathIx[scope] = byPath
	}
	key := path.Key()
	byPath[key] = append(byPath[key], id)

	return id
}

// Get returns the loan for id.
func (m *Map) Get(id ID) Loan {
	return m.loans[id]
}

// NewAt returns the ids of loans granted directly in scope (not
// inherited from an ancestor).
func (m *Map) NewAt(scope ir.ScopeID) []ID {
	return m.byScope[scope]
}

// HasDirect reports whether id was granted directly in scope, using the
// bitset index rather than scanning NewAt.
func (m *Map) HasDirect(scope ir.ScopeID, id ID) bool {
	bs, ok := m.bits[scope]
	if !ok {
		return false
	}
	return bs.Test(uint(id))
}

// OnPathAt returns the loans granted directly in scope whose loan path
// has the given canonical key.
func (m *Map) OnPathAt(scope ir.ScopeID, key cmt.Key) []Loan {
	ids := m.byPathIx[scope][key]
	if len(ids) == 0 {
		return nil
	}
	out := make([]Loan, len(ids))
	for i, id := range ids {
		out[i] = m.loans[id]
	}
	return out
}

// RegionParent is the minimal region-parent query the loan map needs
// to walk ancestor scopes; pkg/typectx.Context satisfies it directly.
type RegionParent interface {
	RegionParent(s ir.ScopeID) (ir.ScopeID, bool)
}

// AncestorLoansOnPath walks from scope up through the region-parent
// chain (inclusive of scope itself) collecting every loan whose path
// key matches, stopping at the root. Used by check_assignment /
// check_move_out's outstanding-loan search; the driver does not compare
// newly granted loans against older loans on the same path.
func AncestorLoansOnPath(rp RegionParent, m *Map, scope ir.ScopeID, key cmt.Key) []Loan {
	var out []Loan
	s := scope
	for {
		out = append(out, m.OnPathAt(s, key)...)
		parent, ok := rp.RegionParent(s)
		if !ok {
			break
		}
		s = parent
	}
	return out
}

// Compatible implements conflict-check compatibility table
// for an old loan coexisting with a new loan on the same path:
//
//	old \ new   Imm   Const   Mut
//	Imm         ok    ok      err
//	Const       ok    ok      ok
//	Mut         err   ok      ok
func Compatible(old, new ir.Mutability) bool {
	if old == ir.Const || new == ir.Const {
		return true
	}
	return old == new
}
