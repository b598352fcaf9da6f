// Package cmt implements the categorizer (C1): mapping an expression to
// a categorization record describing where its result lives, what kind
// of memory that is, and its mutability — plus the loan-path grammar
// identifying which categorizations name stable stack-interior
// addresses.
package cmt

import (
	"fmt"

	"github.com/arborlang/borrowck/pkg/ir"
	"github.com/arborlang/borrowck/pkg/span"
)

// Tag is the closed categorization tagged union: what kind of memory an
// expression's result lives in.
type Tag uint8

const (
	TagRvalue Tag = iota
	TagMethod
	TagStaticItem
	TagSelfRef
	TagHeapUpvar
	TagLocal
	TagArg
	TagStackUpvar
	TagDeref
	TagComp
)

func (t Tag) String() string {
	switch t {
	case TagRvalue:
		return "rvalue"
	case TagMethod:
		return "method"
	case TagStaticItem:
		return "static-item"
	case TagSelfRef:
		return "self"
	case TagHeapUpvar:
		return "upvar"
	case TagLocal:
		return "local"
	case TagArg:
		return "arg"
	case TagStackUpvar:
		return "upvar"
	case TagDeref:
		return "deref"
	case TagComp:
		return "comp"
	default:
		return "unknown"
	}
}

// Category is the tagged union describing an expression's memory
// story. Only the fields relevant to Tag are populated.
type Category struct {
	Tag Tag

	Binding ir.BindingID // TagLocal, TagArg

	Child *Cmt // TagStackUpvar, TagDeref, TagComp

	PtrKind ir.PointerKind // TagDeref

	Component ir.Component // TagComp
}

// LPTag is the loan-path grammar's own tag:
// lp ::= Local(id) | Arg(id) | Deref(lp, ptrKind) | Comp(lp, compKind)
type LPTag uint8

const (
	LPLocal LPTag = iota
	LPArg
	LPDeref
	LPComp
)

// LoanPath is present on a Cmt iff the record names a stack-interior
// stable address.
type LoanPath struct {
	Tag       LPTag
	Binding   ir.BindingID // LPLocal, LPArg
	Base      *LoanPath    // LPDeref, LPComp
	PtrKind   ir.PointerKind
	Component ir.Component
}

// Key is a canonical, comparable identity for a loan path, used as a
// map key everywhere loans are indexed by path (the loaner and the
// driver's conflict check). Structurally equal paths always produce
// equal keys, the way a symbol-table's place-interning does for a
// projection chain.
type Key string

// Key renders the canonical key for a loan path. A nil path (no loan
// path) has the empty key, which is never produced by Local/Arg roots.
func (lp *LoanPath) Key() Key {
	if lp == nil {
		return ""
	}
	switch lp.Tag {
	case LPLocal:
		return Key(fmt.Sprintf("local#%d", lp.Binding))
	case LPArg:
		return Key(fmt.Sprintf("arg#%d", lp.Binding))
	case LPDeref:
		return lp.Base.Key() + Key(fmt.Sprintf(".deref(%s)", lp.PtrKind))
	case LPComp:
		return lp.Base.Key() + Key(".") + Key(lp.Component.String())
	default:
		return ""
	}
}

// Cmt is the categorization record attached to every expression.
type Cmt struct {
	ID       ir.ExprID
	Span     span.Span
	Category Category
	Type     ir.TypeID
	Mutbl    ir.Mutability
	LoanPath *LoanPath
}

// DescriptionKey maps a Cmt's category to the diag package's cmt
// description-form keys, used to build user-facing messages.
func (c *Cmt) DescriptionKey() string {
	switch c.Category.Tag {
	case TagMethod:
		return "method"
	case TagStaticItem:
		return "static-item"
	case TagSelfRef:
		return "self"
	case TagHeapUpvar, TagStackUpvar:
		return "upvar"
	case TagRvalue:
		return "rvalue"
	case TagLocal:
		return "local"
	case TagArg:
		return "arg"
	case TagDeref:
		return "deref"
	case TagComp:
		switch c.Category.Component.Tag {
		case ir.CompField:
			return "field"
		case ir.CompTuple:
			return "tuple"
		case ir.CompResource:
			return "resource"
		case ir.CompVariant:
			return "variant"
		case ir.CompIndex:
			return "indexed"
		}
	}
	return "rvalue"
}

// IsHeapUpvarMutationForbidden names the restriction carried over from
// the original implementation's FIXME: mutating a
// value reached only through a heap-escaping closure's upvar is always
// rejected, because the pass has no stable path to the captured storage
// to loan or preserve against.
func (c *Cmt) IsHeapUpvarMutationForbidden() bool {
	return c.Category.Tag == TagHeapUpvar
}
