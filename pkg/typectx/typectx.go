// Package typectx describes the read-only external context the
// borrow-checking pass consumes: type lookup, field/variant
// inspection, argument-mode resolution, the definition map, the
// region-parent map, and the diagnostic sink. Everything here is
// produced by passes this module treats as external (parsing, name
// resolution, type inference, trait resolution); the borrow checker
// never mutates it.
package typectx

import (
	"github.com/arborlang/borrowck/pkg/diag"
	"github.com/arborlang/borrowck/pkg/ir"
)

// DefKind classifies what a path or upvar expression resolves to.
type DefKind uint8

const (
	DefItem DefKind = iota // function, module, const, type, variant, class name, region, foreign module, import, type param
	DefSelf
	DefLocal
	DefPatBinding
	DefArg
	DefUpvar
)

// Definition is what cat_def dispatches on.
type Definition struct {
	Kind DefKind

	// DefLocal, DefPatBinding, DefArg: the binding slot.
	Binding ir.BindingID

	// DefArg: the resolved calling mode for this argument.
	ArgMode ir.ArgMode

	// DefLocal: the local's declared mutability.
	LocalMutbl ir.Mutability

	// DefUpvar: the captured binding's own definition (recategorized
	// recursively per ), and the enclosing closure's proto.
	UpvarCaptured *Definition
	UpvarProto    ir.ClosureProto
}

// FieldDecl describes one record/class field as declared.
type FieldDecl struct {
	Name  string
	Type  ir.TypeID
	Mutbl ir.Mutability
}

// VariantDecl describes one enum variant's payload shape.
type VariantDecl struct {
	Name       string
	ElemTypes  []ir.TypeID
	FieldNames []string // non-empty for record-like variants
}

// Context is the external, read-only surface the pass depends on. A
// real compiler backs this with its type checker's tables; tests back
// it with pkg/fixture's in-memory implementation.
type Context interface {
	// TypeOf returns the static type of an expression.
	TypeOf(id ir.ExprID) ir.TypeID

	// IsMethodCall reports whether the expression resolves to a method
	// call: always categorizes to Special(Method).
	IsMethodCall(id ir.ExprID) bool

	// Dereferenceable reports whether a type can be explicitly/implicitly
	// dereferenced, and if so, which pointer kind it exposes.
	Dereferenceable(t ir.TypeID) (ir.PointerKind, bool)

	// ImplicitlyDereferenceable reports whether autoderef should keep
	// stepping through this type (field-access autoderef, ).
	ImplicitlyDereferenceable(t ir.TypeID) bool

	// Indexable reports whether a type supports e[_] and, if so, the
	// element type and whether its storage is pointer-backed (required
	// by index rule: index only applies to pointer-backed
	// aggregates, never directly to a Comp).
	Indexable(t ir.TypeID) (elem ir.TypeID, pointerBacked bool, ok bool)

	// Fields lists a record/class type's declared fields.
	Fields(t ir.TypeID) ([]FieldDecl, bool)

	// Variant looks up one enum variant's payload shape by name.
	Variant(t ir.TypeID, name string) (VariantDecl, bool)

	// IsEnum reports whether a type is an enum (variant component kind)
	// as opposed to a plain record/resource.
	IsEnum(t ir.TypeID) bool

	// IsResource reports whether a type is a resource (linear handle)
	// type, which projects via Component{Tag: CompResource}.
	IsResource(t ir.TypeID) bool

	// DefOf resolves a path expression's definition.
	DefOf(id ir.ExprID) (Definition, bool)

	// RegionParent returns the enclosing scope of s, and false for the
	// root (function-top) scope.
	RegionParent(s ir.ScopeID) (ir.ScopeID, bool)

	// FuncKindOf reports whether the enclosing function of an
	// expression is a constructor (in-constructor flag and
	// the self.field exception, S6).
	FuncKindOf(fn *ir.Function) ir.FuncKind

	// Sink returns the diagnostic sink diagnostics are written to.
	Sink() diag.Sink
}
