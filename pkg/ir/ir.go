// Package ir defines the typed mid-level intermediate representation the
// borrow-checking pass consumes: expression ids, the closed enums the
// categorizer and loaner dispatch on, and the expression/pattern trees
// themselves. Everything here is produced by earlier passes (parsing,
// name resolution, type inference, lowering) that are external to this
// module; ir only describes the shapes those passes hand us.
package ir

import "github.com/arborlang/borrowck/pkg/span"

// ExprID names one expression node. Ids are assigned by the lowering
// pass and are stable for the lifetime of a single pass invocation.
type ExprID uint32

// NoExprID marks the absence of an expression reference.
const NoExprID ExprID = 0

// ScopeID names a lexical region/scope. The region-parent map (supplied
// by typectx.Context) makes scopes a tree.
type ScopeID uint32

// NoScopeID marks an unbounded (no enclosing function scope) context,
// used when a GC'd value would need to be preserved past the end of the
// function — see diag.ErrPreserveGC.
const NoScopeID ScopeID = 0

// TypeID names a type as resolved by the (external) type checker.
type TypeID uint32

// BindingID names a local variable, argument, or pattern binding slot.
type BindingID uint32

// NoBindingID marks the absence of a binding reference.
const NoBindingID BindingID = 0

// Mutability is the three-valued lattice: Mut, Imm, Const.
type Mutability uint8

const (
	// Const means "observed but not necessarily stable": a Const
	// requirement is satisfied by every mutability, and Const itself
	// satisfies only a Const requirement.
	Const Mutability = iota
	Imm
	Mut
)

func (m Mutability) String() string {
	switch m {
	case Mut:
		return "mutable"
	case Imm:
		return "immutable"
	case Const:
		return "const"
	default:
		return "unknown"
	}
}

// Satisfies reports whether an actual mutability `m` meets a required
// mutability `req`: req is satisfied by m iff req == Const, or
// req == m and req != Const. Const never satisfies Imm or Mut, and
// Imm and Mut never satisfy each other (callers compare on the leaf
// value, there is no subtyping beyond this rule).
func (m Mutability) Satisfies(req Mutability) bool {
	if req == Const {
		return true
	}
	return req == m
}

// SupMutbl computes whether `act` is at least as strong as `req`,
// i.e. the supremum check used by preserve() before descending into an
// ancestor chain.
func SupMutbl(req, act Mutability) bool {
	return act.Satisfies(req)
}

// PointerKind distinguishes the four storage stories a dereference can
// cross.
type PointerKind uint8

const (
	Uniq PointerKind = iota
	Gc
	Region
	Unsafe
)

func (k PointerKind) String() string {
	switch k {
	case Uniq:
		return "unique"
	case Gc:
		return "gc"
	case Region:
		return "region"
	case Unsafe:
		return "unsafe"
	default:
		return "unknown-pointer"
	}
}

// ComponentTag enumerates the component-projection kinds reachable
// without a dereference.
type ComponentTag uint8

const (
	CompTuple ComponentTag = iota
	CompResource
	CompVariant
	CompField
	CompIndex
)

// Component names one interior projection step. Name holds the field
// name for CompField; gather_pat also sets it to the element position
// for CompTuple and CompVariant projections, which String leaves out.
// ElemType is set only for CompIndex.
type Component struct {
	Tag      ComponentTag
	Name     string
	ElemType TypeID
}

func (c Component) String() string {
	switch c.Tag {
	case CompField:
		return "field:" + c.Name
	case CompIndex:
		return "index"
	case CompVariant:
		return "variant"
	case CompResource:
		return "resource"
	default:
		return "tuple"
	}
}

// ArgMode is how a formal parameter binds its actual argument,
// resolved externally by the (pre-existing) calling-convention pass.
type ArgMode uint8

const (
	ByRef ArgMode = iota
	ByMutRef
	ByMove
	ByCopy
	ByVal
)

func (a ArgMode) String() string {
	switch a {
	case ByRef:
		return "by-ref"
	case ByMutRef:
		return "by-mutable-ref"
	case ByMove:
		return "by-move"
	case ByCopy:
		return "by-copy"
	case ByVal:
		return "by-value"
	default:
		return "unknown-mode"
	}
}

// ClosureProto tags a closure's calling convention: stack-valid closures
// ("any"/"block") forward the ownership story of their captures; the
// heap-escaping ones ("bare"/"unique"/"box") cannot.
type ClosureProto uint8

const (
	ProtoStackAny ClosureProto = iota
	ProtoStackBlock
	ProtoHeapBare
	ProtoHeapUnique
	ProtoHeapBox
)

// IsStackValid reports whether the closure's captures can be forwarded
// transparently (StackUpvar) rather than collapsing to a HeapUpvar.
func (p ClosureProto) IsStackValid() bool {
	return p == ProtoStackAny || p == ProtoStackBlock
}

// FuncKind distinguishes constructors (which get the self.field
// exception in check_assignment) from ordinary functions.
type FuncKind uint8

const (
	FuncOrdinary FuncKind = iota
	FuncConstructor
)

// ExprKind is the closed set of expression shapes the categorizer (C1)
// and the gather/check driver (C3) dispatch on. Everything not listed
// explicitly (control flow, casts, literals, aggregates, ...) is
// ExprOther and always categorizes to an Rvalue.
type ExprKind uint8

const (
	ExprOther ExprKind = iota
	ExprDeref
	ExprField
	ExprIndex
	ExprPath
	ExprAddrOf
	ExprCall
	ExprClosure
	ExprAssign
	ExprAssignOp
	ExprSwap
	ExprMove
	ExprCopy
	ExprMatch
	ExprBlock
)

// Capture describes one variable captured by a closure literal.
type Capture struct {
	Name    string
	Binding BindingID
	ByMove  bool
}

// Arg pairs a call argument expression with the resolved formal mode
// for the parameter it binds.
type Arg struct {
	Value *Expr
	Mode  ArgMode
}

// MatchArm is one (pattern, scope, body) triple of a match expression.
type MatchArm struct {
	Pattern *Pattern
	Scope   ScopeID
	Body    *Expr
}

// AutoBorrow records an auto-borrow inserted by a prior pass: the
// phase-1 gather walk must categorize a synthetic borrow target for the
// expression and guarantee it Const-valid for Scope.
type AutoBorrow struct {
	Scope ScopeID
}

// Expr is one node of the typed IR. Exactly one subset of the operand
// fields is meaningful, selected by Kind; this mirrors guidance
// to express the categorization/IR shapes as closed tagged variants
// dispatched by switch, not by subclassing.
type Expr struct {
	ID   ExprID
	Span span.Span
	Kind ExprKind
	Type TypeID

	// ExprDeref, ExprField, ExprIndex, ExprAddrOf: the base/operand.
	Base *Expr
	// ExprField: field name; resolved against typectx for mutability/type.
	Field string

	// ExprAssign, ExprAssignOp, ExprMove: Base is the assignment target
	// (dest). ExprSwap: Base is lhs, Rhs is the swapped-with operand.
	Rhs *Expr

	// ExprAssign/ExprAssignOp/ExprMove: source value (nil for pure
	// AssignOp where only the target matters to check_assignment).
	Value *Expr

	// ExprAddrOf: requested mutability and the borrow's target region.
	Mutbl  Mutability
	Region ScopeID

	// ExprCall: callee and resolved-mode arguments. Scope is the
	// call's own temporary scope, used for by-ref/by-mutable-ref loans.
	Callee *Expr
	Args   []Arg
	Scope  ScopeID

	// ExprClosure: captures and body. The closure's ClosureProto is not
	// stored here; typectx reports it on each upvar's Definition
	// (UpvarProto).
	Captures []Capture
	Body     *Expr

	// ExprMatch: discriminant plus arms.
	Arms []MatchArm

	// ExprBlock: straight-line sequence; Stmts[i] are evaluated in
	// order and the block's own value is the last one (or Rvalue unit).
	Stmts []*Expr

	// Non-nil when a prior pass inserted an implicit borrow around this
	// expression.
	AutoBorrow *AutoBorrow
}

// PatternKind is the closed set of pattern shapes gather_pat dispatches
// on.
type PatternKind uint8

const (
	PatWildcard PatternKind = iota
	PatLiteral
	PatBinding
	PatVariant
	PatRecord
	PatTuple
	PatBox
)

// PatternField pairs a record pattern field with its sub-pattern.
type PatternField struct {
	Name string
	Sub  *Pattern
}

// Pattern is one node of a match pattern tree.
type Pattern struct {
	Kind PatternKind
	Span span.Span

	// PatBinding: the bound name/id and optional `x @ p` inner pattern.
	Binding BindingID
	Inner   *Pattern

	// PatVariant: sub-patterns per payload slot, each typed individually.
	Elems []PatternElem

	// PatRecord: per-field sub-patterns.
	Fields []PatternField

	// PatBox: dereferenced inner pattern.
	Box *Pattern
}

// PatternElem is one positional sub-pattern (variant payload or tuple
// element) paired with its type.
type PatternElem struct {
	Sub  *Pattern
	Type TypeID
}

// Function is one function/method/constructor body in the program.
type Function struct {
	Name string
	Kind FuncKind
	Body *Expr

	// Scope is the function's root lexical scope: the region-parent walk
	// (typectx.Context.RegionParent) terminates here, and the gather/check
	// driver resets its per-function loan map at this scope for each
	// function in turn.
	Scope ScopeID
}

// Program is the whole unit the pass checks: one or more functions
// sharing a single typectx.Context.
type Program struct {
	Functions []*Function
}
