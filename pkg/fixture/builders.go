package fixture

import (
	"github.com/arborlang/borrowck/pkg/ir"
	"github.com/arborlang/borrowck/pkg/span"
)

// Builder hands out sequential ExprIDs so hand-built test trees never
// collide, the way a real lowering pass's id allocator does.
type Builder struct {
	next ir.ExprID
}

// NewBuilder starts a fresh id allocator; ids begin at 1 since
// ir.NoExprID is 0.
func NewBuilder() *Builder {
	return &Builder{next: 1}
}

func (b *Builder) id() ir.ExprID {
	id := b.next
	b.next++
	return id
}

func sp(line int) span.Span {
	return span.Span{File: "fixture", StartLine: line, EndLine: line}
}

// Lit builds an rvalue literal expression of type t.
func (b *Builder) Lit(t ir.TypeID) *ir.Expr {
	id := b.id()
	return &ir.Expr{ID: id, Span: sp(int(id)), Kind: ir.ExprOther, Type: t}
}

// LocalRef builds a path expression naming a local binding; pair with
// MemContext.WithDef(id, typectx.Definition{Kind: DefLocal, ...}).
func (b *Builder) LocalRef(t ir.TypeID) *ir.Expr {
	id := b.id()
	return &ir.Expr{ID: id, Span: sp(int(id)), Kind: ir.ExprPath, Type: t}
}

// FieldOf builds a field-access expression over base.
func (b *Builder) FieldOf(base *ir.Expr, name string, t ir.TypeID) *ir.Expr {
	id := b.id()
	return &ir.Expr{ID: id, Span: sp(int(id)), Kind: ir.ExprField, Type: t, Base: base, Field: name}
}

// DerefOf builds an explicit dereference of base.
func (b *Builder) DerefOf(base *ir.Expr, t ir.TypeID) *ir.Expr {
	id := b.id()
	return &ir.Expr{ID: id, Span: sp(int(id)), Kind: ir.ExprDeref, Type: t, Base: base}
}

// IndexOf builds an index expression over base.
func (b *Builder) IndexOf(base *ir.Expr, t ir.TypeID) *ir.Expr {
	id := b.id()
	return &ir.Expr{ID: id, Span: sp(int(id)), Kind: ir.ExprIndex, Type: t, Base: base}
}

// Assign builds `target = value`.
func (b *Builder) Assign(target, value *ir.Expr) *ir.Expr {
	id := b.id()
	return &ir.Expr{ID: id, Span: sp(int(id)), Kind: ir.ExprAssign, Base: target, Value: value}
}

// AddrOf builds `&mutbl target` bound to region.
func (b *Builder) AddrOf(target *ir.Expr, mutbl ir.Mutability, region ir.ScopeID) *ir.Expr {
	id := b.id()
	return &ir.Expr{ID: id, Span: sp(int(id)), Kind: ir.ExprAddrOf, Base: target, Mutbl: mutbl, Region: region}
}

// Call builds a call to callee with the given resolved-mode arguments,
// under its own temporary scope.
func (b *Builder) Call(callee *ir.Expr, scope ir.ScopeID, args ...ir.Arg) *ir.Expr {
	id := b.id()
	return &ir.Expr{ID: id, Span: sp(int(id)), Kind: ir.ExprCall, Callee: callee, Args: args, Scope: scope}
}

// Block builds a straight-line sequence whose value is its last
// statement.
func (b *Builder) Block(stmts ...*ir.Expr) *ir.Expr {
	id := b.id()
	return &ir.Expr{ID: id, Span: sp(int(id)), Kind: ir.ExprBlock, Stmts: stmts}
}

// Move builds `move target <- value`.
func (b *Builder) Move(target, value *ir.Expr) *ir.Expr {
	id := b.id()
	return &ir.Expr{ID: id, Span: sp(int(id)), Kind: ir.ExprMove, Base: target, Value: value}
}

// Swap builds `swap(a, b)`.
func (b *Builder) Swap(a, rhs *ir.Expr) *ir.Expr {
	id := b.id()
	return &ir.Expr{ID: id, Span: sp(int(id)), Kind: ir.ExprSwap, Base: a, Rhs: rhs}
}

// NextID returns the id the next builder call will allocate, useful for
// registering a MemContext definition before the expression exists.
func (b *Builder) NextID() ir.ExprID { return b.next }
