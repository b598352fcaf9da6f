package check_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborlang/borrowck/pkg/check"
	"github.com/arborlang/borrowck/pkg/cmt"
	"github.com/arborlang/borrowck/pkg/diag"
	"github.com/arborlang/borrowck/pkg/fixture"
	"github.com/arborlang/borrowck/pkg/ir"
	"github.com/arborlang/borrowck/pkg/loan"
	"github.com/arborlang/borrowck/pkg/typectx"
)

const typeInt ir.TypeID = 1

func newPass(ctx *fixture.MemContext) *check.Pass {
	cat := cmt.New(ctx, true)
	return check.NewPass(ctx, cat, loan.NewMap(), loan.NewRootMap(), loan.NewMutblMap(), 2)
}

// A plain mutable local can be assigned to freely.
func TestCheckAssignToMutableLocalSucceeds(t *testing.T) {
	rec := &diag.Recorder{}
	ctx := fixture.NewMemContext(rec)
	b := fixture.NewBuilder()

	target := b.LocalRef(typeInt)
	ctx.WithDef(target.ID, typectx.Definition{Kind: typectx.DefLocal, Binding: 1, LocalMutbl: ir.Mut})
	value := b.Lit(typeInt)

	body := b.Assign(target, value)
	fn := &ir.Function{Name: "f1", Body: body, Scope: 100}

	p := newPass(ctx)
	ok := p.CheckFunction(fn)
	require.True(t, ok)
	assert.Empty(t, rec.Diagnostics)
	assert.True(t, p.Mutbl.Contains(1))
}

// S1: assigning to an immutable local variable is rejected outright,
// before the loan-conflict check even runs.
func TestCheckAssignToImmutableLocalFails(t *testing.T) {
	rec := &diag.Recorder{}
	ctx := fixture.NewMemContext(rec)
	b := fixture.NewBuilder()

	target := b.LocalRef(typeInt)
	ctx.WithDef(target.ID, typectx.Definition{Kind: typectx.DefLocal, Binding: 1, LocalMutbl: ir.Imm})
	value := b.Lit(typeInt)

	body := b.Assign(target, value)
	fn := &ir.Function{Name: "f1", Body: body, Scope: 100}

	p := newPass(ctx)
	p.CheckFunction(fn)

	require.Len(t, rec.Diagnostics, 1)
	assert.Equal(t, "assigning to immutable local variable", rec.Diagnostics[0].Message)
	assert.False(t, p.Mutbl.Contains(1))
}

// S2: assigning to an rvalue is never legal.
func TestCheckAssignToRvalueFails(t *testing.T) {
	rec := &diag.Recorder{}
	ctx := fixture.NewMemContext(rec)
	b := fixture.NewBuilder()

	target := b.Lit(typeInt)
	value := b.Lit(typeInt)
	body := b.Assign(target, value)
	fn := &ir.Function{Name: "f2", Body: body, Scope: 100}

	p := newPass(ctx)
	p.CheckFunction(fn)

	require.Len(t, rec.Diagnostics, 1)
	assert.Contains(t, rec.Diagnostics[0].Message, "assigning to")
}

// S3: a mutable write while an immutable borrow is outstanding on the
// same path is rejected as a loan conflict.
func TestCheckAssignConflictsWithOutstandingLoan(t *testing.T) {
	rec := &diag.Recorder{}
	ctx := fixture.NewMemContext(rec)
	b := fixture.NewBuilder()

	local := b.LocalRef(typeInt)
	ctx.WithDef(local.ID, typectx.Definition{Kind: typectx.DefLocal, Binding: 1, LocalMutbl: ir.Mut})

	borrow := b.AddrOf(local, ir.Imm, 100)
	assign := b.Assign(local, b.Lit(typeInt))
	body := b.Block(borrow, assign)
	fn := &ir.Function{Name: "f3", Body: body, Scope: 100}

	p := newPass(ctx)
	p.CheckFunction(fn)

	require.Len(t, rec.Diagnostics, 1)
	assert.Contains(t, rec.Diagnostics[0].Message, "outstanding loan")
}

// S4: moving out of a path with an outstanding borrow is rejected.
func TestCheckMoveOutOfBorrowedFails(t *testing.T) {
	rec := &diag.Recorder{}
	ctx := fixture.NewMemContext(rec)
	b := fixture.NewBuilder()

	local := b.LocalRef(typeInt)
	ctx.WithDef(local.ID, typectx.Definition{Kind: typectx.DefLocal, Binding: 1, LocalMutbl: ir.Mut})

	borrow := b.AddrOf(local, ir.Const, 100)
	dest := b.LocalRef(typeInt)
	ctx.WithDef(dest.ID, typectx.Definition{Kind: typectx.DefLocal, Binding: 2, LocalMutbl: ir.Mut})
	move := b.Move(dest, local)
	body := b.Block(borrow, move)
	fn := &ir.Function{Name: "f4", Body: body, Scope: 100}

	p := newPass(ctx)
	p.CheckFunction(fn)

	found := false
	for _, d := range rec.Diagnostics {
		if d.Message == "moving out of mutable local variable prohibited due to outstanding loan" {
			found = true
		}
	}
	assert.True(t, found, "expected a move-of-borrowed diagnostic, got %v", rec.Diagnostics)
}

// S5: msg_level 0 disables gather, so no loans are ever outstanding and
// a would-be conflicting assignment goes unreported by the conflict
// check (only legality of the target itself is still enforced).
func TestCheckMsgLevelZeroDisablesGather(t *testing.T) {
	rec := &diag.Recorder{}
	ctx := fixture.NewMemContext(rec)
	b := fixture.NewBuilder()

	local := b.LocalRef(typeInt)
	ctx.WithDef(local.ID, typectx.Definition{Kind: typectx.DefLocal, Binding: 1, LocalMutbl: ir.Mut})

	borrow := b.AddrOf(local, ir.Imm, 100)
	assign := b.Assign(local, b.Lit(typeInt))
	body := b.Block(borrow, assign)
	fn := &ir.Function{Name: "f5", Body: body, Scope: 100}

	cat := cmt.New(ctx, true)
	p := check.NewPass(ctx, cat, loan.NewMap(), loan.NewRootMap(), loan.NewMutblMap(), 0)
	p.CheckFunction(fn)

	assert.Empty(t, rec.Diagnostics)
}

// S6: inside a constructor, assigning to self.field is legal even
// though self has no loan path.
func TestCheckSelfFieldExceptionInConstructor(t *testing.T) {
	rec := &diag.Recorder{}
	ctx := fixture.NewMemContext(rec)
	b := fixture.NewBuilder()

	selfExpr := b.LocalRef(typeInt)
	ctx.WithDef(selfExpr.ID, typectx.Definition{Kind: typectx.DefSelf})
	ctx.WithFields(typeInt, []typectx.FieldDecl{{Name: "count", Type: typeInt, Mutbl: ir.Mut}})

	field := b.FieldOf(selfExpr, "count", typeInt)
	body := b.Assign(field, b.Lit(typeInt))

	fn := &ir.Function{Name: "new", Kind: ir.FuncConstructor, Body: body, Scope: 100}
	ctx.WithConstructor(fn)

	p := newPass(ctx)
	p.CheckFunction(fn)

	assert.Empty(t, rec.Diagnostics)
}

const (
	typeVec ir.TypeID = 2
	typePtr ir.TypeID = 3
)

// An auto-borrow of a pointer-backed, indexable expression (e.g. a vec)
// must loan its indexed element storage, not just the vec value: one of
// the granted loans is on a Comp(Index) projection over an explicit
// deref, alongside the loans on the paths beneath it.
func TestGatherAutoBorrowOfIndexableUsesElementPath(t *testing.T) {
	rec := &diag.Recorder{}
	ctx := fixture.NewMemContext(rec)
	b := fixture.NewBuilder()

	vecLocal := b.LocalRef(typeVec)
	ctx.WithDef(vecLocal.ID, typectx.Definition{Kind: typectx.DefLocal, Binding: 1, LocalMutbl: ir.Mut})
	ctx.WithIndexable(typeVec, typeInt, true)
	ctx.WithDeref(typeVec, ir.Uniq)

	vecLocal.AutoBorrow = &ir.AutoBorrow{Scope: 100}
	fn := &ir.Function{Name: "f", Body: vecLocal, Scope: 100}

	p := newPass(ctx)
	ok := p.CheckFunction(fn)
	require.True(t, ok)
	assert.Empty(t, rec.Diagnostics)

	// loan() recurses down the whole path (local -> deref -> comp/index),
	// granting one loan per level.
	ids := p.Loans.NewAt(100)
	require.Len(t, ids, 3)
	found := false
	for _, id := range ids {
		got := p.Loans.Get(id)
		if got.Path != nil && got.Path.Tag == cmt.LPComp && got.Path.Component.Tag == ir.CompIndex {
			found = true
		}
	}
	assert.True(t, found, "expected a loan on the Comp(Index) path")
}

// An auto-borrow of a uniq-pointer-typed expression (not indexable) must
// loan one deref layer past the pointer value: one of the granted loans
// is on the Deref path, alongside the loan on the pointer itself.
func TestGatherAutoBorrowOfUniqPointerUsesDerefPath(t *testing.T) {
	rec := &diag.Recorder{}
	ctx := fixture.NewMemContext(rec)
	b := fixture.NewBuilder()

	boxLocal := b.LocalRef(typePtr)
	ctx.WithDef(boxLocal.ID, typectx.Definition{Kind: typectx.DefLocal, Binding: 1, LocalMutbl: ir.Mut})
	ctx.WithDeref(typePtr, ir.Uniq)

	boxLocal.AutoBorrow = &ir.AutoBorrow{Scope: 100}
	fn := &ir.Function{Name: "f", Body: boxLocal, Scope: 100}

	p := newPass(ctx)
	ok := p.CheckFunction(fn)
	require.True(t, ok)
	assert.Empty(t, rec.Diagnostics)

	// loan() recurses down the path (local -> deref), granting one loan
	// per level.
	ids := p.Loans.NewAt(100)
	require.Len(t, ids, 2)
	found := false
	for _, id := range ids {
		got := p.Loans.Get(id)
		if got.Path != nil && got.Path.Tag == cmt.LPDeref {
			found = true
		}
	}
	assert.True(t, found, "expected a loan on the Deref path")
}
