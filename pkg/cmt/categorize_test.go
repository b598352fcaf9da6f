package cmt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborlang/borrowck/pkg/cmt"
	"github.com/arborlang/borrowck/pkg/diag"
	"github.com/arborlang/borrowck/pkg/fixture"
	"github.com/arborlang/borrowck/pkg/ir"
	"github.com/arborlang/borrowck/pkg/typectx"
)

const (
	typeInt    ir.TypeID = 1
	typePtr    ir.TypeID = 2
	typeRecord ir.TypeID = 3
)

func TestCategorizeLocalCarriesLoanPath(t *testing.T) {
	ctx := fixture.NewMemContext(&diag.Recorder{})
	b := fixture.NewBuilder()

	e := b.LocalRef(typeInt)
	ctx.WithDef(e.ID, typectx.Definition{Kind: typectx.DefLocal, Binding: 42, LocalMutbl: ir.Mut})

	cat := cmt.New(ctx, true)
	c, err := cat.CategorizeExpr(e)
	require.NoError(t, err)

	assert.Equal(t, ir.Mut, c.Mutbl)
	require.NotNil(t, c.LoanPath)
	assert.Equal(t, cmt.LPLocal, c.LoanPath.Tag)
	assert.Equal(t, ir.BindingID(42), c.LoanPath.Binding)
}

func TestCategorizeFieldInheritsBaseWhenDeclaredImm(t *testing.T) {
	ctx := fixture.NewMemContext(&diag.Recorder{})
	b := fixture.NewBuilder()

	base := b.LocalRef(typeRecord)
	ctx.WithDef(base.ID, typectx.Definition{Kind: typectx.DefLocal, Binding: 1, LocalMutbl: ir.Mut})
	ctx.WithFields(typeRecord, []typectx.FieldDecl{{Name: "x", Type: typeInt, Mutbl: ir.Imm}})

	field := b.FieldOf(base, "x", typeInt)

	cat := cmt.New(ctx, true)
	c, err := cat.CategorizeExpr(field)
	require.NoError(t, err)

	assert.Equal(t, ir.Mut, c.Mutbl, "an Imm-declared field of a Mut base is still Mut")
	require.NotNil(t, c.LoanPath)
	assert.Equal(t, cmt.LPComp, c.LoanPath.Tag)
}

func TestCategorizeArgByRefTreatConstAsImm(t *testing.T) {
	ctx := fixture.NewMemContext(&diag.Recorder{})
	b := fixture.NewBuilder()

	e := b.LocalRef(typeInt)
	ctx.WithDef(e.ID, typectx.Definition{Kind: typectx.DefArg, Binding: 2, ArgMode: ir.ByRef})

	withImm := cmt.New(ctx, true)
	c1, err := withImm.CategorizeExpr(e)
	require.NoError(t, err)
	assert.Equal(t, ir.Imm, c1.Mutbl)
	assert.NotNil(t, c1.LoanPath, "an Imm by-ref arg is a stable, loanable address")

	withConst := cmt.New(ctx, false)
	c2, err := withConst.CategorizeExpr(e)
	require.NoError(t, err)
	assert.Equal(t, ir.Const, c2.Mutbl)
	assert.Nil(t, c2.LoanPath, "a Const by-ref arg names no loan path")
}

func TestCategorizeDerefUniqPropagatesLoanPath(t *testing.T) {
	ctx := fixture.NewMemContext(&diag.Recorder{})
	b := fixture.NewBuilder()

	base := b.LocalRef(typePtr)
	ctx.WithDef(base.ID, typectx.Definition{Kind: typectx.DefLocal, Binding: 3, LocalMutbl: ir.Imm})
	ctx.WithDeref(typePtr, ir.Uniq)

	deref := b.DerefOf(base, typeInt)

	cat := cmt.New(ctx, true)
	c, err := cat.CategorizeExpr(deref)
	require.NoError(t, err)

	require.NotNil(t, c.LoanPath)
	assert.Equal(t, cmt.LPDeref, c.LoanPath.Tag)
}

func TestCategorizeDerefGcHasNoLoanPath(t *testing.T) {
	ctx := fixture.NewMemContext(&diag.Recorder{})
	b := fixture.NewBuilder()

	base := b.LocalRef(typePtr)
	ctx.WithDef(base.ID, typectx.Definition{Kind: typectx.DefLocal, Binding: 4, LocalMutbl: ir.Imm})
	ctx.WithDeref(typePtr, ir.Gc)

	deref := b.DerefOf(base, typeInt)

	cat := cmt.New(ctx, true)
	c, err := cat.CategorizeExpr(deref)
	require.NoError(t, err)
	assert.Nil(t, c.LoanPath)
}

func TestCategorizeHeapUpvarCollapsesToSpecial(t *testing.T) {
	ctx := fixture.NewMemContext(&diag.Recorder{})
	b := fixture.NewBuilder()

	e := b.LocalRef(typeInt)
	ctx.WithDef(e.ID, typectx.Definition{
		Kind:       typectx.DefUpvar,
		UpvarProto: ir.ProtoHeapBox,
	})

	cat := cmt.New(ctx, true)
	c, err := cat.CategorizeExpr(e)
	require.NoError(t, err)

	assert.Equal(t, cmt.TagHeapUpvar, c.Category.Tag)
	assert.True(t, c.IsHeapUpvarMutationForbidden())
}

func TestCategorizeStackUpvarForwardsCaptured(t *testing.T) {
	ctx := fixture.NewMemContext(&diag.Recorder{})
	b := fixture.NewBuilder()

	e := b.LocalRef(typeInt)
	ctx.WithDef(e.ID, typectx.Definition{
		Kind:       typectx.DefUpvar,
		UpvarProto: ir.ProtoStackAny,
		UpvarCaptured: &typectx.Definition{
			Kind: typectx.DefLocal, Binding: 5, LocalMutbl: ir.Imm,
		},
	})

	cat := cmt.New(ctx, true)
	c, err := cat.CategorizeExpr(e)
	require.NoError(t, err)

	assert.Equal(t, cmt.TagStackUpvar, c.Category.Tag)
	assert.False(t, c.IsHeapUpvarMutationForbidden())
	require.NotNil(t, c.LoanPath)
}

func TestCategorizeIndexRequiresPointerBacking(t *testing.T) {
	ctx := fixture.NewMemContext(&diag.Recorder{})
	b := fixture.NewBuilder()

	base := b.LocalRef(typePtr)
	ctx.WithDef(base.ID, typectx.Definition{Kind: typectx.DefLocal, Binding: 6, LocalMutbl: ir.Mut})
	ctx.WithIndexable(typePtr, typeInt, false)

	idx := b.IndexOf(base, typeInt)

	cat := cmt.New(ctx, true)
	_, err := cat.CategorizeExpr(idx)
	require.Error(t, err)
}
