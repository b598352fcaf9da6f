package loan

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

func typectxDef(binding ir.BindingID, mutbl ir.Mutability) typectx.Definition {
	return typectx.Definition{Kind: typectx.DefLocal, Binding: binding, LocalMutbl: mutbl}
}

func TestGuaranteeValidLocalGrantsLoan(t *testing.T) {
	rec := &diag.Recorder{}
	ctx := fixture.NewMemContext(rec)
	b := fixture.NewBuilder()

	e := b.LocalRef(1)
	ctx.WithDef(e.ID, typectxDef(1, ir.Imm))

	c := categorize(t, ctx, e)

	m := NewMap()
	l := NewLoaner(ctx, m, NewRootMap())

	ok := l.GuaranteeValid(c, ir.Imm, 5)
	require.True(t, ok)
	assert.Empty(t, rec.Diagnostics)
	assert.Len(t, m.NewAt(5), 1)
}

func TestGuaranteeValidRvalueIsTriviallyStable(t *testing.T) {
	rec := &diag.Recorder{}
	ctx := fixture.NewMemContext(rec)
	b := fixture.NewBuilder()

	e := b.Lit(1)
	c := categorize(t, ctx, e)

	m := NewMap()
	l := NewLoaner(ctx, m, NewRootMap())

	ok := l.GuaranteeValid(c, ir.Imm, 5)
	require.True(t, ok)
	assert.Empty(t, rec.Diagnostics)
	assert.Empty(t, m.NewAt(5))
}

func TestPreserveGcDerefRootsWhenBounded(t *testing.T) {
	rec := &diag.Recorder{}
	ctx := fixture.NewMemContext(rec)
	b := fixture.NewBuilder()

	base := b.LocalRef(1)
	ctx.WithDef(base.ID, typectxDef(1, ir.Imm))
	ctx.WithDeref(1, ir.Gc)

	derefExpr := b.DerefOf(base, 2)

	cat := cmt.New(ctx, true)
	c, err := cat.CategorizeExpr(derefExpr)
	require.NoError(t, err)
	require.Nil(t, c.LoanPath, "gc deref should carry no loan path")

	roots := NewRootMap()
	l := NewLoaner(ctx, NewMap(), roots)

	ok := l.GuaranteeValid(c, ir.Imm, 9)
	require.True(t, ok)
	assert.Empty(t, rec.Diagnostics)
	assert.Equal(t, ir.ScopeID(9), roots[c.ID])
}

func TestPreserveGcDerefFailsWhenUnbounded(t *testing.T) {
	rec := &diag.Recorder{}
	ctx := fixture.NewMemContext(rec)
	b := fixture.NewBuilder()

	base := b.LocalRef(1)
	ctx.WithDef(base.ID, typectxDef(1, ir.Imm))
	ctx.WithDeref(1, ir.Gc)

	derefExpr := b.DerefOf(base, 2)

	cat := cmt.New(ctx, true)
	c, err := cat.CategorizeExpr(derefExpr)
	require.NoError(t, err)

	l := NewLoaner(ctx, NewMap(), NewRootMap())

	ok := l.GuaranteeValid(c, ir.Imm, ir.NoScopeID)
	assert.False(t, ok)
	require.Len(t, rec.Diagnostics, 1)
	assert.Contains(t, rec.Diagnostics[0].Message, "GC'd value")
}

func categorize(t *testing.T, ctx *fixture.MemContext, e *ir.Expr) *cmt.Cmt {
	t.Helper()
	cat := cmt.New(ctx, true)
	c, err := cat.CategorizeExpr(e)
	require.NoError(t, err)
	return c
}
