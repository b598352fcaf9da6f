package fixture_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborlang/borrowck/pkg/fixture"
	"github.com/arborlang/borrowck/pkg/ir"
	"github.com/arborlang/borrowck/pkg/typectx"
)

func TestMemContextRoundTrips(t *testing.T) {
	ctx := fixture.NewMemContext(nil)
	b := fixture.NewBuilder()

	e := b.LocalRef(7)
	ctx.WithDef(e.ID, typectx.Definition{Kind: typectx.DefLocal, Binding: 1, LocalMutbl: ir.Mut})
	ctx.WithFields(7, []typectx.FieldDecl{{Name: "a", Type: 1, Mutbl: ir.Imm}})
	ctx.WithDeref(2, ir.Region)
	ctx.WithRegionParent(20, 10)

	def, ok := ctx.DefOf(e.ID)
	require.True(t, ok)
	assert.Equal(t, typectx.DefLocal, def.Kind)

	fields, ok := ctx.Fields(7)
	require.True(t, ok)
	require.Len(t, fields, 1)
	assert.Equal(t, "a", fields[0].Name)

	kind, ok := ctx.Dereferenceable(2)
	require.True(t, ok)
	assert.Equal(t, ir.Region, kind)

	parent, ok := ctx.RegionParent(20)
	require.True(t, ok)
	assert.Equal(t, ir.ScopeID(10), parent)

	assert.NotNil(t, ctx.Sink())
}

func TestBuilderAllocatesDistinctIDs(t *testing.T) {
	b := fixture.NewBuilder()
	a := b.Lit(1)
	c := b.Lit(1)
	assert.NotEqual(t, a.ID, c.ID)
}
