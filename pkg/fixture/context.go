// Package fixture provides an in-memory typectx.Context implementation
// and small IR-building helpers for tests, the way a production
// compiler's own test suite backs its analysis contexts with a handwired
// fake rather than running the real type checker.
package fixture

import (
	"github.com/arborlang/borrowck/pkg/diag"
	"github.com/arborlang/borrowck/pkg/ir"
	"github.com/arborlang/borrowck/pkg/typectx"
)

// MemContext is a fully in-memory typectx.Context, populated by its
// With* builder methods before being handed to a pass.Run or
// check.Pass in a test. Zero value is an empty context: every lookup
// fails closed (not dereferenceable, not indexable, no fields) unless
// explicitly registered.
type MemContext struct {
	sink diag.Sink

	types       map[ir.ExprID]ir.TypeID
	methodCalls map[ir.ExprID]bool
	derefs      map[ir.TypeID]ir.PointerKind
	autoDerefs  map[ir.TypeID]bool
	indexable   map[ir.TypeID]indexInfo
	fields      map[ir.TypeID][]typectx.FieldDecl
	variants    map[ir.TypeID]map[string]typectx.VariantDecl
	enums       map[ir.TypeID]bool
	resources   map[ir.TypeID]bool
	defs        map[ir.ExprID]typectx.Definition
	regionTree  map[ir.ScopeID]ir.ScopeID
	ctorFns     map[*ir.Function]bool
}

type indexInfo struct {
	elem          ir.TypeID
	pointerBacked bool
}

// NewMemContext builds an empty context reporting diagnostics to sink.
// A nil sink defaults to a fresh Recorder, retrievable via Sink().
func NewMemContext(sink diag.Sink) *MemContext {
	if sink == nil {
		sink = &diag.Recorder{}
	}
	return &MemContext{
		sink:        sink,
		types:       make(map[ir.ExprID]ir.TypeID),
		methodCalls: make(map[ir.ExprID]bool),
		derefs:      make(map[ir.TypeID]ir.PointerKind),
		autoDerefs:  make(map[ir.TypeID]bool),
		indexable:   make(map[ir.TypeID]indexInfo),
		fields:      make(map[ir.TypeID][]typectx.FieldDecl),
		variants:    make(map[ir.TypeID]map[string]typectx.VariantDecl),
		enums:       make(map[ir.TypeID]bool),
		resources:   make(map[ir.TypeID]bool),
		defs:        make(map[ir.ExprID]typectx.Definition),
		regionTree:  make(map[ir.ScopeID]ir.ScopeID),
		ctorFns:     make(map[*ir.Function]bool),
	}
}

func (c *MemContext) WithType(id ir.ExprID, t ir.TypeID) *MemContext {
	c.types[id] = t
	return c
}

func (c *MemContext) WithMethodCall(id ir.ExprID) *MemContext {
	c.methodCalls[id] = true
	return c
}

func (c *MemContext) WithDeref(t ir.TypeID, kind ir.PointerKind) *MemContext {
	c.derefs[t] = kind
	return c
}

func (c *MemContext) WithAutoDeref(t ir.TypeID) *MemContext {
	c.autoDerefs[t] = true
	return c
}

func (c *MemContext) WithIndexable(t, elem ir.TypeID, pointerBacked bool) *MemContext {
	c.indexable[t] = indexInfo{elem: elem, pointerBacked: pointerBacked}
	return c
}

func (c *MemContext) WithFields(t ir.TypeID, fields []typectx.FieldDecl) *MemContext {
	c.fields[t] = fields
	return c
}

func (c *MemContext) WithVariant(t ir.TypeID, v typectx.VariantDecl) *MemContext {
	if c.variants[t] == nil {
		c.variants[t] = make(map[string]typectx.VariantDecl)
	}
	c.variants[t][v.Name] = v
	c.enums[t] = true
	return c
}

func (c *MemContext) WithResource(t ir.TypeID) *MemContext {
	c.resources[t] = true
	return c
}

func (c *MemContext) WithDef(id ir.ExprID, def typectx.Definition) *MemContext {
	c.defs[id] = def
	return c
}

func (c *MemContext) WithRegionParent(child, parent ir.ScopeID) *MemContext {
	c.regionTree[child] = parent
	return c
}

func (c *MemContext) WithConstructor(fn *ir.Function) *MemContext {
	c.ctorFns[fn] = true
	return c
}

func (c *MemContext) TypeOf(id ir.ExprID) ir.TypeID { return c.types[id] }

func (c *MemContext) IsMethodCall(id ir.ExprID) bool { return c.methodCalls[id] }

func (c *MemContext) Dereferenceable(t ir.TypeID) (ir.PointerKind, bool) {
	k, ok := c.derefs[t]
	return k, ok
}

func (c *MemContext) ImplicitlyDereferenceable(t ir.TypeID) bool {
	return c.autoDerefs[t]
}

func (c *MemContext) Indexable(t ir.TypeID) (ir.TypeID, bool, bool) {
	info, ok := c.indexable[t]
	return info.elem, info.pointerBacked, ok
}

func (c *MemContext) Fields(t ir.TypeID) ([]typectx.FieldDecl, bool) {
	f, ok := c.fields[t]
	return f, ok
}

func (c *MemContext) Variant(t ir.TypeID, name string) (typectx.VariantDecl, bool) {
	vs, ok := c.variants[t]
	if !ok {
		return typectx.VariantDecl{}, false
	}
	v, ok := vs[name]
	return v, ok
}

func (c *MemContext) IsEnum(t ir.TypeID) bool { return c.enums[t] }

func (c *MemContext) IsResource(t ir.TypeID) bool { return c.resources[t] }

func (c *MemContext) DefOf(id ir.ExprID) (typectx.Definition, bool) {
	d, ok := c.defs[id]
	return d, ok
}

func (c *MemContext) RegionParent(s ir.ScopeID) (ir.ScopeID, bool) {
	p, ok := c.regionTree[s]
	return p, ok
}

func (c *MemContext) FuncKindOf(fn *ir.Function) ir.FuncKind {
	if c.ctorFns[fn] {
		return ir.FuncConstructor
	}
	return fn.Kind
}

func (c *MemContext) Sink() diag.Sink { return c.sink }
