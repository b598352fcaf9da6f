package cmt

import (
	"github.com/pkg/errors"

	"github.com/arborlang/borrowck/pkg/ir"
	"github.com/arborlang/borrowck/pkg/span"
	"github.com/arborlang/borrowck/pkg/typectx"
)

// Categorizer implements C1 against a fixed type context
// and configuration. TreatConstAsImm is the pass-wide knob controlling
// whether by-reference arguments are modeled as immutable rather than
// const, strengthening their guarantees. It is set once at construction,
// the way a production compiler's analysis contexts (e.g.
// OwnershipContext) are built once per compile and then driven by the
// tree walk without further configuration.
type Categorizer struct {
	Ctx             typectx.Context
	TreatConstAsImm bool
}

// New builds a Categorizer bound to ctx and the given TREAT_CONST_AS_IMM
// setting.
func New(ctx typectx.Context, treatConstAsImm bool) *Categorizer {
	return &Categorizer{Ctx: ctx, TreatConstAsImm: treatConstAsImm}
}

// rvalue builds the trivial Rvalue categorization every syntactic form
// not explicitly handled by collapses to: address-of, call,
// closure literal, assignment, swap, move, copy, cast, control flow,
// aggregates, literals, etc.
func rvalue(e *ir.Expr) *Cmt {
	return &Cmt{
		ID:       e.ID,
		Span:     e.Span,
		Category: Category{Tag: TagRvalue},
		Type:     e.Type,
		Mutbl:    ir.Imm,
	}
}

func special(e *ir.Expr, tag Tag) *Cmt {
	return &Cmt{
		ID:       e.ID,
		Span:     e.Span,
		Category: Category{Tag: tag},
		Type:     e.Type,
		Mutbl:    ir.Imm,
	}
}

// CategorizeExpr is cat_expr: total on every expression of the IR.
func (c *Categorizer) CategorizeExpr(e *ir.Expr) (*Cmt, error) {
	if e == nil {
		return nil, errors.New("cat_expr: nil expression")
	}

	if c.Ctx.IsMethodCall(e.ID) {
		return special(e, TagMethod), nil
	}

	switch e.Kind {
	case ir.ExprDeref:
		baseCmt, err := c.CategorizeExpr(e.Base)
		if err != nil {
			return nil, err
		}
		return c.catDeref(baseCmt, e.Span, true)

	case ir.ExprField:
		baseCmt, err := c.catAutoderef(e.Base)
		if err != nil {
			return nil, err
		}
		return c.catField(baseCmt, e)

	case ir.ExprIndex:
		return c.catIndex(e, e.Base)

	case ir.ExprPath:
		def, ok := c.Ctx.DefOf(e.ID)
		if !ok {
			return nil, errors.Errorf("cat_expr: unresolved path at expr %d", e.ID)
		}
		return c.catDef(e, def)

	default:
		return rvalue(e), nil
	}
}

// catIndex builds an index expression's categorization: an explicit
// deref of base's pointer-backed storage wrapped in Comp(_, Index),
// so that indexing exposes the pointer crossing to the loan rules
// exactly like an explicit deref would.
func (c *Categorizer) catIndex(e *ir.Expr, base *ir.Expr) (*Cmt, error) {
	baseCmt, err := c.catAutoderef(base)
	if err != nil {
		return nil, err
	}
	elemTy, pointerBacked, ok := c.Ctx.Indexable(baseCmt.Type)
	if !ok {
		return nil, errors.Errorf("cat_index: type is not indexable at expr %d", e.ID)
	}
	if !pointerBacked {
		return nil, errors.Errorf("cat_index: index target is not pointer-backed at expr %d", e.ID)
	}
	derefd, err := c.catDeref(baseCmt, e.Span, true)
	if err != nil {
		return nil, err
	}
	comp := ir.Component{Tag: ir.CompIndex, ElemType: elemTy}
	return &Cmt{
		ID:       e.ID,
		Span:     e.Span,
		Category: Category{Tag: TagComp, Child: derefd, Component: comp},
		Type:     elemTy,
		Mutbl:    derefd.Mutbl,
		LoanPath: compLoanPath(derefd, comp),
	}, nil
}

// CategorizeBorrowTarget is cat_borrow_of_expr: an auto-borrow's actual
// target is one layer beneath the borrowed expression itself, never the
// expression's own top-level categorization — a borrow of a vec/str
// hands out a reference to its element storage (modeled as indexing the
// expression into itself), and a borrow of a uniq/box/region pointer
// hands out a reference one deref past the pointer value.
func (c *Categorizer) CategorizeBorrowTarget(e *ir.Expr) (*Cmt, error) {
	if _, _, ok := c.Ctx.Indexable(e.Type); ok {
		return c.catIndex(e, e)
	}
	if _, ok := c.Ctx.Dereferenceable(e.Type); ok {
		base, err := c.CategorizeExpr(e)
		if err != nil {
			return nil, err
		}
		return c.catDeref(base, e.Span, true)
	}
	return nil, errors.Errorf("cat_borrow_of_expr: type is neither indexable nor dereferenceable at expr %d", e.ID)
}

// catAutoderef repeatedly applies an implicit dereference as long as
// the type remains implicitly dereferenceable (field-access autoderef,
// ).
func (c *Categorizer) catAutoderef(e *ir.Expr) (*Cmt, error) {
	base, err := c.CategorizeExpr(e)
	if err != nil {
		return nil, err
	}
	for c.Ctx.ImplicitlyDereferenceable(base.Type) {
		next, err := c.catDeref(base, e.Span, false)
		if err != nil {
			return nil, err
		}
		base = next
	}
	return base, nil
}

// catDeref is cat_deref: builds Deref(base, ptrKind). Fails as an
// internal error if the type is not dereferenceable (only possible for
// the explicit-deref caller; autoderef only calls this after confirming
// ImplicitlyDereferenceable).
func (c *Categorizer) catDeref(base *Cmt, sp span.Span, explicit bool) (*Cmt, error) {
	ptrKind, ok := c.Ctx.Dereferenceable(base.Type)
	if !ok {
		return nil, errors.Errorf("cat_deref: type is not dereferenceable (%s)", sp)
	}

	lp := derefLoanPath(base, ptrKind)

	return &Cmt{
		ID:       base.ID,
		Span:     base.Span,
		Category: Category{Tag: TagDeref, Child: base, PtrKind: ptrKind},
		Type:     base.Type,
		Mutbl:    base.Mutbl,
		LoanPath: lp,
	}, nil
}

// derefLoanPath implements the loan-path presence rules for Deref
//: Deref(base, Uniq) has a loan path iff base does (owned
// content is reachable only through the owner); Deref through Gc,
// Region, or Unsafe never has one (aliasing possible).
func derefLoanPath(base *Cmt, ptrKind ir.PointerKind) *LoanPath {
	if ptrKind != ir.Uniq {
		return nil
	}
	if base.LoanPath == nil {
		return nil
	}
	return &LoanPath{Tag: LPDeref, Base: base.LoanPath, PtrKind: ptrKind}
}

// catField builds Comp(base, Field(f)) and resolves the field's
// mutability against the type context.
func (c *Categorizer) catField(base *Cmt, e *ir.Expr) (*Cmt, error) {
	fields, ok := c.Ctx.Fields(base.Type)
	if !ok {
		return nil, errors.Errorf("cat_field: type has no field listing at expr %d", e.ID)
	}
	var decl typectx.FieldDecl
	found := false
	for _, f := range fields {
		if f.Name == e.Field {
			decl = f
			found = true
			break
		}
	}
	if !found {
		return nil, errors.Errorf("cat_field: missing field %q at expr %d", e.Field, e.ID)
	}

	comp := ir.Component{Tag: ir.CompField, Name: e.Field}
	mutbl := fieldMutbl(decl.Mutbl, base.Mutbl)

	return &Cmt{
		ID:       e.ID,
		Span:     e.Span,
		Category: Category{Tag: TagComp, Child: base, Component: comp},
		Type:     decl.Type,
		Mutbl:    mutbl,
		LoanPath: compLoanPath(base, comp),
	}, nil
}

// fieldMutbl implements mutability-propagation rule: the
// declared field mutability applies, *unless* the field is declared
// immutable, in which case the result inherits the base's mutability
// (an immutable field of a mutable record is still mutable because the
// base can be overwritten wholesale).
func fieldMutbl(declared, baseMutbl ir.Mutability) ir.Mutability {
	if declared == ir.Imm {
		return baseMutbl
	}
	return declared
}

// compLoanPath implements Comp presence rule: Comp(base, _)
// has a loan path iff base does.
func compLoanPath(base *Cmt, comp ir.Component) *LoanPath {
	if base.LoanPath == nil {
		return nil
	}
	return &LoanPath{Tag: LPComp, Base: base.LoanPath, Component: comp}
}

// catDef classifies a resolved path/upvar definition.
func (c *Categorizer) catDef(e *ir.Expr, def typectx.Definition) (*Cmt, error) {
	switch def.Kind {
	case typectx.DefItem:
		return special(e, TagStaticItem), nil

	case typectx.DefSelf:
		return special(e, TagSelfRef), nil

	case typectx.DefLocal:
		lp := &LoanPath{Tag: LPLocal, Binding: def.Binding}
		return &Cmt{
			ID:       e.ID,
			Span:     e.Span,
			Category: Category{Tag: TagLocal, Binding: def.Binding},
			Type:     e.Type,
			Mutbl:    def.LocalMutbl,
			LoanPath: lp,
		}, nil

	case typectx.DefPatBinding:
		// Pattern bindings behave like locals but are always immutable
		//: the binding itself cannot be reassigned through
		// this categorization, only through a `set!` on the local it
		// was bound from.
		lp := &LoanPath{Tag: LPLocal, Binding: def.Binding}
		return &Cmt{
			ID:       e.ID,
			Span:     e.Span,
			Category: Category{Tag: TagLocal, Binding: def.Binding},
			Type:     e.Type,
			Mutbl:    ir.Imm,
			LoanPath: lp,
		}, nil

	case typectx.DefArg:
		return c.catArg(e, def)

	case typectx.DefUpvar:
		return c.catUpvar(e, def)

	default:
		return nil, errors.Errorf("cat_def: unknown definition kind at expr %d", e.ID)
	}
}

// catArg dispatches on the resolved calling mode.
func (c *Categorizer) catArg(e *ir.Expr, def typectx.Definition) (*Cmt, error) {
	switch def.ArgMode {
	case ir.ByMutRef:
		// The caller owns stability; no loan path (aliasing assumed).
		return &Cmt{
			ID:       e.ID,
			Span:     e.Span,
			Category: Category{Tag: TagArg, Binding: def.Binding},
			Type:     e.Type,
			Mutbl:    ir.Mut,
		}, nil

	case ir.ByMove, ir.ByCopy:
		lp := &LoanPath{Tag: LPArg, Binding: def.Binding}
		return &Cmt{
			ID:       e.ID,
			Span:     e.Span,
			Category: Category{Tag: TagArg, Binding: def.Binding},
			Type:     e.Type,
			Mutbl:    ir.Mut,
			LoanPath: lp,
		}, nil

	case ir.ByRef:
		// A Const by-ref argument names no loan path: nothing guarantees
		// the caller's storage stays stable, so it cannot be loaned. Only
		// once TREAT_CONST_AS_IMM promotes it to Imm does it become a
		// stable, loanable address.
		mutbl := ir.Const
		var lp *LoanPath
		if c.TreatConstAsImm {
			mutbl = ir.Imm
			lp = &LoanPath{Tag: LPArg, Binding: def.Binding}
		}
		return &Cmt{
			ID:       e.ID,
			Span:     e.Span,
			Category: Category{Tag: TagArg, Binding: def.Binding},
			Type:     e.Type,
			Mutbl:    mutbl,
			LoanPath: lp,
		}, nil

	case ir.ByVal:
		lp := &LoanPath{Tag: LPArg, Binding: def.Binding}
		return &Cmt{
			ID:       e.ID,
			Span:     e.Span,
			Category: Category{Tag: TagArg, Binding: def.Binding},
			Type:     e.Type,
			Mutbl:    ir.Imm,
			LoanPath: lp,
		}, nil

	default:
		return nil, errors.Errorf("cat_arg: unknown arg mode at expr %d", e.ID)
	}
}

// catUpvar dispatches on the enclosing function's closure-proto tag
//: stack-valid closures recursively categorize the
// captured binding and wrap it in StackUpvar; heap-escaping closures
// collapse to Special(HeapUpvar).
func (c *Categorizer) catUpvar(e *ir.Expr, def typectx.Definition) (*Cmt, error) {
	if !def.UpvarProto.IsStackValid() {
		return special(e, TagHeapUpvar), nil
	}
	if def.UpvarCaptured == nil {
		return nil, errors.Errorf("cat_upvar: stack-valid upvar missing captured definition at expr %d", e.ID)
	}
	captured, err := c.catDef(e, *def.UpvarCaptured)
	if err != nil {
		return nil, err
	}
	return &Cmt{
		ID:       e.ID,
		Span:     e.Span,
		Category: Category{Tag: TagStackUpvar, Child: captured},
		Type:     e.Type,
		Mutbl:    captured.Mutbl,
		LoanPath: captured.LoanPath,
	}, nil
}
