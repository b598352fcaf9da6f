// Package check implements the gather/check driver (C3): a two-phase
// walk over one function body that first grants every loan the body
// needs (gather) and then verifies every write, swap, move, and mutable
// borrow against the loans outstanding at that point (check). It is the
// only package that drives writes into a loan.Map or loan.RootMap,
// through the loan.Loaner it owns; the cmt categorizer is stateless.
package check

import (
	"github.com/arborlang/borrowck/pkg/cmt"
	"github.com/arborlang/borrowck/pkg/diag"
	"github.com/arborlang/borrowck/pkg/ir"
	"github.com/arborlang/borrowck/pkg/loan"
	"github.com/arborlang/borrowck/pkg/typectx"
)

// Pass carries the per-function state of one borrow-check run: the
// loan map and root map being built up, the binding set confirmed
// written, and the in-constructor flag the self.field exception reads.
// Reset prepares it for the next function in a Program.
type Pass struct {
	Ctx    typectx.Context
	Cat    *cmt.Categorizer
	Loaner *loan.Loaner

	Loans *loan.Map
	Roots loan.RootMap
	Mutbl loan.MutblMap

	// MsgLevel mirrors the msg_level config knob: 0 disables gather
	// entirely (no loans are ever issued, so check degenerates to the
	// non-assignable-target and move-legality checks only), 1 and 2
	// both run gather in full; the pass treats them alike, and pass.Run
	// reports error diagnostics as warnings at 1.
	MsgLevel int

	inConstructor bool
}

// NewPass builds a Pass over ctx and cat, writing loans into loans and
// gc roots into roots, sharing a single MutblMap across every function
// of the program — it is program-wide bookkeeping, and Reset never
// touches it.
func NewPass(ctx typectx.Context, cat *cmt.Categorizer, loans *loan.Map, roots loan.RootMap, mutbl loan.MutblMap, msgLevel int) *Pass {
	return &Pass{
		Ctx:      ctx,
		Cat:      cat,
		Loaner:   loan.NewLoaner(ctx, loans, roots),
		Loans:    loans,
		Roots:    roots,
		Mutbl:    mutbl,
		MsgLevel: msgLevel,
	}
}

// Reset prepares the pass for checking fn: a fresh per-function loan
// map (functions don't share outstanding loans) and the in-constructor
// flag checked by the self.field exception to check_assignment.
func (p *Pass) Reset(fn *ir.Function) {
	p.Loans = loan.NewMap()
	p.Loaner = loan.NewLoaner(p.Ctx, p.Loans, p.Roots)
	p.inConstructor = p.Ctx.FuncKindOf(fn) == ir.FuncConstructor
}

func (p *Pass) bug(message string) {
	p.Ctx.Sink().Emit(diag.Diagnostic{Message: "borrow checker internal error: " + message, Severity: diag.SeverityBug})
}

// CheckFunction runs Reset followed by the gather and check passes over
// fn.Body, returning false if a fatal internal error aborted the walk
// early (recoverable diagnostics are reported through the sink and do
// not abort).
func (p *Pass) CheckFunction(fn *ir.Function) bool {
	p.Reset(fn)
	if p.MsgLevel > 0 {
		if err := p.gather(fn.Body, fn.Scope); err != nil {
			p.bug(err.Error())
			return false
		}
	}
	if err := p.check(fn.Body, fn.Scope); err != nil {
		p.bug(err.Error())
		return false
	}
	return true
}

// CheckProgram runs CheckFunction over every function, sharing the
// pass's RootMap and MutblMap across the whole program.
func (p *Pass) CheckProgram(prog *ir.Program) {
	for _, fn := range prog.Functions {
		p.CheckFunction(fn)
	}
}

// --- phase 1: gather ---

// gather walks e, issuing every loan an auto-borrow, explicit
// address-of, or by-ref/by-mutable-ref call argument needs, then
// recurses into every operand. scope is the current lexical region new
// loans not tied to a narrower region (a nested call's own Scope, a
// match arm's own Scope) are granted into.
func (p *Pass) gather(e *ir.Expr, scope ir.ScopeID) error {
	if e == nil {
		return nil
	}

	if e.AutoBorrow != nil {
		c, err := p.Cat.CategorizeBorrowTarget(e)
		if err != nil {
			return err
		}
		p.Loaner.GuaranteeValid(c, ir.Const, e.AutoBorrow.Scope)
	}

	switch e.Kind {
	case ir.ExprAddrOf:
		c, err := p.Cat.CategorizeExpr(e.Base)
		if err != nil {
			return err
		}
		p.Loaner.GuaranteeValid(c, e.Mutbl, e.Region)

	case ir.ExprCall:
		if err := p.gather(e.Callee, e.Scope); err != nil {
			return err
		}
		for _, a := range e.Args {
			if err := p.gatherArg(a, e.Scope); err != nil {
				return err
			}
		}
		return nil

	case ir.ExprMatch:
		if err := p.gather(e.Base, scope); err != nil {
			return err
		}
		discrim, err := p.Cat.CategorizeExpr(e.Base)
		if err != nil {
			return err
		}
		for _, arm := range e.Arms {
			if err := p.gatherPat(arm.Pattern, discrim, arm.Scope); err != nil {
				return err
			}
			if err := p.gather(arm.Body, arm.Scope); err != nil {
				return err
			}
		}
		return nil
	}

	for _, child := range children(e) {
		if err := p.gather(child, childScope(e, scope)); err != nil {
			return err
		}
	}
	return nil
}

// gatherArg issues the loan a by-ref or by-mutable-ref call argument
// requires into the call's own scope; by-move/by-copy/by-value
// arguments name no loan at gather time. Phase 2 checks by-move
// arguments for move-legality; by-copy/by-value arguments get no check.
func (p *Pass) gatherArg(a ir.Arg, callScope ir.ScopeID) error {
	if err := p.gather(a.Value, callScope); err != nil {
		return err
	}
	switch a.Mode {
	case ir.ByRef, ir.ByMutRef:
		c, err := p.Cat.CategorizeExpr(a.Value)
		if err != nil {
			return err
		}
		req := ir.Const
		if a.Mode == ir.ByMutRef {
			req = ir.Mut
		} else if p.Cat.TreatConstAsImm {
			req = ir.Imm
		}
		p.Loaner.GuaranteeValid(c, req, callScope)
	}
	return nil
}

// gatherPat walks a match pattern against the categorized discriminant,
// issuing a Const loan over the arm's scope for every binding and
// sub-projection a irrefutable destructure reaches into — the pattern
// equivalent of an auto-borrow, since a bound name in a pattern aliases
// the discriminant's storage for the lifetime of the arm.
func (p *Pass) gatherPat(pat *ir.Pattern, discrim *cmt.Cmt, armScope ir.ScopeID) error {
	if pat == nil {
		return nil
	}
	switch pat.Kind {
	case ir.PatBinding:
		p.Loaner.GuaranteeValid(discrim, ir.Const, armScope)
		if pat.Inner != nil {
			return p.gatherPat(pat.Inner, discrim, armScope)
		}
		return nil

	case ir.PatVariant:
		for i, elem := range pat.Elems {
			comp := ir.Component{Tag: ir.CompVariant, Name: patElemName(i)}
			sub := projectCmt(discrim, comp, elem.Type)
			if err := p.gatherPat(elem.Sub, sub, armScope); err != nil {
				return err
			}
		}
		return nil

	case ir.PatRecord:
		for _, f := range pat.Fields {
			comp := ir.Component{Tag: ir.CompField, Name: f.Name}
			sub := projectCmt(discrim, comp, discrim.Type)
			if err := p.gatherPat(f.Sub, sub, armScope); err != nil {
				return err
			}
		}
		return nil

	case ir.PatTuple:
		for i, elem := range pat.Elems {
			comp := ir.Component{Tag: ir.CompTuple, Name: patElemName(i)}
			sub := projectCmt(discrim, comp, elem.Type)
			if err := p.gatherPat(elem.Sub, sub, armScope); err != nil {
				return err
			}
		}
		return nil

	case ir.PatBox:
		return p.gatherPat(pat.Box, discrim, armScope)

	default:
		return nil
	}
}

func patElemName(i int) string {
	const letters = "0123456789abcdefghijklmnopqrstuvwxyz"
	if i < len(letters) {
		return string(letters[i])
	}
	return "_"
}

// projectCmt builds a synthetic Comp categorization over a pattern
// sub-binding without going through the categorizer (there is no
// expression node for a pattern projection): it only needs enough shape
// for GuaranteeValid to find a loan path, which it inherits from the
// base the same way cmt.catField/cmt.catDeref do.
func projectCmt(base *cmt.Cmt, comp ir.Component, elemType ir.TypeID) *cmt.Cmt {
	lp := (*cmt.LoanPath)(nil)
	if base.LoanPath != nil {
		lp = &cmt.LoanPath{Tag: cmt.LPComp, Base: base.LoanPath, Component: comp}
	}
	return &cmt.Cmt{
		ID:       base.ID,
		Span:     base.Span,
		Category: cmt.Category{Tag: cmt.TagComp, Child: base, Component: comp},
		Type:     elemType,
		Mutbl:    base.Mutbl,
		LoanPath: lp,
	}
}

// children enumerates e's operand sub-expressions generically, for the
// parts of gather/check that recurse structurally without caring about
// Kind.
func children(e *ir.Expr) []*ir.Expr {
	var out []*ir.Expr
	if e.Base != nil {
		out = append(out, e.Base)
	}
	if e.Rhs != nil {
		out = append(out, e.Rhs)
	}
	if e.Value != nil {
		out = append(out, e.Value)
	}
	if e.Callee != nil {
		out = append(out, e.Callee)
	}
	for _, a := range e.Args {
		out = append(out, a.Value)
	}
	if e.Body != nil {
		out = append(out, e.Body)
	}
	for _, s := range e.Stmts {
		out = append(out, s)
	}
	return out
}

// childScope picks the scope a generic child should be walked under: a
// call's arguments and callee belong to the call's own temporary scope.
func childScope(e *ir.Expr, outer ir.ScopeID) ir.ScopeID {
	if e.Kind == ir.ExprCall {
		return e.Scope
	}
	return outer
}
