package check

import (
	"golang.org/x/exp/slices"

	"github.com/arborlang/borrowck/pkg/cmt"
	"github.com/arborlang/borrowck/pkg/diag"
	"github.com/arborlang/borrowck/pkg/ir"
	"github.com/arborlang/borrowck/pkg/loan"
)

// nonMovableComponents are the component kinds a move can never reach
// through: taking either apart would leave their owner partially alive.
var nonMovableComponents = []ir.ComponentTag{ir.CompResource, ir.CompVariant}

// check walks e verifying every write, swap, move, and mutable borrow
// against the loans phase 1 granted, recursing into every operand
// afterward exactly like gather does.
func (p *Pass) check(e *ir.Expr, scope ir.ScopeID) error {
	if e == nil {
		return nil
	}

	switch e.Kind {
	case ir.ExprAssign:
		target, err := p.Cat.CategorizeExpr(e.Base)
		if err != nil {
			return err
		}
		p.checkAssignment(target, diag.VerbAssign, scope)
		if e.Value != nil && e.Value.Kind == ir.ExprPath {
			if err := p.checkMoveOutOf(e.Value, scope); err != nil {
				return err
			}
		}

	case ir.ExprAssignOp:
		target, err := p.Cat.CategorizeExpr(e.Base)
		if err != nil {
			return err
		}
		p.checkAssignment(target, diag.VerbAssign, scope)

	case ir.ExprSwap:
		lhs, err := p.Cat.CategorizeExpr(e.Base)
		if err != nil {
			return err
		}
		rhs, err := p.Cat.CategorizeExpr(e.Rhs)
		if err != nil {
			return err
		}
		p.checkAssignment(lhs, diag.VerbSwap, scope)
		p.checkAssignment(rhs, diag.VerbSwap, scope)

	case ir.ExprMove:
		if err := p.checkMoveOutOf(e.Value, scope); err != nil {
			return err
		}
		target, err := p.Cat.CategorizeExpr(e.Base)
		if err != nil {
			return err
		}
		p.checkAssignment(target, diag.VerbAssign, scope)

	case ir.ExprAddrOf:
		if e.Mutbl == ir.Mut {
			base, err := p.Cat.CategorizeExpr(e.Base)
			if err != nil {
				return err
			}
			p.checkAssignment(base, diag.VerbMutRef, scope)
		}

	case ir.ExprClosure:
		for _, cap := range e.Captures {
			if !cap.ByMove {
				continue
			}
			if err := p.checkMoveOutBinding(cap.Binding, e, scope); err != nil {
				return err
			}
		}

	case ir.ExprCall:
		for _, a := range e.Args {
			if a.Mode == ir.ByMove {
				if err := p.checkMoveOutOf(a.Value, e.Scope); err != nil {
					return err
				}
			}
		}

	case ir.ExprMatch:
		for _, arm := range e.Arms {
			if err := p.check(arm.Body, arm.Scope); err != nil {
				return err
			}
		}
	}

	for _, child := range children(e) {
		if err := p.check(child, childScope(e, scope)); err != nil {
			return err
		}
	}
	return nil
}

// checkAssignment is check_assignment: target must name a loan path (or
// be a constructor's own self.field, the one exception where a
// Special(SelfRef)-rooted field is still writable), and no outstanding
// Imm loan on that path may survive into scope.
func (p *Pass) checkAssignment(target *cmt.Cmt, verb diag.AssignmentVerb, scope ir.ScopeID) {
	if target.LoanPath == nil {
		if p.selfFieldException(target) {
			return
		}
		p.emitErr(target, diag.NotAssignable(verb, diag.DescribeCategory(target.DescriptionKey(), target.Mutbl)))
		return
	}

	if target.Mutbl != ir.Mut {
		p.emitErr(target, diag.NotAssignable(verb, diag.DescribeCategory(target.DescriptionKey(), target.Mutbl)))
		return
	}

	key := target.LoanPath.Key()
	for _, l := range loan.AncestorLoansOnPath(p.Ctx, p.Loans, scope, key) {
		if !loan.Compatible(l.Mutbl, ir.Mut) {
			p.emitErr(target, diag.OutstandingLoan(verb, diag.DescribeCategory(target.DescriptionKey(), target.Mutbl)))
			return
		}
	}

	if target.Category.Tag == cmt.TagLocal && target.Category.Binding != ir.NoBindingID {
		p.Mutbl.Add(target.Category.Binding)
	}
}

// selfFieldException implements the constructor self.field carve-out:
// inside a constructor, a Comp(Field) projection rooted directly at
// Special(SelfRef) is assignable even though SelfRef itself has no loan
// path, since the constructor is the only code with exclusive access to
// the value under construction.
func (p *Pass) selfFieldException(target *cmt.Cmt) bool {
	if !p.inConstructor {
		return false
	}
	if target.Category.Tag != cmt.TagComp || target.Category.Component.Tag != ir.CompField {
		return false
	}
	return target.Category.Child.Category.Tag == cmt.TagSelfRef
}

// checkMoveOutOf categorizes e and checks its move-legality.
func (p *Pass) checkMoveOutOf(e *ir.Expr, scope ir.ScopeID) error {
	c, err := p.Cat.CategorizeExpr(e)
	if err != nil {
		return err
	}
	p.checkMoveOutFromCmt(c, scope)
	return nil
}

// checkMoveOutBinding builds the local's categorization directly (a
// closure capture names a binding, not an expression) and checks it.
func (p *Pass) checkMoveOutBinding(binding ir.BindingID, at *ir.Expr, scope ir.ScopeID) error {
	c := &cmt.Cmt{
		ID:       at.ID,
		Span:     at.Span,
		Category: cmt.Category{Tag: cmt.TagLocal, Binding: binding},
		Mutbl:    ir.Mut,
		LoanPath: &cmt.LoanPath{Tag: cmt.LPLocal, Binding: binding},
	}
	p.checkMoveOutFromCmt(c, scope)
	return nil
}

// checkMoveOutFromCmt is check_move_out_from_cmt: a self reference or a
// resource reached only through a component projection can never be
// moved out of (moving it would leave the owner's storage partially
// alive), and any path with an outstanding loan of any mutability
// cannot be moved out of either (a move invalidates what the loan
// promised stayed allocated).
func (p *Pass) checkMoveOutFromCmt(c *cmt.Cmt, scope ir.ScopeID) {
	if !p.movable(c) {
		p.emitErr(c, diag.MoveDisallowed(diag.DescribeCategory(c.DescriptionKey(), c.Mutbl)))
		return
	}
	if c.LoanPath == nil {
		return
	}
	key := c.LoanPath.Key()
	if loans := loan.AncestorLoansOnPath(p.Ctx, p.Loans, scope, key); len(loans) > 0 {
		p.emitErr(c, diag.MoveOfBorrowed(diag.DescribeCategory(c.DescriptionKey(), c.Mutbl)))
	}
}

// AllowMoveFromStatic is the legacy move-from-static carve-out: moving
// out of a static item is permitted because the old code did it, kept
// behind a named predicate rather than folded into movable's switch so
// the compatibility carry-over is visible at the call site.
func AllowMoveFromStatic() bool {
	return true
}

// movable rejects the categories the language never permits moving out
// of: self and methods always, a by-ref/by-const-ref argument (only a
// mutable Arg may be moved out of), and resource-typed or enum-variant
// component projections (their owner must stay whole). Static items are
// the one legacy exception, gated through AllowMoveFromStatic.
func (p *Pass) movable(c *cmt.Cmt) bool {
	switch c.Category.Tag {
	case cmt.TagStaticItem:
		return AllowMoveFromStatic()
	case cmt.TagSelfRef, cmt.TagMethod:
		return false
	case cmt.TagArg:
		return c.Mutbl == ir.Mut
	case cmt.TagComp:
		if slices.Contains(nonMovableComponents, c.Category.Component.Tag) {
			return false
		}
	}
	return true
}

func (p *Pass) emitErr(c *cmt.Cmt, message string) {
	p.Ctx.Sink().Emit(diag.Diagnostic{Span: c.Span, Message: message, Severity: diag.SeverityErr})
}
