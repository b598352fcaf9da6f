package loan

import (
	"github.com/pkg/errors"

	"github.com/arborlang/borrowck/pkg/cmt"
	"github.com/arborlang/borrowck/pkg/diag"
	"github.com/arborlang/borrowck/pkg/ir"
	"github.com/arborlang/borrowck/pkg/typectx"
)

// Loaner answers guarantee_valid: can we promise the
// address denoted by a cmt remains allocated and of mutability at
// least required for all of a region? It owns the Map loans are
// granted into and the RootMap gc-rooted derefs are recorded into.
type Loaner struct {
	Ctx   typectx.Context
	Loans *Map
	Roots RootMap
}

// NewLoaner builds a Loaner bound to ctx, writing into loans and roots.
func NewLoaner(ctx typectx.Context, loans *Map, roots RootMap) *Loaner {
	return &Loaner{Ctx: ctx, Loans: loans, Roots: roots}
}

// bug reports an internal-logic violation: type context returned an
// impossible shape, or guarantee_valid's invariants were violated by a
// caller. This method only emits the diagnostic; GuaranteeValid then
// returns false, which the driver does not tell apart from a user error,
// so checking of the enclosing function continues.
func (l *Loaner) bug(err error, sp cmt.Cmt) {
	l.Ctx.Sink().Emit(diag.Diagnostic{
		Span:     sp.Span,
		Message:  errors.Wrap(err, "borrow checker internal error").Error(),
		Severity: diag.SeverityBug,
	})
}

func (l *Loaner) emitErr(message string, c *cmt.Cmt) {
	l.Ctx.Sink().Emit(diag.Diagnostic{
		Span:     c.Span,
		Message:  message,
		Severity: diag.SeverityErr,
	})
}

// GuaranteeValid is guarantee_valid(cmt, required_mutbl, region_r): can
// we promise the address denoted by cmt remains allocated and of
// mutability at least required for all of region r? If cmt.LoanPath is
// present the answer is proved statically by issuing loans into scope
// r (C2a, loan); otherwise stability is sought dynamically by walking
// ancestors for an immutable root, with one special power: a Gc deref
// can be rooted instead (C2b, preserve). Returns false (having emitted
// a diagnostic) if neither succeeds.
func (l *Loaner) GuaranteeValid(c *cmt.Cmt, required ir.Mutability, scope ir.ScopeID) bool {
	if c.LoanPath != nil {
		loans, err := l.loan(c, required)
		if err != nil {
			l.bug(err, *c)
			return false
		}
		for _, pl := range loans {
			l.Loans.Add(scope, pl.Path, pl.Cmt, pl.Mutbl)
		}
		return true
	}

	if !ir.SupMutbl(required, c.Mutbl) {
		l.emitErr(diag.MutblMismatch(required, c.Mutbl), c)
		return false
	}
	return l.preserve(c, scope)
}

// pendingLoan is one (path, cmt, mutbl) triple awaiting insertion into
// the region's loan map; loan() can return several when recursing
// through base components.
type pendingLoan struct {
	Path  *cmt.LoanPath
	Cmt   *cmt.Cmt
	Mutbl ir.Mutability
}

// loan is C2a: loan(cmt, req_mutbl) -> loans. Invariant: caller has
// checked cmt.LoanPath is non-nil.
func (l *Loaner) loan(c *cmt.Cmt, req ir.Mutability) ([]pendingLoan, error) {
	switch c.Category.Tag {
	case cmt.TagRvalue, cmt.TagMethod, cmt.TagStaticItem, cmt.TagSelfRef, cmt.TagHeapUpvar:
		return nil, errors.Errorf("loan: called on non-loanable category %s at expr %d", c.Category.Tag, c.ID)

	case cmt.TagLocal, cmt.TagArg, cmt.TagStackUpvar:
		return []pendingLoan{{Path: c.LoanPath, Cmt: c, Mutbl: req}}, nil

	case cmt.TagComp:
		switch c.Category.Component.Tag {
		case ir.CompField, ir.CompIndex, ir.CompTuple, ir.CompResource:
			// A component's type is stable if the base merely keeps
			// existing (Const); its content immutability additionally
			// requires the base be immutable (else the base could be
			// overwritten wholesale).
			baseReq := ir.Const
			if req == ir.Imm {
				baseReq = ir.Imm
			}
			baseLoans, err := l.loan(c.Category.Child, baseReq)
			if err != nil {
				return nil, err
			}
			return append(baseLoans, pendingLoan{Path: c.LoanPath, Cmt: c, Mutbl: req}), nil

		case ir.CompVariant:
			// Overwriting the base would change the variant, so the
			// base must be immutable, not merely const.
			baseLoans, err := l.loan(c.Category.Child, ir.Imm)
			if err != nil {
				return nil, err
			}
			return append(baseLoans, pendingLoan{Path: c.LoanPath, Cmt: c, Mutbl: req}), nil

		default:
			return nil, errors.Errorf("loan: unknown component kind at expr %d", c.ID)
		}

	case cmt.TagDeref:
		switch c.Category.PtrKind {
		case ir.Uniq:
			// Overwriting the owner would free the owned allocation, so
			// the base must be immutable.
			baseLoans, err := l.loan(c.Category.Child, ir.Imm)
			if err != nil {
				return nil, err
			}
			return append(baseLoans, pendingLoan{Path: c.LoanPath, Cmt: c, Mutbl: req}), nil

		default:
			return nil, errors.Errorf("loan: deref through aliased pointer kind %s has no loan path, at expr %d", c.Category.PtrKind, c.ID)
		}

	default:
		return nil, errors.Errorf("loan: unhandled category %s at expr %d", c.Category.Tag, c.ID)
	}
}

// preserve is C2b: preserve(cmt) -> ok, finding stability without
// issuing a loan. Invariant: caller has checked cmt.LoanPath is nil.
// scope is the region being guaranteed, used to root a Gc deref when
// bounded.
func (l *Loaner) preserve(c *cmt.Cmt, scope ir.ScopeID) bool {
	switch c.Category.Tag {
	case cmt.TagRvalue, cmt.TagMethod, cmt.TagStaticItem, cmt.TagSelfRef, cmt.TagArg:
		// Rvalue, Special(*), Arg (by mutable/region ref): trivially stable.
		return true

	case cmt.TagStackUpvar:
		return l.preserve(c.Category.Child, scope)

	case cmt.TagLocal:
		l.bug(errors.Errorf("preserve: called on a lendable local at expr %d", c.ID), *c)
		return false

	case cmt.TagComp:
		switch c.Category.Component.Tag {
		case ir.CompField, ir.CompIndex, ir.CompTuple, ir.CompResource:
			return l.preserve(c.Category.Child, scope)

		case ir.CompVariant:
			base := c.Category.Child
			if base.Mutbl != ir.Imm {
				l.emitErr(diag.ErrMutVariant.String(), c)
				return false
			}
			return l.preserve(base, scope)

		default:
			l.bug(errors.Errorf("preserve: unknown component kind at expr %d", c.ID), *c)
			return false
		}

	case cmt.TagDeref:
		switch c.Category.PtrKind {
		case ir.Uniq:
			base := c.Category.Child
			if base.Mutbl != ir.Imm {
				l.emitErr(diag.ErrMutUniq.String(), c)
				return false
			}
			return l.preserve(base, scope)

		case ir.Region, ir.Unsafe:
			return true

		case ir.Gc:
			if scope != ir.NoScopeID {
				l.Roots.Insert(c.ID, scope)
				return true
			}
			l.emitErr(diag.ErrPreserveGC.String(), c)
			return false

		default:
			l.bug(errors.Errorf("preserve: unknown pointer kind at expr %d", c.ID), *c)
			return false
		}

	case cmt.TagHeapUpvar:
		// Heap upvars carry no loan path, so borrowing one lands here;
		// like rvalues, they are treated as trivially stable.
		return true

	default:
		l.bug(errors.Errorf("preserve: unhandled category %s at expr %d", c.Category.Tag, c.ID), *c)
		return false
	}
}
