// Package pass wires the categorizer, loaner, and gather/check driver
// into the single entry point a compiler driver calls once per
// compilation unit, the way a production pass pipeline's top-level
// package exposes one Run function over the whole pipeline it
// otherwise keeps internal.
package pass

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/arborlang/borrowck/pkg/check"
	"github.com/arborlang/borrowck/pkg/cmt"
	"github.com/arborlang/borrowck/pkg/diag"
	"github.com/arborlang/borrowck/pkg/ir"
	"github.com/arborlang/borrowck/pkg/loan"
	"github.com/arborlang/borrowck/pkg/typectx"
)

// MsgLevelEnv is the environment variable read once at CLI startup to
// override Config.MsgLevel, for users who want the knob available
// without touching their build's flag wiring.
const MsgLevelEnv = "ARBOR_BORROWCK_MSG_LEVEL"

// Config is the pass's configuration, built once per invocation and
// never mutated afterward.
type Config struct {
	// MsgLevel: 0 disables loan-gathering, 1 and 2 both run the full
	// pass; at 1, Run reports every error diagnostic as a warning, and
	// the output maps are the same as at 2. Default 2; the original
	// implementation defaulted to 0, which disabled the pass.
	MsgLevel int

	// TreatConstAsImm models by-reference arguments as immutable rather
	// than const, strengthening the guarantees callers can rely on.
	TreatConstAsImm bool

	// Log receives structured progress records at phase boundaries. A
	// nil Log falls back to logrus's package-level standard logger.
	Log *logrus.Logger
}

// DefaultConfig returns the pass's defaults, then applies MsgLevelEnv if
// set and parseable.
func DefaultConfig() Config {
	cfg := Config{MsgLevel: 2, TreatConstAsImm: true}
	if v, ok := os.LookupEnv(MsgLevelEnv); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 2 {
			cfg.MsgLevel = n
		}
	}
	return cfg
}

// Result is everything Run produces: the two output maps, root_map and
// mutbl_map, plus every diagnostic recorded along the way.
type Result struct {
	Roots loan.RootMap
	Mutbl loan.MutblMap
	Diags []diag.Diagnostic
}

// Run checks every function of prog against ctx, returning the combined
// output maps and diagnostic batch. Diagnostics are recorded in a
// Recorder regardless of ctx.Sink(), so Result.Diags always reflects
// the full run even if ctx.Sink() is a logging sink with no memory.
func Run(cfg Config, ctx typectx.Context, prog *ir.Program) Result {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	rec := &diag.Recorder{}
	recording := &recordingContext{Context: ctx, rec: rec, warnOnly: cfg.MsgLevel == 1}

	cat := cmt.New(recording, cfg.TreatConstAsImm)
	roots := loan.NewRootMap()
	mutbl := loan.NewMutblMap()
	loans := loan.NewMap()
	p := check.NewPass(recording, cat, loans, roots, mutbl, cfg.MsgLevel)

	for _, fn := range prog.Functions {
		entry := log.WithFields(logrus.Fields{
			"function":  fn.Name,
			"msg_level": cfg.MsgLevel,
		})
		entry.Debug("borrowck: checking function")

		ok := p.CheckFunction(fn)

		entry.WithField("loans_gathered", len(p.Loans.NewAt(fn.Scope))).Debug("borrowck: function checked")
		if !ok {
			entry.Error("borrowck: function aborted on internal error")
		}
	}

	return Result{Roots: roots, Mutbl: mutbl, Diags: rec.Diagnostics}
}

// recordingContext wraps a typectx.Context so every diagnostic passes
// through rec regardless of what Sink the caller's Context itself
// returns — Run always gets the full batch back, while the caller's own
// sink (e.g. a LogrusSink) still sees every diagnostic too. With
// warnOnly set (msg_level 1), both see errors as warnings.
type recordingContext struct {
	typectx.Context
	rec      *diag.Recorder
	warnOnly bool
}

func (r *recordingContext) Sink() diag.Sink {
	return teeSink{a: r.rec, b: r.Context.Sink(), warnOnly: r.warnOnly}
}

type teeSink struct {
	a, b     diag.Sink
	warnOnly bool
}

func (t teeSink) Emit(d diag.Diagnostic) {
	if t.warnOnly && d.Severity == diag.SeverityErr {
		d.Severity = diag.SeverityWarn
	}
	t.a.Emit(d)
	if t.b != nil {
		t.b.Emit(d)
	}
}
