package interp

import (
	"go.uber.org/zap"

	"github.com/philipwilsonTHG/psh/ast"
)

// Logger wraps a zap.SugaredLogger with the handful of debug surfaces
// spec.md §6's --debug-tokens/--debug-ast/--debug-exec/--metrics flags
// need. A zero Logger is valid and silent, so Runner always has one.
type Logger struct {
	sugar     *zap.SugaredLogger
	tokens    bool
	ast       bool
	exec      bool
	metrics   bool
	counts    map[string]int
}

// NewLogger builds a development zap logger (human-readable console
// output, per the teacher's own preference for readable CLI output
// over structured JSON) gated by the individual debug flags from the
// cmd/psh CLI.
func NewLogger(debugTokens, debugAST, debugExec, metrics bool) *Logger {
	if !debugTokens && !debugAST && !debugExec && !metrics {
		return &Logger{}
	}
	zl, err := zap.NewDevelopment()
	if err != nil {
		zl = zap.NewNop()
	}
	return &Logger{
		sugar:   zl.Sugar(),
		tokens:  debugTokens,
		ast:     debugAST,
		exec:    debugExec,
		metrics: metrics,
		counts:  map[string]int{},
	}
}

func (l *Logger) Tokens(kind string, lit string) {
	if l == nil || !l.tokens || l.sugar == nil {
		return
	}
	l.sugar.Debugw("token", "kind", kind, "text", lit)
}

func (l *Logger) AST(label string, node ast.Command) {
	if l == nil || !l.ast || l.sugar == nil {
		return
	}
	l.sugar.Debugw("ast", "label", label, "node", node)
}

func (l *Logger) Exec(args []string) {
	if l == nil || !l.exec || l.sugar == nil {
		return
	}
	l.sugar.Debugw("exec", "argv", args)
}

// Metric bumps a named counter (commands run, pipelines forked, globs
// matched, ...) reported at exit when --metrics is set.
func (l *Logger) Metric(name string) {
	if l == nil || !l.metrics {
		return
	}
	l.counts[name]++
}

// Report flushes the --metrics counters, if enabled.
func (l *Logger) Report() {
	if l == nil || !l.metrics || l.sugar == nil {
		return
	}
	for name, n := range l.counts {
		l.sugar.Infow("metric", "name", name, "count", n)
	}
}

func (l *Logger) Sync() {
	if l == nil || l.sugar == nil {
		return
	}
	_ = l.sugar.Sync()
}

// traceExec implements `set -x`: each simple command is written to
// stderr prefixed with the current PS4-equivalent ("+ "), per spec.md
// §4.P's Xtrace option, in addition to any --debug-exec logging.
func (r *Runner) traceExec(args []string) {
	r.Logger.Exec(args)
	if !r.Opts.Xtrace {
		return
	}
	line := "+"
	for _, a := range args {
		line += " " + a
	}
	r.stderr.Write([]byte(line + "\n"))
}
