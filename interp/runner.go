package interp

import (
	"io"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/expand"
	"github.com/philipwilsonTHG/psh/lexer"
	"github.com/philipwilsonTHG/psh/parser"
)

// Builtin is a built-in command implementation: it runs in-process
// (unlike an external command, it never forks), reading/writing through
// r's current fd set. It returns the command's exit status and,
// following every other dispatch path in this package, a control-flow
// sentinel (ExitShell, FunctionReturn, LoopBreak, LoopContinue) or plain
// error rather than panicking one — see errors.go.
type Builtin func(r *Runner, args []string) (int, error)

// Runner is the executor: the teacher's interp.Runner generalized to
// dispatch over every ast.Command variant and to start real OS processes
// for external commands, including external pipeline stages; builtins,
// functions and compound commands in a pipeline run as goroutines.
type Runner struct {
	Vars *Vars
	Opts *Options

	Functions map[string]*ast.FunctionDef
	Builtins  map[string]Builtin
	Aliases   map[string]string
	Jobs      *JobTable
	Traps     *TrapTable

	Logger Logger

	parserConfig parser.Config

	stdin, stdout, stderr *os.File
	extraFDs              map[int]*os.File

	lineNo int

	// loopDepth/funcDepth let break/continue/return validate their
	// (optional) numeric argument against how many frames actually
	// enclose them.
	loopDepth int
	funcDepth int

	term termState
}

// NewRunner builds a Runner ready to execute scripts: stdio wired to the
// process's own fds, a fresh global scope, and the core builtins
// registered.
func NewRunner(scriptName string, args []string) *Runner {
	r := &Runner{
		Vars:      NewVars(scriptName, args, os.Getpid()),
		Opts:      &Options{},
		Functions: map[string]*ast.FunctionDef{},
		Builtins:  map[string]Builtin{},
		Aliases:   map[string]string{},
		Jobs:      NewJobTable(),
		Traps:     NewTrapTable(),
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		extraFDs:  map[int]*os.File{},
		parserConfig: parser.Config{
			Lexer: lexer.Config{ExtglobEnabled: true},
		},
	}
	registerBuiltins(r)
	r.seedEnvironment()
	return r
}

func (r *Runner) seedEnvironment() {
	for _, kv := range os.Environ() {
		name, val := splitEnv(kv)
		r.Vars.SetVar(name, &Variable{Attrs: AttrExport, Kind: expand.String, Str: val}, false)
	}
	if wd, err := os.Getwd(); err == nil {
		r.Vars.SetVar("PWD", &Variable{Attrs: AttrExport, Kind: expand.String, Str: wd}, false)
	}
	r.Vars.SetVar("IFS", &Variable{Kind: expand.String, Str: " \t\n"}, false)
}

func splitEnv(kv string) (string, string) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:]
		}
	}
	return kv, ""
}

func (r *Runner) fileForFd(fd int) *os.File {
	switch fd {
	case 0:
		return r.stdin
	case 1:
		return r.stdout
	case 2:
		return r.stderr
	default:
		return r.extraFDs[fd]
	}
}

// LastStatus returns $?, the exit status of the most recently completed
// command.
func (r *Runner) LastStatus() int { return r.Vars.LastStatus() }

// Run executes a parsed command list to completion, returning the exit
// status of the last command run and catching ExitShell if the script
// (or `exit`) unwound that far.
func (r *Runner) Run(cl *ast.CommandList) (status int, err error) {
	status, err = r.execList(cl)
	if es, ok := err.(ExitShell); ok {
		return es.Status, nil
	}
	if fr, ok := err.(FunctionReturn); ok {
		return fr.Status, nil
	}
	return status, err
}

func (r *Runner) execList(cl *ast.CommandList) (int, error) {
	status := 0
	for i, aol := range cl.Lists {
		if i < len(cl.Terms) && cl.Terms[i] == ast.TermAmp {
			r.runBackground(aol)
			status = 0
			r.Vars.lastStatus = status
			continue
		}
		s, err := r.execAndOr(aol)
		status = s
		r.Vars.lastStatus = status
		if err != nil {
			return status, err
		}
		if r.Opts.Errexit && status != 0 {
			return status, ExitShell{Status: status}
		}
	}
	return status, nil
}

// runBackground starts aol running asynchronously (`cmd &`) and records
// it in the job table, setting $!. A lone external SimpleCommand gets a
// real forked process (the common, job-control-visible case); anything
// more complex (a backgrounded pipeline or compound command) runs in a
// goroutine against a cloned Vars, since nothing in aol's tree beyond a
// single external command can be handed to os/exec directly.
func (r *Runner) runBackground(aol *ast.AndOrList) {
	if sc, ok := soleExternalCommand(aol); ok {
		if pid, ok := r.startBackgroundExternal(sc); ok {
			r.Vars.lastBgPID = pid
			return
		}
	}
	sub := r.subshellCopy()
	job := r.Jobs.newPseudoJob(aol)
	r.Vars.lastBgPID = job.PGID
	go func() {
		status, _ := sub.execAndOr(aol)
		r.Jobs.finish(job, status)
	}()
}

// soleExternalCommand reports whether aol is exactly one pipeline with
// exactly one un-negated SimpleCommand stage.
func soleExternalCommand(aol *ast.AndOrList) (*ast.SimpleCommand, bool) {
	if len(aol.Pipelines) != 1 {
		return nil, false
	}
	p := aol.Pipelines[0]
	if p.Negated || len(p.Commands) != 1 {
		return nil, false
	}
	sc, ok := p.Commands[0].(*ast.SimpleCommand)
	return sc, ok
}

func (r *Runner) execAndOr(a *ast.AndOrList) (int, error) {
	status, err := r.execPipeline(a.Pipelines[0])
	if err != nil {
		return status, err
	}
	for i, op := range a.Operators {
		if op == ast.LogicalAnd && status != 0 {
			continue
		}
		if op == ast.LogicalOr && status == 0 {
			continue
		}
		status, err = r.execPipeline(a.Pipelines[i+1])
		if err != nil {
			return status, err
		}
	}
	return status, nil
}

func (r *Runner) execPipeline(p *ast.Pipeline) (int, error) {
	status, err := r.runPipelineStages(p.Commands)
	if p.Negated {
		if status == 0 {
			status = 1
		} else {
			status = 0
		}
	}
	return status, err
}

// runPipelineStages runs p.Commands connected stdout-to-stdin, forking a
// real OS process for every stage that resolves to an external command
// and a goroutine over a real os.Pipe for every stage that is a builtin,
// function, or compound command — see DESIGN.md's "Dispatch core"
// entry for why a full per-stage fork isn't available to
// a Go program (no bare fork(2); only ForkExec, which fuses fork+exec).
func (r *Runner) runPipelineStages(cmds []ast.Command) (int, error) {
	if len(cmds) == 1 {
		return r.execCommand(cmds[0])
	}
	n := len(cmds)
	readers := make([]*os.File, n)
	writers := make([]*os.File, n)
	for i := 0; i < n-1; i++ {
		pr, pw, err := os.Pipe()
		if err != nil {
			return 1, err
		}
		readers[i+1] = pr
		writers[i] = pw
	}

	// Each stage runs in its own goroutine; an errgroup.Group is the
	// teacher's own device for this (interp/interp.go's bgShells
	// errgroup.Group) for waiting on a set of concurrently-running
	// stages and surfacing the first one that errors.
	statuses := make([]int, n)
	var eg errgroup.Group
	var exitErr error
	var exitMu sync.Mutex
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			sub := r.stageRunner(readers[i], writers[i])
			status, err := sub.execCommand(cmds[i])
			statuses[i] = status
			if readers[i] != nil {
				readers[i].Close()
			}
			if writers[i] != nil {
				writers[i].Close()
			}
			if es, ok := err.(ExitShell); ok {
				exitMu.Lock()
				exitErr = es
				exitMu.Unlock()
				return nil
			}
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return statuses[n-1], err
	}
	if exitErr != nil {
		return statuses[n-1], exitErr
	}
	if r.Opts.Pipefail {
		for _, s := range statuses {
			if s != 0 {
				return s, nil
			}
		}
	}
	return statuses[n-1], nil
}

// stageRunner returns a Runner sharing r's variable table and options
// but with stdin/stdout swapped to the pipeline stage's ends (nil means
// "keep r's own", for the first/last stage).
func (r *Runner) stageRunner(in, out *os.File) *Runner {
	sub := *r
	if in != nil {
		sub.stdin = in
	}
	if out != nil {
		sub.stdout = out
	}
	return &sub
}

func (r *Runner) execCommand(cmd ast.Command) (int, error) {
	switch c := cmd.(type) {
	case *ast.SimpleCommand:
		return r.execSimpleCommand(c)
	case *ast.Pipeline:
		return r.execPipeline(c)
	case *ast.IfConditional:
		return r.execIf(c)
	case *ast.WhileLoop:
		return r.execWhile(c, false)
	case *ast.UntilLoop:
		return r.execWhile(untilAsWhile(c), true)
	case *ast.ForLoop:
		return r.execFor(c)
	case *ast.CStyleForLoop:
		return r.execCStyleFor(c)
	case *ast.SelectLoop:
		return r.execSelect(c)
	case *ast.CaseStatement:
		return r.execCase(c)
	case *ast.FunctionDef:
		r.Functions[c.Name] = c
		return 0, nil
	case *ast.SubshellGroup:
		return r.execSubshell(c)
	case *ast.BraceGroup:
		return r.withRedirects(c.Redirects, func() (int, error) { return r.execList(c.Body) })
	case *ast.EnhancedTest:
		return r.withRedirects(c.Redirects, func() (int, error) {
			ok, err := r.evalTest(c.Expression)
			if err != nil {
				return 2, err
			}
			if ok {
				return 0, nil
			}
			return 1, nil
		})
	case *ast.ArithmeticCommand:
		return r.withRedirects(c.Redirects, func() (int, error) {
			v, err := r.evalArithCommand(c.Expr)
			if err != nil {
				return 1, err
			}
			if v == 0 {
				return 1, nil
			}
			return 0, nil
		})
	default:
		return 1, errf(1, "unsupported command %T", cmd)
	}
}

// withRedirects applies rs for the duration of fn, always restoring
// (and closing any opened files) afterward, per spec.md §5's
// every-redirect-undone-once invariant.
func (r *Runner) withRedirects(rs []*ast.Redirect, fn func() (int, error)) (int, error) {
	if len(rs) == 0 {
		return fn()
	}
	saved, opened, err := r.applyRedirects(rs)
	if err != nil {
		return 1, err
	}
	status, rerr := fn()
	r.restoreFDs(saved)
	for _, f := range opened {
		f.Close()
	}
	if rerr != nil {
		return status, rerr
	}
	return status, nil
}

func (r *Runner) execIf(c *ast.IfConditional) (int, error) {
	return r.withRedirects(c.Redirects, func() (int, error) {
		status, err := r.execList(c.Condition)
		if err != nil {
			return status, err
		}
		if status == 0 {
			return r.execList(c.Then)
		}
		for _, el := range c.Elifs {
			status, err = r.execList(el.Condition)
			if err != nil {
				return status, err
			}
			if status == 0 {
				return r.execList(el.Then)
			}
		}
		if c.Else != nil {
			return r.execList(c.Else)
		}
		return 0, nil
	})
}

// untilAsWhile lets UntilLoop share WhileLoop's exec path: the until
// flag passed to execWhile negates the condition's truth test.
func untilAsWhile(u *ast.UntilLoop) *ast.WhileLoop {
	return &ast.WhileLoop{StartPos: u.StartPos, EndPos: u.EndPos, Condition: u.Condition, Body: u.Body, Compound: u.Compound}
}

func (r *Runner) execWhile(c *ast.WhileLoop, until bool) (int, error) {
	return r.withRedirects(c.Redirects, func() (int, error) {
		status := 0
		r.loopDepth++
		defer func() { r.loopDepth-- }()
		for {
			cs, err := r.execList(c.Condition)
			if err != nil {
				return cs, err
			}
			truth := cs == 0
			if until {
				truth = cs != 0
			}
			if !truth {
				break
			}
			status, err = r.execList(c.Body)
			if err != nil {
				if brk, ok := err.(LoopBreak); ok {
					if brk.N > 1 {
						return status, LoopBreak{N: brk.N - 1}
					}
					break
				}
				if cont, ok := err.(LoopContinue); ok {
					if cont.N > 1 {
						return status, LoopContinue{N: cont.N - 1}
					}
					continue
				}
				return status, err
			}
		}
		return status, nil
	})
}

func (r *Runner) execFor(c *ast.ForLoop) (int, error) {
	return r.withRedirects(c.Redirects, func() (int, error) {
		var words []string
		var err error
		if c.HasIn {
			words, err = r.expandWords(c.Words)
			if err != nil {
				return 1, err
			}
		} else {
			words = r.Vars.Positional()
		}
		status := 0
		r.loopDepth++
		defer func() { r.loopDepth-- }()
		for _, w := range words {
			r.Vars.SetVar(c.Var, &Variable{Kind: expand.String, Str: w}, false)
			status, err = r.execList(c.Body)
			if err != nil {
				if brk, ok := err.(LoopBreak); ok {
					if brk.N > 1 {
						return status, LoopBreak{N: brk.N - 1}
					}
					break
				}
				if cont, ok := err.(LoopContinue); ok {
					if cont.N > 1 {
						return status, LoopContinue{N: cont.N - 1}
					}
					continue
				}
				return status, err
			}
		}
		return status, nil
	})
}

func (r *Runner) execSelect(c *ast.SelectLoop) (int, error) {
	return r.withRedirects(c.Redirects, func() (int, error) {
		var words []string
		var err error
		if c.HasIn {
			words, err = r.expandWords(c.Words)
			if err != nil {
				return 1, err
			}
		} else {
			words = r.Vars.Positional()
		}
		ps3 := r.Vars.Get("PS3").String()
		if ps3 == "" {
			ps3 = "#? "
		}
		status := 0
		r.loopDepth++
		defer func() { r.loopDepth-- }()
		for {
			for i, w := range words {
				io.WriteString(r.stderr, itoaFor(i+1)+") "+w+"\n")
			}
			io.WriteString(r.stderr, ps3)
			line, ok := readLine(r.stdin)
			if !ok {
				break
			}
			idx := atoiFor(line)
			reply := ""
			if idx >= 1 && idx <= len(words) {
				reply = words[idx-1]
			}
			r.Vars.SetVar("REPLY", &Variable{Kind: expand.String, Str: line}, false)
			r.Vars.SetVar(c.Var, &Variable{Kind: expand.String, Str: reply}, false)
			status, err = r.execList(c.Body)
			if err != nil {
				if brk, ok := err.(LoopBreak); ok {
					if brk.N > 1 {
						return status, LoopBreak{N: brk.N - 1}
					}
					break
				}
				if cont, ok := err.(LoopContinue); ok {
					if cont.N > 1 {
						return status, LoopContinue{N: cont.N - 1}
					}
					continue
				}
				return status, err
			}
		}
		return status, nil
	})
}

func (r *Runner) execCStyleFor(c *ast.CStyleForLoop) (int, error) {
	return r.withRedirects(c.Redirects, func() (int, error) {
		if c.Init != nil {
			if _, err := r.evalArithCommand(c.Init); err != nil {
				return 1, err
			}
		}
		status := 0
		r.loopDepth++
		defer func() { r.loopDepth-- }()
		for {
			if c.Cond != nil {
				v, err := r.evalArithCommand(c.Cond)
				if err != nil {
					return status, err
				}
				if v == 0 {
					break
				}
			}
			var err error
			status, err = r.execList(c.Body)
			if err != nil {
				if brk, ok := err.(LoopBreak); ok {
					if brk.N > 1 {
						return status, LoopBreak{N: brk.N - 1}
					}
					break
				}
				if cont, ok := err.(LoopContinue); ok {
					if cont.N > 1 {
						return status, LoopContinue{N: cont.N - 1}
					}
				} else {
					return status, err
				}
			}
			if c.Update != nil {
				if _, err := r.evalArithCommand(c.Update); err != nil {
					return status, err
				}
			}
		}
		return status, nil
	})
}

func (r *Runner) execCase(c *ast.CaseStatement) (int, error) {
	return r.withRedirects(c.Redirects, func() (int, error) {
		subj, err := r.expandLiteral(c.Word)
		if err != nil {
			return 1, err
		}
		status := 0
		matched := false
		for _, item := range c.Items {
			if !matched {
				for _, pw := range item.Patterns {
					pat, globOK, err := expandPatternWord(r, pw)
					if err != nil {
						return 1, err
					}
					ok, err := matchCasePattern(pat, subj, globOK)
					if err != nil {
						return 1, err
					}
					if ok {
						matched = true
						break
					}
				}
			}
			if matched {
				status, err = r.execList(item.Body)
				if err != nil {
					return status, err
				}
				if item.Terminator == ast.CaseEnd {
					return status, nil
				}
				if item.Terminator == ast.CaseFallthrough {
					matched = true
					continue
				}
				// ;;&: keep matching against subsequent patterns
				matched = false
			}
		}
		return status, nil
	})
}

func (r *Runner) execSubshell(c *ast.SubshellGroup) (int, error) {
	return r.withRedirects(c.Redirects, func() (int, error) {
		sub := r.subshellCopy()
		status, err := sub.execList(c.Body)
		if es, ok := err.(ExitShell); ok {
			return es.Status, nil
		}
		return status, err
	})
}

// subshellCopy returns a Runner for subshell/command-substitution
// execution: a cloned variable table (so assignments don't escape) but
// the same Functions/Builtins/Jobs/fd set, per spec.md §5.
func (r *Runner) subshellCopy() *Runner {
	sub := *r
	sub.Vars = r.Vars.Clone()
	optsCopy := *r.Opts
	sub.Opts = &optsCopy
	return &sub
}
