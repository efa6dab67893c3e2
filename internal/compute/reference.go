package compute

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/rs/zerolog"
)

// ReferenceProcess evaluates cells synchronously in the calling goroutine
// against a private namespace. Output is whatever print() wrote plus the value
// of a trailing expression; an error ends the cell with its message.
//
// Statements are one per line: `name = expression` binds a name, anything
// else is an expression. Lines starting with '#' are comments.
type ReferenceProcess struct {
	mu         sync.Mutex
	limits     ProcessLimits
	clock      func() time.Time
	log        zerolog.Logger
	started    bool
	startedAt  time.Time
	execNumber int
	env        map[string]any
	last       OutputStatus
	pending    bool
}

// ReferenceOption customizes a ReferenceProcess.
type ReferenceOption func(*ReferenceProcess)

// WithReferenceClock replaces time.Now.
func WithReferenceClock(clock func() time.Time) ReferenceOption {
	return func(p *ReferenceProcess) { p.clock = clock }
}

// WithReferenceLogger installs a logger.
func WithReferenceLogger(l zerolog.Logger) ReferenceOption {
	return func(p *ReferenceProcess) { p.log = l }
}

// NewReferenceProcess constructs a not-started ReferenceProcess.
func NewReferenceProcess(limits ProcessLimits, opts ...ReferenceOption) *ReferenceProcess {
	p := &ReferenceProcess{limits: limits.normalize(), clock: time.Now, log: zerolog.Nop()}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *ReferenceProcess) Variant() string { return VariantReference }

func (p *ReferenceProcess) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startLocked()
	return nil
}

func (p *ReferenceProcess) startLocked() {
	if p.started {
		return
	}
	p.started = true
	p.startedAt = p.clock()
	p.env = make(map[string]any)
	processesLive.Inc()
	processSpawnsTotal.WithLabelValues(VariantReference).Inc()
	p.log.Debug().Str("event", "spawn").Str("variant", VariantReference).Msg("compute process started")
}

func (p *ReferenceProcess) Execute(code, dataDir string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startLocked()
	p.execNumber++
	executionsTotal.WithLabelValues(VariantReference).Inc()
	p.last = OutputStatus{Text: p.run(code), Done: true}
	p.pending = true
	return nil
}

// Interrupt has nothing to do: executions finish inside Execute.
func (p *ReferenceProcess) Interrupt() error { return nil }

func (p *ReferenceProcess) Quit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quitLocked("quit")
}

func (p *ReferenceProcess) quitLocked(reason string) {
	if !p.started {
		return
	}
	p.started = false
	p.pending = false
	p.env = nil
	p.startedAt = time.Time{}
	processesLive.Dec()
	processQuitsTotal.WithLabelValues(reason).Inc()
	p.log.Debug().Str("event", "quit").Str("reason", reason).Msg("compute process stopped")
}

func (p *ReferenceProcess) IsStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// IsComputing is always false: Execute returns only after evaluation.
func (p *ReferenceProcess) IsComputing() bool { return false }

func (p *ReferenceProcess) PollOutput() OutputStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.pending {
		return OutputStatus{Done: true}
	}
	p.pending = false
	return p.last
}

func (p *ReferenceProcess) Update(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started && p.limits.expired(p.startedAt, now) {
		p.log.Info().Str("event", "wall_timeout").Int("max_wall_seconds", p.limits.MaxWallSeconds).Msg("compute process exceeded wall time")
		p.quitLocked("wall_timeout")
	}
}

func (p *ReferenceProcess) ExecNumber() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.execNumber
}

var assignRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*=([^=].*)$`)

func (p *ReferenceProcess) run(code string) string {
	var out strings.Builder
	opts := []expr.Option{
		expr.Env(p.env),
		expr.Function("print", func(params ...any) (any, error) {
			parts := make([]string, len(params))
			for i, v := range params {
				parts[i] = formatValue(v)
			}
			out.WriteString(strings.Join(parts, " "))
			out.WriteByte('\n')
			return nil, nil
		}),
		expr.Function("completions", func(params ...any) (any, error) {
			prefix := ""
			if len(params) > 0 {
				prefix = fmt.Sprint(params[0])
			}
			return p.completions(prefix), nil
		}),
		expr.Function("doc", func(params ...any) (any, error) {
			if len(params) == 0 {
				return "", nil
			}
			return p.doc(fmt.Sprint(params[0])), nil
		}),
	}
	lines := statements(code)
	for i, stmt := range lines {
		target := ""
		if m := assignRe.FindStringSubmatch(stmt); m != nil {
			target, stmt = m[1], strings.TrimSpace(m[2])
		}
		program, err := expr.Compile(stmt, opts...)
		if err != nil {
			fmt.Fprintf(&out, "Error: %v\n", err)
			break
		}
		v, err := expr.Run(program, p.env)
		if err != nil {
			fmt.Fprintf(&out, "Error: %v\n", err)
			break
		}
		if target != "" {
			p.env[target] = v
			continue
		}
		if i == len(lines)-1 && v != nil {
			out.WriteString(formatValue(v))
			out.WriteByte('\n')
		}
	}
	return out.String()
}

func (p *ReferenceProcess) completions(prefix string) string {
	names := make([]string, 0, len(p.env))
	for name := range p.env {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, "\n")
}

func (p *ReferenceProcess) doc(name string) string {
	v, ok := p.env[name]
	if !ok {
		return "No object named " + name
	}
	return fmt.Sprintf("%s: %T = %s", name, v, formatValue(v))
}

func statements(code string) []string {
	var out []string
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// ReferenceDialect pairs with ReferenceProcess. The process evaluates source
// directly, so Program and RunCommand are pass-through.
type ReferenceDialect struct{}

func (ReferenceDialect) Name() string                      { return "reference" }
func (ReferenceDialect) Prompt() string                    { return "" }
func (ReferenceDialect) InitCommands() []string            { return nil }
func (ReferenceDialect) FileExt() string                   { return "expr" }
func (ReferenceDialect) Program(_ int, code string) string { return code }
func (ReferenceDialect) RunCommand(_, _ string) string     { return "" }
func (ReferenceDialect) ExitCommand() string               { return "" }

func (ReferenceDialect) WrapSystem(system, code string) (string, error) {
	switch system {
	case "", "expr", "reference":
		return code, nil
	default:
		return "", UnknownSystemError{System: system}
	}
}

func (ReferenceDialect) Introspect(before, after string) string {
	if name, ok := docTarget(before); ok {
		return fmt.Sprintf("print(doc(%s))", strconv.Quote(name))
	}
	return fmt.Sprintf("print(completions(%s))", strconv.Quote(trailingName(before)))
}
