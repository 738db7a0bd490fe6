package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/intent"
)

// DefaultTimeout bounds a single tool execution.
const DefaultTimeout = 2 * time.Second

// Registry holds the registered tools and executes them in isolation.
type Registry struct {
	mu          sync.RWMutex
	tools       map[ID]Tool
	suggestions map[intent.Name][]ID
	timeout     time.Duration
	log         zerolog.Logger

	statsMu sync.Mutex
	stats   Stats
}

// Stats tracks tool execution metrics.
type Stats struct {
	TotalExecutions int64         `json:"total_executions"`
	SuccessCount    int64         `json:"success_count"`
	FailureCount    int64         `json:"failure_count"`
	TimeoutCount    int64         `json:"timeout_count"`
	TotalDuration   time.Duration `json:"total_duration_ns"`
}

// Option configures the Registry.
type Option func(*Registry)

// WithTimeout sets the per-tool execution timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithSuggestions sets the static intent to tool table.
func WithSuggestions(table map[intent.Name][]ID) Option {
	return func(r *Registry) {
		r.suggestions = make(map[intent.Name][]ID, len(table))
		for name, ids := range table {
			r.suggestions[name] = append([]ID(nil), ids...)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) {
		r.log = l
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools:       make(map[ID]Tool),
		suggestions: make(map[intent.Name][]ID),
		timeout:     DefaultTimeout,
		log:         log.With().Str("component", "tools").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool, replacing any tool with the same id.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.ID()] = tool
}

// Unregister removes a tool. Unknown ids are ignored.
func (r *Registry) Unregister(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, id)
}

// Get returns a registered tool by id.
func (r *Registry) Get(id ID) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[id]
	return t, ok
}

// List returns all tools sorted by id.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sortTools(out)
	return out
}

// ListByType returns the tools of one category sorted by id.
func (r *Registry) ListByType(c Category) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Tool
	for _, t := range r.tools {
		if t.Category() == c {
			out = append(out, t)
		}
	}
	sortTools(out)
	return out
}

// CountByType returns the number of registered tools per category.
func (r *Registry) CountByType() map[Category]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[Category]int)
	for _, t := range r.tools {
		counts[t.Category()]++
	}
	return counts
}

// Suggest returns the candidate tools for an intent, in table order.
// Ids that are not currently registered are left out.
func (r *Registry) Suggest(name intent.Name) []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ID
	for _, id := range r.suggestions[name] {
		if _, ok := r.tools[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func sortTools(ts []Tool) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].ID() < ts[j].ID() })
}

type outcome struct {
	data Data
	err  error
}

// Execute validates params and runs the tool with the registry timeout.
// It never returns a Go error: every failure, including a panic in the tool
// body, becomes a Result with Success false.
func (r *Registry) Execute(ctx context.Context, id ID, params Params, ec ExecutionContext) Result {
	start := time.Now()

	tool, ok := r.Get(id)
	if !ok {
		return r.fail(id, start, fmt.Errorf("%w: %s", ErrUnknownTool, id))
	}

	resolved, missing := resolveParams(tool.Parameters(), params)
	if len(missing) > 0 {
		return r.fail(id, start, fmt.Errorf("%w: %s", ErrMissingParams, strings.Join(missing, ", ")))
	}

	r.mu.RLock()
	timeout := r.timeout
	r.mu.RUnlock()

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("tool panicked: %v", rec)}
			}
		}()
		data, err := tool.Execute(execCtx, resolved, ec)
		done <- outcome{data: data, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return r.fail(id, start, out.err)
		}
		r.record(start, true, false)
		return Result{Tool: id, Success: true, Data: out.data, Duration: time.Since(start)}
	case <-execCtx.Done():
		err := execCtx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return r.fail(id, start, err)
	}
}

// SetTimeout changes the per-tool timeout.
func (r *Registry) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	r.timeout = d
	r.mu.Unlock()
}

func (r *Registry) fail(id ID, start time.Time, err error) Result {
	r.record(start, false, errors.Is(err, ErrTimeout))
	r.log.Warn().Str("tool", string(id)).Err(err).Msg("tool execution failed")
	return Result{Tool: id, Success: false, Error: err.Error(), Duration: time.Since(start)}
}

func (r *Registry) record(start time.Time, success, timedOut bool) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	r.stats.TotalExecutions++
	r.stats.TotalDuration += time.Since(start)
	if success {
		r.stats.SuccessCount++
	} else {
		r.stats.FailureCount++
	}
	if timedOut {
		r.stats.TimeoutCount++
	}
}

// resolveParams applies defaults and reports missing required parameters in
// spec order. The caller's map is never modified.
func resolveParams(spec []ParameterSpec, params Params) (Params, []string) {
	resolved := make(Params, len(params)+len(spec))
	for k, v := range params {
		resolved[k] = v
	}

	var missing []string
	for _, p := range spec {
		if v, ok := resolved[p.Name]; ok && v != nil {
			continue
		}
		if p.Default != nil {
			resolved[p.Name] = p.Default
			continue
		}
		if p.Required {
			missing = append(missing, p.Name)
		}
	}
	return resolved, missing
}

// Stats returns execution statistics.
func (r *Registry) Stats() Stats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return r.stats
}

// SuccessRate returns the success rate as a percentage.
func (s Stats) SuccessRate() float64 {
	if s.TotalExecutions == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.TotalExecutions) * 100
}

// AvgDuration returns the average execution duration.
func (s Stats) AvgDuration() time.Duration {
	if s.TotalExecutions == 0 {
		return 0
	}
	return time.Duration(int64(s.TotalDuration) / s.TotalExecutions)
}
