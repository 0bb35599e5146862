// Package progress reports per-rule sync progress to the console or a
// callback, independent of the structured log.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/imyu7/calendar-sync/internal/domain"
)

// Reporter receives sync progress as a run executes
type Reporter interface {
	// RunStart begins tracking a run covering the given rules
	RunStart(runID string, ruleCount int)
	// RuleStart begins tracking one rule
	RuleStart(ruleID string, plan domain.Plan)
	// Action reports one executed action
	Action(ruleID string, op domain.ActionType, summary string)
	// RuleDone marks a rule as finished
	RuleDone(result domain.RuleResult)
	// RunDone marks the run as finished
	RunDone(result domain.RunResult)
}

// Callback is a function that receives progress updates
type Callback func(update Update)

// Update represents a progress update
type Update struct {
	Type      UpdateType
	RunID     string
	RuleID    string
	RuleCount int
	Op        domain.ActionType
	Summary   string
	Plan      domain.Plan
	Rule      domain.RuleResult
	Run       domain.RunResult
}

// UpdateType indicates the type of progress update
type UpdateType int

const (
	UpdateRunStart UpdateType = iota
	UpdateRuleStart
	UpdateAction
	UpdateRuleDone
	UpdateRunDone
)

// CallbackReporter implements Reporter with a callback function
type CallbackReporter struct {
	callback Callback
	mu       sync.Mutex
}

// NewCallbackReporter creates a new CallbackReporter
func NewCallbackReporter(callback Callback) *CallbackReporter {
	return &CallbackReporter{callback: callback}
}

func (r *CallbackReporter) emit(update Update) {
	r.mu.Lock()
	callback := r.callback
	r.mu.Unlock()

	// Call callback outside lock to prevent deadlock
	if callback != nil {
		callback(update)
	}
}

func (r *CallbackReporter) RunStart(runID string, ruleCount int) {
	r.emit(Update{Type: UpdateRunStart, RunID: runID, RuleCount: ruleCount})
}

func (r *CallbackReporter) RuleStart(ruleID string, plan domain.Plan) {
	r.emit(Update{Type: UpdateRuleStart, RuleID: ruleID, Plan: plan})
}

func (r *CallbackReporter) Action(ruleID string, op domain.ActionType, summary string) {
	r.emit(Update{Type: UpdateAction, RuleID: ruleID, Op: op, Summary: summary})
}

func (r *CallbackReporter) RuleDone(result domain.RuleResult) {
	r.emit(Update{Type: UpdateRuleDone, RuleID: result.RuleID, Rule: result})
}

func (r *CallbackReporter) RunDone(result domain.RunResult) {
	r.emit(Update{Type: UpdateRunDone, RunID: result.RunID, Run: result})
}

// ConsoleReporter prints human-readable progress lines
type ConsoleReporter struct {
	mu    sync.Mutex
	out   io.Writer
	start time.Time
}

// NewConsoleReporter creates a reporter writing to out
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

func (r *ConsoleReporter) RunStart(runID string, ruleCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start = time.Now()
	fmt.Fprintf(r.out, "Starting sync run %s (%d rules)\n", runID, ruleCount)
}

func (r *ConsoleReporter) RuleStart(ruleID string, plan domain.Plan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "  %s: %d to create, %d to update, %d to delete, %d unchanged\n",
		ruleID, len(plan.Creates), len(plan.Updates), len(plan.Deletes), plan.Unchanged)
}

func (r *ConsoleReporter) Action(ruleID string, op domain.ActionType, summary string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "    %-6s %s\n", op, summary)
}

func (r *ConsoleReporter) RuleDone(result domain.RuleResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if result.Failed() {
		fmt.Fprintf(r.out, "  %s: done with %d failures (created %d, updated %d, deleted %d)\n",
			result.RuleID, len(result.Failures), result.Created, result.Updated, result.Deleted)
		return
	}
	fmt.Fprintf(r.out, "  %s: done (created %d, updated %d, deleted %d)\n",
		result.RuleID, result.Created, result.Updated, result.Deleted)
}

func (r *ConsoleReporter) RunDone(result domain.RunResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	elapsed := time.Since(r.start).Round(time.Millisecond)
	failures := len(result.Failures())
	if failures > 0 {
		fmt.Fprintf(r.out, "Run %s finished in %s with %d failures\n", result.RunID, elapsed, failures)
		return
	}
	fmt.Fprintf(r.out, "Run %s finished in %s\n", result.RunID, elapsed)
}

// NullReporter is a no-op reporter
type NullReporter struct{}

func (NullReporter) RunStart(runID string, ruleCount int)                       {}
func (NullReporter) RuleStart(ruleID string, plan domain.Plan)                  {}
func (NullReporter) Action(ruleID string, op domain.ActionType, summary string) {}
func (NullReporter) RuleDone(result domain.RuleResult)                          {}
func (NullReporter) RunDone(result domain.RunResult)                            {}

var (
	_ Reporter = (*CallbackReporter)(nil)
	_ Reporter = (*ConsoleReporter)(nil)
	_ Reporter = NullReporter{}
)
