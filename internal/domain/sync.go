package domain

import "time"

// ActionType represents the kind of provider write a classified event needs
type ActionType string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
	ActionSkip   ActionType = "skip"

	// OpList marks a rule-level fetch failure in a Failure record;
	// it is never planned as an action
	OpList ActionType = "list"
)

// Action is a single classified operation in a sync plan
type Action struct {
	// Type of action to perform
	Type ActionType

	// Event is the source event (zero value for delete, which only
	// knows the mapping)
	Event Event

	// Mapping is the existing entry driving an update or delete
	// (nil for create)
	Mapping *Mapping

	// Reason explains why this action was chosen
	Reason string
}

// Plan is the differencer's classification of one rule's source events
// against stored mapping state
type Plan struct {
	// RuleID identifies which rule generated this plan
	RuleID string

	// Creates, Updates and Deletes are executed by the sync executor
	Creates []Action
	Updates []Action
	Deletes []Action

	// Unchanged counts events that need no provider call
	Unchanged int

	// Skipped counts source records rejected before classification
	// (malformed, filtered out)
	Skipped int
}

// Total returns the number of provider writes the plan requires
func (p Plan) Total() int {
	return len(p.Creates) + len(p.Updates) + len(p.Deletes)
}

// Failure records one per-event error with enough identity to diagnose
// and re-run
type Failure struct {
	RuleID        string
	SourceEventID string
	Op            ActionType
	Err           error
}

// RuleResult aggregates one rule's outcome within a run
type RuleResult struct {
	RuleID    string
	Created   int
	Updated   int
	Deleted   int
	Unchanged int
	Skipped   int
	Failures  []Failure
}

// Failed returns true if any per-event action failed
func (r RuleResult) Failed() bool {
	return len(r.Failures) > 0
}

// RunResult aggregates a whole sync pass across all rules, in
// declaration order
type RunResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Rules      []RuleResult
}

// Failures collects every per-event failure across rules
func (r RunResult) Failures() []Failure {
	var all []Failure
	for _, rr := range r.Rules {
		all = append(all, rr.Failures...)
	}
	return all
}
