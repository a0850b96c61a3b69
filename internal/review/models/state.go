package models

// Decision is the compliance-axis state of a subject.
type Decision string

const (
	DecisionNone                   Decision = "none"
	DecisionPending                Decision = "pending"
	DecisionApproved               Decision = "approved"
	DecisionApprovedWithConditions Decision = "approved_with_conditions"
	DecisionRejected               Decision = "rejected"
	DecisionConditionsCompleted    Decision = "conditions_completed"
)

// transitions are the edges reachable through ordinary operations.
var transitions = map[Decision][]Decision{
	DecisionNone:                   {DecisionPending},
	DecisionPending:                {DecisionApproved, DecisionApprovedWithConditions, DecisionRejected},
	DecisionApprovedWithConditions: {DecisionConditionsCompleted},
	DecisionConditionsCompleted:    {DecisionApproved, DecisionRejected},
}

// reopenable decisions may be cycled back to pending by an overturned appeal.
var reopenable = map[Decision]bool{
	DecisionRejected:               true,
	DecisionApprovedWithConditions: true,
}

func (d Decision) String() string { return string(d) }

func (d Decision) IsValid() bool {
	switch d {
	case DecisionNone, DecisionPending, DecisionApproved, DecisionApprovedWithConditions,
		DecisionRejected, DecisionConditionsCompleted:
		return true
	}
	return false
}

// IsOutcome reports whether d may be recorded by a reviewer.
func (d Decision) IsOutcome() bool {
	return d == DecisionApproved || d == DecisionApprovedWithConditions || d == DecisionRejected
}

// CanTransitionTo reports whether next is an ordinary edge from d.
func (d Decision) CanTransitionTo(next Decision) bool {
	for _, allowed := range transitions[d] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsAppealable reports whether an appeal may be filed against d.
func (d Decision) IsAppealable() bool {
	return reopenable[d]
}

// IsEdge reports whether from → to appears anywhere in the state graph,
// including the appeal reopen edge. Used to validate replayed streams.
func IsEdge(from, to Decision) bool {
	if from == to {
		return true
	}
	if from.CanTransitionTo(to) {
		return true
	}
	return to == DecisionPending && reopenable[from]
}

// LifecycleStatus is the business-visible status owned by the CRUD collaborator.
type LifecycleStatus string

const (
	StatusDraft     LifecycleStatus = "draft"
	StatusActive    LifecycleStatus = "active"
	StatusCancelled LifecycleStatus = "cancelled"
)

func (s LifecycleStatus) IsValid() bool {
	return s == StatusDraft || s == StatusActive || s == StatusCancelled
}

// CanTransitionTo allows draft → active → cancelled and draft → cancelled.
// Cancelled is terminal.
func (s LifecycleStatus) CanTransitionTo(next LifecycleStatus) bool {
	switch s {
	case StatusDraft:
		return next == StatusActive || next == StatusCancelled
	case StatusActive:
		return next == StatusCancelled
	}
	return false
}

// AppealStatus tracks one appeal.
type AppealStatus string

const (
	AppealSubmitted  AppealStatus = "submitted"
	AppealUpheld     AppealStatus = "upheld"
	AppealOverturned AppealStatus = "overturned"
)

// IsResolution reports whether s closes an appeal.
func (s AppealStatus) IsResolution() bool {
	return s == AppealUpheld || s == AppealOverturned
}
