package domain

// OutcomeStatus tags the terminal result of one pipeline run.
type OutcomeStatus string

const (
	OutcomeMaterialized OutcomeStatus = "materialized"
	OutcomeIncomplete   OutcomeStatus = "incomplete"
	OutcomeError        OutcomeStatus = "error"
	OutcomeSkipped      OutcomeStatus = "skipped"
)

// Outcome is the tagged result every pipeline operation returns. Callers must
// inspect Status; a Success log entry is only reachable from the Materialized
// arm, so "no error raised" can never masquerade as success.
type Outcome struct {
	Status         OutcomeStatus
	ExternalID     string
	OrderID        string // backend order reference when materialized
	AlreadyExisted bool   // duplicate delivery resolved to an existing order
	UnresolvedSKUs []string
	Reason         string
	Err            error
}

// MaterializedOutcome reports a verified, durable order.
func MaterializedOutcome(externalID, orderID string, alreadyExisted bool) Outcome {
	return Outcome{
		Status:         OutcomeMaterialized,
		ExternalID:     externalID,
		OrderID:        orderID,
		AlreadyExisted: alreadyExisted,
	}
}

// IncompleteOutcome reports an event that cannot be materialized yet, naming
// what blocked it. No order exists for it.
func IncompleteOutcome(externalID, reason string, unresolvedSKUs []string) Outcome {
	return Outcome{
		Status:         OutcomeIncomplete,
		ExternalID:     externalID,
		Reason:         reason,
		UnresolvedSKUs: unresolvedSKUs,
	}
}

// ErrorOutcome reports a failed execution, retry-eligible by reprocessing.
func ErrorOutcome(externalID string, err error) Outcome {
	return Outcome{Status: OutcomeError, ExternalID: externalID, Err: err}
}

// SkippedOutcome reports a deliberate no-op (cutoff, cancellation of an order
// that was never materialized, update for an unknown order).
func SkippedOutcome(externalID, reason string) Outcome {
	return Outcome{Status: OutcomeSkipped, ExternalID: externalID, Reason: reason}
}
