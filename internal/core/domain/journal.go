package domain

import "time"

// JournalStatus is the settled outcome of an analysis attempt.
type JournalStatus string

const (
	JournalSucceeded JournalStatus = "succeeded"
	JournalFailed    JournalStatus = "failed"
)

// JournalEntry records one settled analysis attempt.
type JournalEntry struct {
	ID         string                `json:"id"`
	SessionID  string                `json:"session_id,omitempty"`
	Query      string                `json:"query"`
	Attributes TransactionAttributes `json:"transaction_data"`
	Status     JournalStatus         `json:"status"`
	Result     *AnalysisResult       `json:"result,omitempty"`
	Failure    string                `json:"failure,omitempty"`
	Duration   time.Duration         `json:"duration_ns"`
	CreatedAt  time.Time             `json:"created_at"`
}
