// Package scoring computes behavioural risk scores for transactions.
//
// Scores come from a weighted ensemble of feature extractors over
// per-customer sliding windows held in memory. Scoring is pure
// computation and is designed to stay well under 10ms per transaction.
package scoring

import "time"

// TransactionContext is the slice of a transaction the model needs.
type TransactionContext struct {
	CustomerID string
	Amount     float64
	Currency   string
	Country    string
	Type       string
	Timestamp  time.Time
}

// Assessment is the model output: a 0-10 score plus the contributing
// factors, each normalized to [0,1].
type Assessment struct {
	Score      float64            `json:"score"`
	Factors    map[string]float64 `json:"factors"`
	Confidence float64            `json:"confidence"`
}

// Velocity reports window counts used by the rules engine.
type Velocity struct {
	Count1h  int
	Count24h int
}
