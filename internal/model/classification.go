package model

// Source indicates which pipeline stage produced a candidate.
type Source string

// Candidate source constants.
const (
	SourceRule      Source = "rule"
	SourceFrequency Source = "frequency"
	SourceFuzzy     Source = "fuzzy"
	SourceRemote    Source = "remote"
)

// ClassificationCandidate is a transient suggestion for one transaction.
// Candidates are returned to the caller, which decides whether to store
// them; the pipeline never applies an account by itself.
type ClassificationCandidate struct {
	AccountID   string
	Explanation string
	Rationale   string
	Source      Source
	Confidence  float64 // always in [0,1]
}

// SimilarityResult records a scored pair of transactions. Computed on
// demand from description text; never cached across calls.
type SimilarityResult struct {
	SourceID       string
	TargetID       string
	TextSimilarity float64
}

// PropagationRequest describes a pending fan-out of one transaction's
// explanation to its near-duplicates. The user decision is all-or-none;
// there is no per-target opt-out.
type PropagationRequest struct {
	SourceID string
	Targets  []SimilarityResult
}

// ReplicationOutcome is the per-target result of a confirmed propagation.
type ReplicationOutcome struct {
	TargetID string
	Err      error
}
