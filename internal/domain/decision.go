package domain

import "time"

// DecisionStatus summarizes a whole evaluation tick.
type DecisionStatus string

const (
	DecisionReady       DecisionStatus = "READY"
	DecisionNoCandidate DecisionStatus = "NO_CANDIDATE"
	DecisionDegraded    DecisionStatus = "DEGRADED"
	DecisionInactive    DecisionStatus = "INACTIVE"
)

// ScoreComponents breaks a ranked candidate's score into its weighted parts.
// Pop, RoR and EVRoR are present only when the probability engine produced
// the underlying metrics.
type ScoreComponents struct {
	DeltaFit     float64  `json:"delta_fit"`
	CreditWidth  float64  `json:"credit_width"`
	GammaPenalty float64  `json:"gamma_penalty"`
	Pop          *float64 `json:"pop,omitempty"`
	RoR          *float64 `json:"ror,omitempty"`
	EVRoR        *float64 `json:"ev_ror,omitempty"`
}

// RankedCandidate is the ranker's verdict for one ready candidate.
type RankedCandidate struct {
	CandidateID string          `json:"candidate_id"`
	Rank        int             `json:"rank"`
	Score       float64         `json:"score"`
	Components  ScoreComponents `json:"components"`
}

// DecisionOutput is the complete result of one evaluation tick.
type DecisionOutput struct {
	TickAt             time.Time          `json:"tick_at"`
	Status             DecisionStatus     `json:"status"`
	Contract           DataContractResult `json:"contract"`
	Candidates         []CandidateCard    `json:"candidates"`
	Ranked             []RankedCandidate  `json:"ranked"`
	PrimaryCandidateID string             `json:"primary_candidate_id,omitempty"`
	Alerts             []AlertItem        `json:"alerts,omitempty"`
	Blocks             []string           `json:"blocks,omitempty"`
	Warnings           []string           `json:"warnings,omitempty"`
	Debug              map[string]any     `json:"debug,omitempty"`
}
