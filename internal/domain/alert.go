package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// AlertType classifies outbound alerts. Only ENTRY alerts are subject to
// readiness debounce; the kill switch drops ENTRY alerts wholesale.
type AlertType string

const (
	AlertEntry  AlertType = "ENTRY"
	AlertExit   AlertType = "EXIT"
	AlertRisk   AlertType = "RISK"
	AlertSystem AlertType = "SYSTEM"
)

// AlertSeverity grades an alert for formatting and filtering.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AlertItem is one outbound alert. ID is the content fingerprint of
// type+strategy+leg signature, so the same real-world setup always produces
// the same id across ticks.
type AlertItem struct {
	ID       string        `json:"id"`
	Type     AlertType     `json:"type"`
	Strategy StrategyID    `json:"strategy"`
	Reason   string        `json:"reason"`
	Severity AlertSeverity `json:"severity"`
	Legs     []OptionLeg   `json:"legs,omitempty"`
	Credit   float64       `json:"credit,omitempty"`
	TradeID  string        `json:"trade_id,omitempty"`
}

// AlertFingerprint derives the content id of an alert from its type,
// strategy and leg signature.
func AlertFingerprint(t AlertType, strategy StrategyID, legs []OptionLeg) string {
	sum := sha256.Sum256([]byte(string(t) + "|" + string(strategy) + "|" + LegSignature(legs)))
	return "al_" + hex.EncodeToString(sum[:8])
}

// ReasonHash hashes an alert's reason text. A changed reason un-suppresses
// an acknowledged alert.
func ReasonHash(reason string) string {
	sum := sha256.Sum256([]byte(reason))
	return hex.EncodeToString(sum[:8])
}

// AlertPolicyState is the per-strategy, date-scoped throttle state. The date
// scope rolls at ET midnight.
type AlertPolicyState struct {
	SentToday   int    `json:"sent_today"`
	LastSentISO string `json:"last_sent_iso,omitempty"`
	LastAlertID string `json:"last_alert_id,omitempty"`
}
