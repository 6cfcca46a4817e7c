package gate

import (
	"fmt"
	"time"

	"spreadpilot/internal/domain"
)

// KillSwitchConfig tunes the stale-data circuit breaker.
type KillSwitchConfig struct {
	MaxSnapshotAge   time.Duration
	DesignatedSource string
}

// DefaultKillSwitch returns the documented example thresholds.
func DefaultKillSwitch() KillSwitchConfig {
	return KillSwitchConfig{MaxSnapshotAge: 3 * time.Minute}
}

// KillSwitch is the hard circuit breaker evaluated before per-candidate
// gating. When tripped it forces every candidate not-ready and drops all
// entry alerts for the tick; it is not a per-row check.
type KillSwitch struct {
	cfg KillSwitchConfig
}

// NewKillSwitch creates a KillSwitch.
func NewKillSwitch(cfg KillSwitchConfig) *KillSwitch {
	return &KillSwitch{cfg: cfg}
}

// Evaluate returns the trip reason, or empty when the breaker is not
// tripped. Trip conditions: zero live bars while the market is open, a
// snapshot older than the threshold, or a non-designated market source.
func (k *KillSwitch) Evaluate(snap domain.MarketSnapshot, now time.Time) string {
	if snap.MarketOpen && snap.LiveBars == 0 {
		return "stale-data kill switch: zero live bars while market open"
	}
	if k.cfg.MaxSnapshotAge > 0 && !snap.TakenAt.IsZero() {
		if age := now.Sub(snap.TakenAt); age > k.cfg.MaxSnapshotAge {
			return fmt.Sprintf("stale-data kill switch: snapshot age %s exceeds %s",
				age.Round(time.Second), k.cfg.MaxSnapshotAge)
		}
	}
	if k.cfg.DesignatedSource != "" && snap.Source != k.cfg.DesignatedSource {
		return fmt.Sprintf("stale-data kill switch: source %q is not designated %q",
			snap.Source, k.cfg.DesignatedSource)
	}
	return ""
}
