package domain

import "time"

type SessionState string

const (
	StateUninitialized SessionState = "uninitialized"
	StateConfigured    SessionState = "configured"
	StateConnecting    SessionState = "connecting"
	StateRunning       SessionState = "running"
	StateCompleted     SessionState = "completed"
	StateCancelled     SessionState = "cancelled"
	StateFailed        SessionState = "failed"
)

func (s SessionState) Terminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateFailed:
		return true
	default:
		return false
	}
}

type CancelReason string

const (
	ReasonInterrupted CancelReason = "interrupted"
	ReasonTimeout     CancelReason = "acknowledgment timeout"
	ReasonRequested   CancelReason = "requested"
)

// HostStatus is one status line received from a host.
type HostStatus struct {
	Index      int
	Hostname   string
	Line       string
	ReceivedAt time.Time
	Duplicate  bool
}

type HostSummary struct {
	Index        int
	Hostname     string
	Address      string
	Connected    bool
	StartFailed  bool
	Acknowledged bool
}

type SessionSummary struct {
	ID           string
	State        SessionState
	Reason       CancelReason
	Job          JobSpec
	Hosts        []HostSummary
	Active       int
	Acknowledged int
	Statuses     []HostStatus
	StartedAt    time.Time
	FinishedAt   time.Time
}

func (s SessionSummary) Pending() []HostSummary {
	pending := make([]HostSummary, 0, len(s.Hosts))
	for _, host := range s.Hosts {
		if host.Connected && !host.Acknowledged {
			pending = append(pending, host)
		}
	}
	return pending
}

func (s SessionSummary) Unreachable() []HostSummary {
	unreachable := make([]HostSummary, 0, len(s.Hosts))
	for _, host := range s.Hosts {
		if !host.Connected {
			unreachable = append(unreachable, host)
		}
	}
	return unreachable
}

func (s SessionSummary) Elapsed() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
