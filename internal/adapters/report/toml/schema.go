package toml

import (
	"fmt"
	"time"

	"github.com/bnema/job-launcher/internal/domain"
)

const currentSchemaVersion = 1

type reportSchema struct {
	Version int           `toml:"version"`
	Session sessionSchema `toml:"session"`
	Hosts   []hostSchema  `toml:"hosts"`
	Status  []statusLine  `toml:"status,omitempty"`
}

func (s *reportSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s reportSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported report schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type sessionSchema struct {
	ID           string    `toml:"id"`
	State        string    `toml:"state"`
	Reason       string    `toml:"reason,omitempty"`
	Instances    int       `toml:"instances"`
	Executable   string    `toml:"executable"`
	Active       int       `toml:"active"`
	Acknowledged int       `toml:"acknowledged"`
	StartedAt    time.Time `toml:"started_at,omitempty"`
	FinishedAt   time.Time `toml:"finished_at,omitempty"`
}

type hostSchema struct {
	Index        int    `toml:"index"`
	Hostname     string `toml:"hostname"`
	Address      string `toml:"address,omitempty"`
	Connected    bool   `toml:"connected"`
	StartFailed  bool   `toml:"start_failed,omitempty"`
	Acknowledged bool   `toml:"acknowledged"`
}

type statusLine struct {
	Index      int       `toml:"index"`
	Hostname   string    `toml:"hostname"`
	Line       string    `toml:"line"`
	ReceivedAt time.Time `toml:"received_at"`
	Duplicate  bool      `toml:"duplicate,omitempty"`
}

func toSchema(summary domain.SessionSummary) reportSchema {
	report := reportSchema{
		Version: currentSchemaVersion,
		Session: sessionSchema{
			ID:           summary.ID,
			State:        string(summary.State),
			Reason:       string(summary.Reason),
			Instances:    summary.Job.Instances,
			Executable:   summary.Job.Executable,
			Active:       summary.Active,
			Acknowledged: summary.Acknowledged,
			StartedAt:    summary.StartedAt.UTC(),
			FinishedAt:   summary.FinishedAt.UTC(),
		},
		Hosts: make([]hostSchema, 0, len(summary.Hosts)),
	}

	for _, host := range summary.Hosts {
		report.Hosts = append(report.Hosts, hostSchema{
			Index:        host.Index,
			Hostname:     host.Hostname,
			Address:      host.Address,
			Connected:    host.Connected,
			StartFailed:  host.StartFailed,
			Acknowledged: host.Acknowledged,
		})
	}
	for _, status := range summary.Statuses {
		report.Status = append(report.Status, statusLine{
			Index:      status.Index,
			Hostname:   status.Hostname,
			Line:       status.Line,
			ReceivedAt: status.ReceivedAt.UTC(),
			Duplicate:  status.Duplicate,
		})
	}

	return report
}

func fromSchema(report reportSchema) domain.SessionSummary {
	summary := domain.SessionSummary{
		ID:           report.Session.ID,
		State:        domain.SessionState(report.Session.State),
		Reason:       domain.CancelReason(report.Session.Reason),
		Job:          domain.JobSpec{Instances: report.Session.Instances, Executable: report.Session.Executable},
		Active:       report.Session.Active,
		Acknowledged: report.Session.Acknowledged,
		StartedAt:    report.Session.StartedAt,
		FinishedAt:   report.Session.FinishedAt,
	}

	for _, host := range report.Hosts {
		summary.Hosts = append(summary.Hosts, domain.HostSummary{
			Index:        host.Index,
			Hostname:     host.Hostname,
			Address:      host.Address,
			Connected:    host.Connected,
			StartFailed:  host.StartFailed,
			Acknowledged: host.Acknowledged,
		})
	}
	for _, status := range report.Status {
		summary.Statuses = append(summary.Statuses, domain.HostStatus{
			Index:      status.Index,
			Hostname:   status.Hostname,
			Line:       status.Line,
			ReceivedAt: status.ReceivedAt,
			Duplicate:  status.Duplicate,
		})
	}

	return summary
}
