package domain

import "time"

// Status is the persisted view of the probe task.
// It survives restarts so operators can see what the last run observed.
type Status struct {
	Iterations uint64            `json:"iterations"`
	Outcomes   map[string]uint64 `json:"outcomes"`

	LastOutcome   string     `json:"last_outcome"`
	LastError     string     `json:"last_error,omitempty"`
	LastRemote    string     `json:"last_remote,omitempty"`
	LastLease     *Lease     `json:"last_lease,omitempty"`
	LastBytesRecv int        `json:"last_bytes_received"`
	LastAttemptAt time.Time  `json:"last_attempt_at"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
}

// Record folds an attempt into the status.
func (s *Status) Record(a Attempt) {
	if s.Outcomes == nil {
		s.Outcomes = make(map[string]uint64)
	}
	s.Iterations++
	s.Outcomes[a.Outcome.String()]++
	s.LastOutcome = a.Outcome.String()
	s.LastError = ""
	if a.Err != nil {
		s.LastError = a.Err.Error()
	}
	s.LastRemote = ""
	if a.Remote.IsValid() {
		s.LastRemote = a.Remote.String()
	}
	s.LastLease = nil
	if a.Lease.Valid() {
		l := a.Lease
		s.LastLease = &l
	}
	s.LastBytesRecv = a.BytesReceived
	s.LastAttemptAt = a.Started
	if a.Outcome == OutcomeCompleted {
		done := a.Started.Add(a.Duration)
		s.LastSuccessAt = &done
	}
}
