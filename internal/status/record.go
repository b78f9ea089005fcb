package status

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// State is the lifecycle phase of one running job.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

var stateRank = map[State]int{
	StatePending:   0,
	StateRunning:   1,
	StateCompleted: 2,
	StateFailed:    2,
}

// ParseState converts a string into a known State. The legacy "rendering"
// spelling written by older workers maps to running.
func ParseState(value string) (State, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "rendering" {
		return StateRunning, true
	}
	state := State(normalized)
	_, ok := stateRank[state]
	return state, ok
}

// Terminal reports whether no further transition can leave the state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Before reports whether s precedes other in the pending -> running -> terminal
// order. Terminal states never precede anything.
func (s State) Before(other State) bool {
	return stateRank[s] < stateRank[other]
}

// Progress carries job-specific counters for the waiter's benefit.
type Progress struct {
	CurrentFrame int     `json:"current_frame,omitempty"`
	TotalFrames  int     `json:"total_frames,omitempty"`
	Percent      float64 `json:"percent,omitempty"`
}

// Record is the JSON state object a running job writes and a waiter polls.
// Success is only meaningful once State is completed.
type Record struct {
	JobID     string     `json:"job_id"`
	State     State      `json:"status"`
	Success   bool       `json:"success"`
	Message   string     `json:"message,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Progress  *Progress  `json:"progress,omitempty"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// UnmarshalJSON normalizes the state spelling while decoding.
func (r *Record) UnmarshalJSON(data []byte) error {
	type alias Record
	var raw struct {
		alias
		State string `json:"status"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	state, ok := ParseState(raw.State)
	if !ok {
		return fmt.Errorf("unknown status value %q", raw.State)
	}
	*r = Record(raw.alias)
	r.State = state
	return nil
}

// Read loads a status record from disk. Callers polling a live file should
// treat both a missing file and a parse failure as transient.
func Read(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse status file: %w", err)
	}
	return &record, nil
}
