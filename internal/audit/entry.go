package audit

import "time"

// Entry represents a single pipeline run in the audit log.
type Entry struct {
	Seq      uint64    `json:"seq"`
	Time     time.Time `json:"ts"`
	PrevHash string    `json:"prev_hash"`
	RunID    string    `json:"run_id"`          // uuid of this pipeline run
	Pipeline string    `json:"pipeline"`        // rendered pipeline description
	Stages   []string  `json:"stages"`          // argv0 of each stage
	ExitCode int       `json:"exit_code"`       // last stage's status, 0 = success
	Signal   string    `json:"signal,omitempty"` // signal that terminated the last stage
	Error    string    `json:"error,omitempty"` // error message if the run failed outright
	Duration float64   `json:"duration_ms"`     // execution time in milliseconds
	Cwd      string    `json:"cwd"`             // working directory
	Hash     string    `json:"hash"`            // SHA-256 of this entry (with hash field empty)
}
