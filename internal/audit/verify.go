package audit

import (
	"encoding/json"
	"fmt"
	"os"
)

// Verify walks the audit log and checks hash-chain integrity. The first
// violation is reported with the offending entry's run ID and pipeline,
// so the run in question can be found. An empty log is valid.
func Verify(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}

	prevHash := genesisHash()
	var wantSeq uint64
	for i, line := range splitLines(data) {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("entry %d: invalid JSON: %w", i+1, err)
		}
		wantSeq++
		if e.Seq != wantSeq {
			return fmt.Errorf("entry %d (run %s): sequence gap: expected seq %d, got %d",
				i+1, e.RunID, wantSeq, e.Seq)
		}
		if e.PrevHash != prevHash {
			return fmt.Errorf("entry %d (run %s, %q): chain broken: prev_hash does not match the preceding entry",
				i+1, e.RunID, e.Pipeline)
		}
		if computeHash(e) != e.Hash {
			return fmt.Errorf("entry %d (run %s, %q): content does not match its hash",
				i+1, e.RunID, e.Pipeline)
		}
		prevHash = e.Hash
	}
	return nil
}

// Tail returns the last n entries of the audit log, oldest first.
// Unparseable lines are skipped rather than failing the whole read.
func Tail(path string, n int) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	lines := splitLines(data)
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
