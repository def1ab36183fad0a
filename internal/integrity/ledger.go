package integrity

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"sync"
	"time"

	"github.com/plexsphere/relayctl/internal/fsutil"
)

// Record is what the installer knew about a file when it placed it.
type Record struct {
	SHA256    string    `json:"sha256"`
	Source    string    `json:"source,omitempty"`
	Installed time.Time `json:"installed"`
}

// Ledger is a JSON file of install records keyed by absolute path.
type Ledger struct {
	mu      sync.RWMutex
	path    string
	records map[string]Record

	now func() time.Time
}

// NewLedger opens the ledger at path. A missing file is an empty ledger; it
// is created on the first Record.
func NewLedger(path string) (*Ledger, error) {
	l := &Ledger{
		path:    path,
		records: make(map[string]Record),
		now:     time.Now,
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return l, nil
	case err != nil:
		return nil, fmt.Errorf("integrity: read ledger: %w", err)
	}
	if err := json.Unmarshal(data, &l.records); err != nil {
		return nil, fmt.Errorf("integrity: parse ledger %s: %w", path, err)
	}
	if l.records == nil {
		l.records = make(map[string]Record)
	}
	return l, nil
}

// Lookup returns the record for path.
func (l *Ledger) Lookup(path string) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.records[path]
	return r, ok
}

// Record hashes the file at path and stores the result with its source.
func (l *Ledger) Record(path, source string) (Record, error) {
	sum, err := HashFile(path)
	if err != nil {
		return Record{}, err
	}
	r := Record{SHA256: sum, Source: source, Installed: l.now().UTC()}

	l.mu.Lock()
	defer l.mu.Unlock()
	next := maps.Clone(l.records)
	next[path] = r
	if err := l.flush(next); err != nil {
		return Record{}, err
	}
	l.records = next
	return r, nil
}

// Verify compares the file at path with its record. The record's source and
// install time are copied into the result.
func (l *Ledger) Verify(path string) (CheckResult, error) {
	r, _ := l.Lookup(path)
	res, err := VerifyFile(path, r.SHA256)
	if err != nil {
		return CheckResult{}, err
	}
	res.Source = r.Source
	res.Installed = r.Installed
	return res, nil
}

// flush writes records to disk; the in-memory ledger is only replaced once
// this succeeds.
func (l *Ledger) flush(records map[string]Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("integrity: encode ledger: %w", err)
	}
	if err := fsutil.WriteFileAtomic(l.path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("integrity: write ledger: %w", err)
	}
	return nil
}
