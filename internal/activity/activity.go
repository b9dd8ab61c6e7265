// Package activity is the JSON Lines log of pipeline events. Like the
// outreach log it is append-only; each entry is one line written in a
// single call.
package activity

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Agent     string         `json:"agent"`
	Action    string         `json:"action"`
	Status    string         `json:"status"`
	Details   map[string]any `json:"details,omitempty"`
	Error     string         `json:"error,omitempty"`
}

type Log struct {
	path string
}

func Open(path string) *Log {
	return &Log{path: path}
}

// Record appends one event.
func (l *Log) Record(agent, action, status string, details map[string]any) error {
	return l.append(Entry{
		Timestamp: time.Now(),
		Agent:     agent,
		Action:    action,
		Status:    status,
		Details:   details,
	})
}

// RecordError appends a failed event with its error string.
func (l *Log) RecordError(agent, action string, err error) error {
	return l.append(Entry{
		Timestamp: time.Now(),
		Agent:     agent,
		Action:    action,
		Status:    "failed",
		Error:     err.Error(),
	})
}

func (l *Log) append(e Entry) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("append activity log: %w", err)
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode activity entry: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("append activity log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("append activity log: %w", err)
	}
	return f.Close()
}

// Read returns entries most recent first, up to limit (0 means all).
// Unparseable lines (a crash mid-append on a non-atomic filesystem) are
// skipped rather than fatal.
func (l *Log) Read(limit int) ([]Entry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read activity log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read activity log: %w", err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Stats aggregates the log by status and agent.
type Stats struct {
	Total    int            `json:"total_activities"`
	ByStatus map[string]int `json:"by_status"`
	ByAgent  map[string]int `json:"by_agent"`
	Recent   []Entry        `json:"recent_activity,omitempty"`
}

func (l *Log) Stats(agent string) (Stats, error) {
	entries, err := l.Read(0)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{ByStatus: make(map[string]int), ByAgent: make(map[string]int)}
	for _, e := range entries {
		if agent != "" && e.Agent != agent {
			continue
		}
		st.Total++
		st.ByStatus[e.Status]++
		st.ByAgent[e.Agent]++
		if len(st.Recent) < 10 {
			st.Recent = append(st.Recent, e)
		}
	}
	return st, nil
}
