package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tradelaw/internal/conversation"
)

// FileRecorder appends events to a JSONL file. It is safe for concurrent use.
type FileRecorder struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewFileRecorder(path string) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure transcript dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to init transcript file: %w", err)
	}
	_ = f.Close()
	return &FileRecorder{path: path, now: time.Now}, nil
}

// RecordTurn implements conversation.Recorder.
func (r *FileRecorder) RecordTurn(_ context.Context, rec conversation.TurnRecord) error {
	return r.Append(Event{
		Timestamp:  r.now().UTC(),
		SessionID:  rec.SessionID,
		Turn:       rec.Index,
		Question:   rec.Turn.Question,
		Answer:     rec.Turn.Answer,
		Kind:       rec.Kind.String(),
		Passages:   rec.Passages,
		DurationMS: rec.Duration.Milliseconds(),
	})
}

func (r *FileRecorder) Append(event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open append: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(event); err != nil {
		return fmt.Errorf("encode append: %w", err)
	}
	return nil
}

// Load returns every event in file order. Lines that fail to decode are skipped.
func (r *FileRecorder) Load() ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open read: %w", err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	buf := make([]byte, 0, 1024*1024)
	s.Buffer(buf, 10*1024*1024)
	var events []Event
	for s.Scan() {
		line := s.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return events, nil
}

// Session returns the events of one session in turn order.
func (r *FileRecorder) Session(id string) ([]Event, error) {
	all, err := r.Load()
	if err != nil {
		return nil, err
	}
	var out []Event
	for _, ev := range all {
		if ev.SessionID == id {
			out = append(out, ev)
		}
	}
	return out, nil
}
