package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// JSONL record types for streaming format
const (
	RecordTypeHeader = "header" // Session metadata (first line)
	RecordTypeEvent  = "event"  // Individual event
	RecordTypeFooter = "footer" // Final state (last line)
)

// JSONLRecord is a wrapper for JSONL lines with type discrimination.
type JSONLRecord struct {
	RecordType string `json:"_type"` // header, event, footer

	// Header fields (when _type == "header")
	ID        string    `json:"id,omitempty"`
	Query     string    `json:"query,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	// Event payload (when _type == "event")
	Event *Event `json:"event,omitempty"`

	// Footer fields (when _type == "footer")
	Status       string    `json:"status,omitempty"`
	Report       string    `json:"report,omitempty"`
	Error        string    `json:"error,omitempty"`
	Iterations   int       `json:"iterations,omitempty"`
	LimitReached bool      `json:"limit_reached,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// FileStore implements Store with one JSONL file per session.
type FileStore struct {
	dir string
}

// NewFileStore creates a new file-based store.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the file path of a session.
func (s *FileStore) Path(id string) string {
	return filepath.Join(s.dir, id+".jsonl")
}

// Save persists a session to disk in JSONL format.
func (s *FileStore) Save(sess *Session) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	f, err := os.Create(s.Path(sess.ID))
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writeLine(w, JSONLRecord{
		RecordType: RecordTypeHeader,
		ID:         sess.ID,
		Query:      sess.Query,
		CreatedAt:  sess.CreatedAt,
	}); err != nil {
		return err
	}
	for _, evt := range sess.Events {
		if err := writeLine(w, JSONLRecord{RecordType: RecordTypeEvent, Event: &evt}); err != nil {
			return err
		}
	}
	if err := writeLine(w, JSONLRecord{
		RecordType:   RecordTypeFooter,
		Status:       sess.Status,
		Report:       sess.Report,
		Error:        sess.Error,
		Iterations:   sess.Iterations,
		LimitReached: sess.LimitReached,
		UpdatedAt:    sess.UpdatedAt,
	}); err != nil {
		return err
	}
	return w.Flush()
}

func writeLine(w io.Writer, record JSONLRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// Load reads a session by ID.
func (s *FileStore) Load(id string) (*Session, error) {
	sess, err := LoadFile(s.Path(id))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	return sess, err
}

// List returns stored session IDs, most recently modified first.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	type item struct {
		id  string
		mod time.Time
	}
	var items []item
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, item{strings.TrimSuffix(e.Name(), ".jsonl"), info.ModTime()})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].mod.After(items[j].mod) })
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.id
	}
	return ids, nil
}

// LoadFile reads a session from a JSONL file.
func LoadFile(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a JSONL session stream.
func Decode(r io.Reader) (*Session, error) {
	sess := &Session{Events: []Event{}}

	// bufio.Reader instead of Scanner: reports can exceed the default token size.
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			if perr := parseJSONLLine(bytes.TrimSpace(line), sess); perr != nil {
				return nil, perr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading JSONL: %w", err)
		}
	}
	if sess.ID == "" {
		return nil, fmt.Errorf("session header missing")
	}
	sess.restoreSeq()
	return sess, nil
}

func parseJSONLLine(line []byte, sess *Session) error {
	var record JSONLRecord
	if err := json.Unmarshal(line, &record); err != nil {
		return fmt.Errorf("failed to parse JSONL line: %w", err)
	}

	switch record.RecordType {
	case RecordTypeHeader:
		sess.ID = record.ID
		sess.Query = record.Query
		sess.CreatedAt = record.CreatedAt
	case RecordTypeEvent:
		if record.Event != nil {
			sess.Events = append(sess.Events, *record.Event)
		}
	case RecordTypeFooter:
		sess.Status = record.Status
		sess.Report = record.Report
		sess.Error = record.Error
		sess.Iterations = record.Iterations
		sess.LimitReached = record.LimitReached
		sess.UpdatedAt = record.UpdatedAt
	}
	return nil
}
