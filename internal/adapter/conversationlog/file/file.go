// Package file implements the append-only, daily-rotated conversation
// log (spec §4.2) as line-delimited JSON under logs/conversations/.
// Grounded on the teacher's postgres/idempotency append-then-read
// pattern (store one row, read it back unmodified); here one JSON line
// on disk plays the role the teacher's one SQL row plays, since the
// conversation log's own invariant (spec §4.2) is a plain file stream,
// not a table.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	portconversationlog "github.com/marcusai/marcus/internal/port/conversationlog"
)

// Log writes one JSON line per record to dir/<date>.jsonl, rotating to
// a new file whenever the UTC date changes.
type Log struct {
	dir string

	mu          sync.Mutex
	currentDate string
	file        *os.File
	writer      *bufio.Writer
}

func New(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}
	return &Log{dir: dir}, nil
}

func (l *Log) rotateLocked(now time.Time) error {
	date := now.Format("2006-01-02")
	if l.file != nil && l.currentDate == date {
		return nil
	}
	if l.writer != nil {
		if err := l.writer.Flush(); err != nil {
			return fmt.Errorf("flush conversation log before rotate: %w", err)
		}
	}
	if l.file != nil {
		if err := l.file.Close(); err != nil {
			return fmt.Errorf("close previous conversation log file: %w", err)
		}
	}

	path := filepath.Join(l.dir, date+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open conversation log file %s: %w", path, err)
	}
	l.file = f
	l.writer = bufio.NewWriter(f)
	l.currentDate = date
	return nil
}

// Append writes r as one JSON line, rotating to today's file first if
// the process has crossed a UTC day boundary since the last write.
func (l *Log) Append(ctx context.Context, r portconversationlog.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal conversation log record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.rotateLocked(time.Now().UTC()); err != nil {
		return err
	}
	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("write conversation log record: %w", err)
	}
	if err := l.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write conversation log newline: %w", err)
	}
	return l.writer.Flush()
}

// Replay reads every record across every rotated file under dir,
// oldest-dated file first and oldest line first within a file (spec P6:
// the conversation log is the only source of truth for reconstruction).
func (l *Log) Replay(ctx context.Context) ([]portconversationlog.Record, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read conversation log dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".jsonl" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []portconversationlog.Record
	for _, name := range names {
		records, err := readFile(filepath.Join(l.dir, name))
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", name, err)
		}
		out = append(out, records...)
	}
	return out, nil
}

func readFile(path string) ([]portconversationlog.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []portconversationlog.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r portconversationlog.Record
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		out = append(out, r)
	}
	return out, scanner.Err()
}

// Close flushes and closes the currently open log file, if any.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer != nil {
		if err := l.writer.Flush(); err != nil {
			return err
		}
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

var _ portconversationlog.Log = (*Log)(nil)
