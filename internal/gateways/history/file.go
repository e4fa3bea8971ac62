package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ThomasByr/skyroulette/internal/domain/roulette"
)

// FileStore keeps the spin log as JSON lines, one record per spin. The
// sequence number of an entry is its 1-based position in the log.
type FileStore struct {
	path string
	loc  *time.Location

	mu     sync.Mutex
	count  int64
	loaded bool

	openAppend func(path string) (appendFile, error)
}

// appendFile is the part of *os.File that Append uses.
type appendFile interface {
	io.WriteCloser
	Sync() error
	Stat() (fs.FileInfo, error)
}

func NewFileStore(path string, loc *time.Location) *FileStore {
	if loc == nil {
		loc = time.UTC
	}
	return &FileStore{path: path, loc: loc, openAppend: openAppendFile}
}

func openAppendFile(path string) (appendFile, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) ([]roulette.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readLocked()
	if err != nil {
		return nil, err
	}

	entries := make([]roulette.HistoryEntry, 0, len(records))
	for i, r := range records {
		entries = append(entries, r.toEntry(int64(i+1)))
	}
	return entries, nil
}

func (s *FileStore) Append(ctx context.Context, entry roulette.HistoryEntry) (roulette.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return entry, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if _, err := s.readLocked(); err != nil {
			return entry, err
		}
	}

	line, err := json.Marshal(recordOf(entry, s.loc))
	if err != nil {
		return entry, fmt.Errorf("failed to encode history record: %w", err)
	}
	line = append(line, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return entry, fmt.Errorf("failed to create history directory: %w", err)
	}

	f, err := s.openAppend(s.path)
	if err != nil {
		return entry, fmt.Errorf("failed to open history log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return entry, fmt.Errorf("failed to stat history log: %w", err)
	}

	if err := writeSynced(f, line); err != nil {
		s.rollbackLocked(info.Size())
		return entry, err
	}

	s.count++
	entry.Seq = s.count
	return entry, nil
}

func writeSynced(f appendFile, line []byte) error {
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to append history record: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync history log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close history log: %w", err)
	}
	return nil
}

// rollbackLocked cuts a failed append back to the size the log had before
// it. The next call re-reads the log either way, so a fragment that could
// not be cut is repaired as a torn tail.
func (s *FileStore) rollbackLocked(size int64) {
	s.loaded = false
	if err := os.Truncate(s.path, size); err != nil {
		slog.Warn("Failed to roll back history append",
			slog.String("path", s.path),
			slog.Int64("size", size),
			slog.Any("error", err))
	}
}

// AssignIdentities sets member_id on the records at the given sequence
// numbers. Records that already carry an id, or whose stored name is not the
// assignment's name, are left untouched.
func (s *FileStore) AssignIdentities(ctx context.Context, ids map[int64]roulette.Identified) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readLocked()
	if err != nil {
		return err
	}

	changed := 0
	for seq, ident := range ids {
		i := seq - 1
		if i < 0 || i >= int64(len(records)) || records[i].MemberID != nil {
			continue
		}
		if records[i].Member != ident.DisplayName {
			continue
		}
		value := ident.ID.String()
		records[i].MemberID = &value
		changed++
	}
	if changed == 0 {
		return nil
	}
	return s.rewriteLocked(records)
}

// ReplaceAll overwrites the log with entries. Used when restoring an export.
func (s *FileStore) ReplaceAll(ctx context.Context, entries []roulette.HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]record, 0, len(entries))
	for _, e := range entries {
		records = append(records, recordOf(e, s.loc))
	}
	if err := s.rewriteLocked(records); err != nil {
		return err
	}
	s.count = int64(len(records))
	s.loaded = true
	return nil
}

// readLocked parses the log and repairs what can be repaired: a torn last
// line is cut off, a legacy JSON array is rewritten as lines. Anything else
// that fails to parse moves the file aside so the next write starts fresh.
func (s *FileStore) readLocked() ([]record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.count = 0
		s.loaded = true
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history log: %w", err)
	}

	records, legacy, valid, err := decode(data)
	if err != nil {
		target, qerr := s.quarantineLocked()
		if qerr != nil {
			return nil, errors.Join(fmt.Errorf("history log is corrupt: %w", err), qerr)
		}
		slog.Error("History log is corrupt, starting empty",
			slog.String("type", "db"),
			slog.String("path", s.path),
			slog.String("moved_to", target),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("history log is corrupt, moved to %s: %w", target, err)
	}

	switch {
	case legacy:
		if err := s.rewriteLocked(records); err != nil {
			return nil, err
		}
		slog.Info("Converted legacy history file to JSON lines",
			slog.String("type", "db"),
			slog.String("path", s.path),
			slog.Int("records", len(records)),
		)
	case valid < len(data):
		if err := os.Truncate(s.path, int64(valid)); err != nil {
			return nil, fmt.Errorf("failed to drop torn history record: %w", err)
		}
		slog.Warn("Dropped torn trailing history record",
			slog.String("type", "db"),
			slog.String("path", s.path),
			slog.Int("bytes", len(data)-valid),
		)
	case len(data) > 0 && data[len(data)-1] != '\n':
		if err := appendNewline(s.path); err != nil {
			return nil, err
		}
	}

	s.count = int64(len(records))
	s.loaded = true
	return records, nil
}

func (s *FileStore) quarantineLocked() (string, error) {
	target := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().Unix())
	if err := os.Rename(s.path, target); err != nil {
		return "", fmt.Errorf("failed to move corrupt history log aside: %w", err)
	}
	s.count = 0
	s.loaded = true
	return target, nil
}

func (s *FileStore) rewriteLocked(records []record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary history file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := writeRecords(w, records); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close history file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}

func writeRecords(w io.Writer, records []record) error {
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode history record: %w", err)
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("failed to write history record: %w", err)
		}
	}
	return nil
}

// Encode renders entries in the log's JSON-lines format.
func Encode(entries []roulette.HistoryEntry, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	records := make([]record, 0, len(entries))
	for _, e := range entries {
		records = append(records, recordOf(e, loc))
	}
	var buf bytes.Buffer
	if err := writeRecords(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decode parses a JSON-lines log, or a legacy JSON array. valid is the
// number of leading bytes that hold complete records; an unparsable final
// line without a trailing newline is a torn write and is excluded from it.
func decode(data []byte) (records []record, legacy bool, valid int, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, false, len(data), nil
	}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, false, 0, fmt.Errorf("legacy history array: %w", err)
		}
		return records, true, len(data), nil
	}

	offset, lineNo := 0, 0
	for offset < len(data) {
		lineNo++
		line, next, terminated := data[offset:], len(data), false
		if end := bytes.IndexByte(data[offset:], '\n'); end >= 0 {
			line, next, terminated = data[offset:offset+end], offset+end+1, true
		}

		if len(bytes.TrimSpace(line)) > 0 {
			var r record
			if err := json.Unmarshal(line, &r); err != nil {
				if !terminated {
					return records, false, offset, nil
				}
				return nil, false, 0, fmt.Errorf("line %d: %w", lineNo, err)
			}
			records = append(records, r)
		}
		offset = next
	}
	return records, false, len(data), nil
}

func appendNewline(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open history log: %w", err)
	}
	if _, err := f.Write([]byte{'\n'}); err != nil {
		f.Close()
		return fmt.Errorf("failed to terminate history log: %w", err)
	}
	return f.Close()
}
