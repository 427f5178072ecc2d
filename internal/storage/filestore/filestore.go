// Package filestore keeps each key in its own JSON file and appends journal
// records to a JSON-lines file. It runs on any afero filesystem, so the same
// code backs the on-disk store and the in-memory fallback.
package filestore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"studyfocus/internal/event"
	"studyfocus/internal/storage"
)

const journalFile = "events.jsonl"

type FileStore struct {
	fs     afero.Fs
	dir    string
	mu     sync.RWMutex
	nextID int64
}

func New(fs afero.Fs, dir string) *FileStore {
	return &FileStore{fs: fs, dir: dir}
}

// NewOS stores data under dir on the local filesystem.
func NewOS(dir string) storage.Storage {
	return New(afero.NewOsFs(), dir)
}

// NewMemory returns a store that lives only as long as the process.
func NewMemory() storage.Storage {
	return New(afero.NewMemMapFs(), "/studyfocus")
}

func (s *FileStore) Init(_ context.Context) error {
	if err := s.fs.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", s.dir, err)
	}
	events, err := s.readJournal()
	if err != nil {
		return err
	}
	for _, e := range events {
		if e.ID > s.nextID {
			s.nextID = e.ID
		}
	}
	log.Printf("File store initialized at: %s", s.dir)
	return nil
}

func (s *FileStore) keyPath(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".json")
}

func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, err := afero.ReadFile(s.fs, s.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return payload, nil
}

// Set writes through a temporary file and renames it into place so a crash
// never leaves a half-written value behind.
func (s *FileStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.keyPath(key)
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, value, 0640); err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit key %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Remove(s.keyPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove key %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) SaveEvent(_ context.Context, e event.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	e.ID = s.nextID
	e.Timestamp = e.Timestamp.UTC()
	line, err := json.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("failed to encode event: %w", err)
	}

	f, err := s.fs.OpenFile(filepath.Join(s.dir, journalFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return 0, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	return e.ID, nil
}

func (s *FileStore) GetEvents(_ context.Context, start, end time.Time, eventTypes ...event.EventType) ([]event.Event, error) {
	s.mu.RLock()
	all, err := s.readJournal()
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	wanted := make(map[event.EventType]bool, len(eventTypes))
	for _, et := range eventTypes {
		wanted[et] = true
	}

	var events []event.Event
	for _, e := range all {
		if e.Timestamp.Before(start) || e.Timestamp.After(end) {
			continue
		}
		if len(wanted) > 0 && !wanted[e.Type] {
			continue
		}
		events = append(events, e)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events, nil
}

// readJournal skips lines that do not decode; a torn final line from a crash
// must not hide the rest of the journal.
func (s *FileStore) readJournal() ([]event.Event, error) {
	f, err := s.fs.Open(filepath.Join(s.dir, journalFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	var events []event.Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e event.Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			log.Printf("Warning: Skipping corrupt journal line: %v", err)
			continue
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading journal: %w", err)
	}
	return events, nil
}

func (s *FileStore) Close() error {
	return nil
}
