package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/drivescore/internal/session"
)

// fileState is the on-disk document.
type fileState struct {
	Sessions  []session.DrivingSession `json:"sessions"`
	Score     int                      `json:"score"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// File keeps everything in a single JSON document, the equivalent of the
// app's key-value defaults store.
type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) LoadSessions(_ context.Context) ([]session.DrivingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.read()
	if err != nil {
		return nil, err
	}
	return st.Sessions, nil
}

func (f *File) SaveSessions(_ context.Context, sessions []session.DrivingSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.read()
	if err != nil {
		// An unreadable document is replaced rather than blocking new history.
		st = &fileState{}
	}
	st.Sessions = sessions
	return f.write(st)
}

func (f *File) LoadScore(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.read()
	if err != nil {
		return 0, err
	}
	return st.Score, nil
}

func (f *File) SaveScore(_ context.Context, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.read()
	if err != nil {
		st = &fileState{}
	}
	st.Score = score
	return f.write(st)
}

func (f *File) Close() error { return nil }

func (f *File) read() (*fileState, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileState{}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	return &st, nil
}

func (f *File) write(st *fileState) error {
	st.UpdatedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
