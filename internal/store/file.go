package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"plc-copilot/internal/types"
)

type sessionFile struct {
	Theme    string          `json:"theme,omitempty"`
	Messages []types.Message `json:"messages"`
}

// FileStore keeps one JSON document per session under dir.
type FileStore struct {
	mu          sync.Mutex
	dir         string
	maxMessages int
}

func NewFileStore(dir string, maxMessages int) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, maxMessages: maxMessages}, nil
}

func (f *FileStore) Append(_ context.Context, sessionID string, msg types.Message) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read(sessionID)
	if err != nil {
		return err
	}
	doc.Messages = append(doc.Messages, msg)
	if f.maxMessages > 0 && len(doc.Messages) > f.maxMessages {
		doc.Messages = doc.Messages[len(doc.Messages)-f.maxMessages:]
	}
	return f.write(sessionID, doc)
}

func (f *FileStore) History(_ context.Context, sessionID string) ([]types.Message, error) {
	if err := checkSession(sessionID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read(sessionID)
	if err != nil {
		return nil, err
	}
	if doc.Messages == nil {
		return []types.Message{}, nil
	}
	return doc.Messages, nil
}

func (f *FileStore) Clear(_ context.Context, sessionID string) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read(sessionID)
	if err != nil {
		return err
	}
	if doc.Theme == "" {
		if err := os.Remove(f.path(sessionID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	doc.Messages = nil
	return f.write(sessionID, doc)
}

func (f *FileStore) Theme(_ context.Context, sessionID string) (string, error) {
	if err := checkSession(sessionID); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read(sessionID)
	if err != nil {
		return "", err
	}
	if doc.Theme == "" {
		return DefaultTheme, nil
	}
	return doc.Theme, nil
}

func (f *FileStore) SetTheme(_ context.Context, sessionID, theme string) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}
	t, err := NormalizeTheme(theme)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read(sessionID)
	if err != nil {
		return err
	}
	doc.Theme = t
	return f.write(sessionID, doc)
}

func (f *FileStore) Close() error { return nil }

func (f *FileStore) path(sessionID string) string {
	return filepath.Join(f.dir, sessionID+".json")
}

func (f *FileStore) read(sessionID string) (sessionFile, error) {
	var doc sessionFile
	b, err := os.ReadFile(f.path(sessionID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return doc, err
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return sessionFile{}, err
	}
	return doc, nil
}

func (f *FileStore) write(sessionID string, doc sessionFile) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(f.path(sessionID), b, 0o600)
}

// WriteFileAtomic writes data to a temp file in the same directory and
// renames it over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
