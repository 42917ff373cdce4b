package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileStore keeps one record per project in a YAML file readable only by the owner.
type FileStore struct {
	mu      sync.Mutex
	path    string
	project string
}

type fileContents struct {
	Projects map[string]Record `yaml:"projects"`
}

// NewFileStore creates a store backed by path, scoped to project.
func NewFileStore(path, project string) *FileStore {
	return &FileStore{path: path, project: project}
}

func (s *FileStore) read() (fileContents, error) {
	var contents fileContents
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return contents, nil
	}
	if err != nil {
		return contents, fmt.Errorf("read session file: %w", err)
	}
	if err := yaml.Unmarshal(data, &contents); err != nil {
		return contents, fmt.Errorf("decode session file: %w", err)
	}
	return contents, nil
}

func (s *FileStore) write(contents fileContents) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := yaml.Marshal(contents)
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Load(_ context.Context) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.read()
	if err != nil {
		return Record{}, err
	}
	rec, ok := contents.Projects[s.project]
	if !ok || rec.Secret == "" {
		return Record{}, ErrNoSession
	}
	return rec, nil
}

func (s *FileStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.read()
	if err != nil {
		return err
	}
	if contents.Projects == nil {
		contents.Projects = make(map[string]Record)
	}
	contents.Projects[s.project] = rec
	return s.write(contents)
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := contents.Projects[s.project]; !ok {
		return nil
	}
	delete(contents.Projects, s.project)
	return s.write(contents)
}

var _ Store = (*FileStore)(nil)
