package api

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"
)

// TokenStore persists the bearer credential between requests.
type TokenStore interface {
	// Token returns the stored credential, or "" when there is none.
	Token() (string, error)
	SetToken(token string) error
	Clear() error
}

// MemoryTokenStore keeps the credential for the life of the process.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func (s *MemoryTokenStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryTokenStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	return s.SetToken("")
}

type credentials struct {
	AccessToken string `yaml:"access-token"`
}

// FileTokenStore keeps the credential in a YAML file readable only by the
// current user, so a session survives restarts of the shell.
type FileTokenStore struct {
	path string
	mu   sync.Mutex
}

// NewFileTokenStore returns a store backed by path. The file is created on
// the first SetToken.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (s *FileTokenStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Annotatef(err, "reading credentials %q", s.path)
	}
	var creds credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return "", errors.Annotatef(err, "parsing credentials %q", s.path)
	}
	return creds.AccessToken, nil
}

func (s *FileTokenStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return errors.Annotate(err, "creating credentials directory")
	}
	data, err := yaml.Marshal(credentials{AccessToken: token})
	if err != nil {
		return errors.Trace(err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return errors.Annotatef(err, "writing credentials %q", s.path)
	}
	return nil
}

func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Annotatef(err, "removing credentials %q", s.path)
	}
	return nil
}
