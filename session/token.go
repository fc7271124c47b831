// Package session supplies the bearer credential for the board API. Login,
// registration, and token issuance belong to an external auth collaborator;
// this package only reads what that collaborator stores.
package session

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// ErrNoToken signals a missing or expired session credential. The caller
// delegates to the auth collaborator (redirect to login); nothing in the
// sync core can recover from it.
var ErrNoToken = errors.New("no session token")

// TokenSource supplies the bearer token attached to API requests.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a fixed in-memory token, for tests and for environments
// where the credential is passed directly.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token() (string, error) {
	if t == "" {
		return "", ErrNoToken
	}
	return string(t), nil
}

// FileToken reads the bearer token from a file maintained by the external
// auth process. Reload picks up rotations; Watch automates that with
// fsnotify.
type FileToken struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	current string
}

// NewFileToken creates a FileToken and performs the initial read. A
// missing file is not an error at construction time; Token reports
// ErrNoToken until the auth process writes the file and Reload runs.
func NewFileToken(path string, logger *slog.Logger) *FileToken {
	if logger == nil {
		logger = slog.Default()
	}
	f := &FileToken{path: path, logger: logger}
	if err := f.Reload(); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to read session token file",
			"path", path,
			"error", err)
	}
	return f
}

// Token implements TokenSource.
func (f *FileToken) Token() (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.current == "" {
		return "", ErrNoToken
	}
	return f.current, nil
}

// Reload re-reads the token file. An empty or missing file clears the
// current token.
func (f *FileToken) Reload() error {
	data, err := os.ReadFile(f.path)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.current = ""
		return err
	}
	f.current = strings.TrimSpace(string(data))
	return nil
}
