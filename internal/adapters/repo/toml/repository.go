// Package toml stores each session in its own TOML file.
package toml

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bnema/lisp-sessions/internal/domain"
	"github.com/bnema/lisp-sessions/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	storePathKey      = "store.path"
	sessionFileMode   = 0o600
	sessionDirMode    = 0o700
	sessionsConfigDir = ".lses"
	sessionsDirName   = "sessions"
	sessionFilePrefix = "session-"
	sessionFileExt    = ".toml"
	tempFilePattern   = ".session-*.toml.tmp"
)

type Repository struct {
	dir string
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.SessionRepository = (*Repository)(nil)

// NewRepository stores sessions under store.path, or ~/.lses/sessions when
// the key is unset.
func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	dir := cfg.GetString(storePathKey)
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(homeDir, sessionsConfigDir, sessionsDirName)
	}

	dir, err := normalizeDir(dir)
	if err != nil {
		return nil, err
	}

	return &Repository{dir: dir}, nil
}

func (r *Repository) Dir() string {
	return r.dir
}

func (r *Repository) Get(ctx context.Context, key domain.ThreadKey) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	path := r.pathForKey(key)
	mu := lockForPath(path)
	mu.RLock()
	defer mu.RUnlock()

	file, err := readSessionFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, key)
		}
		return domain.Session{}, err
	}

	return fromSchema(file.Session), nil
}

func (r *Repository) Save(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := session.Validate(); err != nil {
		return err
	}

	path := r.pathForKey(session.Key)
	mu := lockForPath(path)
	mu.Lock()
	defer mu.Unlock()

	return r.writeSessionFile(path, sessionFileSchema{Session: toSchema(session)})
}

func (r *Repository) Create(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := session.Validate(); err != nil {
		return err
	}

	path := r.pathForKey(session.Key)
	mu := lockForPath(path)
	mu.Lock()
	defer mu.Unlock()

	err := r.publishSessionFile(path, sessionFileSchema{Session: toSchema(session)}, false)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", domain.ErrSessionExists, session.Key)
	}
	return err
}

func (r *Repository) List(ctx context.Context) ([]domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions directory: %w", err)
	}

	sessions := make([]domain.Session, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, sessionFilePrefix) || !strings.HasSuffix(name, sessionFileExt) {
			continue
		}

		path := filepath.Join(r.dir, name)
		mu := lockForPath(path)
		mu.RLock()
		file, err := readSessionFile(path)
		mu.RUnlock()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		sessions = append(sessions, fromSchema(file.Session))
	}

	return sessions, nil
}

func (r *Repository) pathForKey(key domain.ThreadKey) string {
	return filepath.Join(r.dir, sessionFilePrefix+url.PathEscape(string(key))+sessionFileExt)
}

func readSessionFile(path string) (sessionFileSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return sessionFileSchema{}, err
		}
		return sessionFileSchema{}, fmt.Errorf("read session file: %w", err)
	}

	var file sessionFileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return sessionFileSchema{}, fmt.Errorf("decode session file %s: %w", filepath.Base(path), err)
	}
	if err := file.validateVersion(); err != nil {
		return sessionFileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizeDir(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve sessions path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *Repository) writeSessionFile(path string, file sessionFileSchema) error {
	return r.publishSessionFile(path, file, true)
}

// publishSessionFile writes file to a temp file and moves it to path. With
// replace unset the temp file is hard-linked instead, which fails when path
// already exists, even if another process created it a moment ago.
func (r *Repository) publishSessionFile(path string, file sessionFileSchema, replace bool) error {
	file.applyDefaults()

	if err := os.MkdirAll(r.dir, sessionDirMode); err != nil {
		return fmt.Errorf("create sessions directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}

	tempFile, err := os.CreateTemp(r.dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp session file: %w", err)
	}

	if err := tempFile.Chmod(sessionFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp session file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp session file: %w", err)
	}

	if !replace {
		if err := os.Link(tempName, path); err != nil {
			return fmt.Errorf("create session file: %w", err)
		}
		return nil
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}

	cleanup = false
	return nil
}

func toSchema(session domain.Session) sessionSchema {
	participants := make([]string, 0, len(session.Participants))
	for _, participant := range session.Participants {
		participants = append(participants, string(participant))
	}

	return sessionSchema{
		Key:          string(session.Key),
		Participants: participants,
		Code:         session.Code.Text(),
		CreatedAt:    formatTime(session.CreatedAt),
		UpdatedAt:    formatTime(session.UpdatedAt),
	}
}

func fromSchema(schema sessionSchema) domain.Session {
	participants := make([]domain.ParticipantID, 0, len(schema.Participants))
	for _, participant := range schema.Participants {
		participants = append(participants, domain.ParticipantID(participant))
	}

	session := domain.Session{
		Key:          domain.ThreadKey(schema.Key),
		Participants: participants,
		Code:         domain.NewCodeBuffer(schema.Code),
		CreatedAt:    parseTime(schema.CreatedAt),
		UpdatedAt:    parseTime(schema.UpdatedAt),
	}
	session.NormalizeParticipants()
	return session
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339Nano)
}
