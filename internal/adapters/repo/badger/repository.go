// Package badger keeps sessions in a Badger key-value store, one
// protobuf-encoded record per session.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bnema/lisp-sessions/internal/domain"
	"github.com/bnema/lisp-sessions/internal/ports"
	"github.com/dgraph-io/badger/v4"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	keyPrefix     = "session:"
	recordVersion = 1
)

type Repository struct {
	db  *badger.DB
	log *slog.Logger
}

var _ ports.SessionRepository = (*Repository)(nil)

func NewRepository(db *badger.DB, log *slog.Logger) *Repository {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Repository{db: db, log: log}
}

// Open opens a store at path. An empty path keeps everything in memory.
func Open(path string, log *slog.Logger) (*Repository, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return NewRepository(db, log), nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Get(ctx context.Context, key domain.ThreadKey) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	var session domain.Session
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			decoded, err := decodeSession(v)
			if err != nil {
				return err
			}
			session = decoded
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, key)
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session %s: %w", key, err)
	}

	return session, nil
}

func (r *Repository) Save(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeSession(session)
	if err != nil {
		return err
	}

	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(session.Key), data)
	})
}

func (r *Repository) Create(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeSession(session)
	if err != nil {
		return err
	}

	return r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(recordKey(session.Key))
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s", domain.ErrSessionExists, session.Key)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(recordKey(session.Key), data)
	})
}

func (r *Repository) List(ctx context.Context) ([]domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sessions []domain.Session
	prefix := []byte(keyPrefix)

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				session, err := decodeSession(v)
				if err != nil {
					r.log.Warn("skipping unreadable session record", "key", string(item.Key()), "error", err)
					return nil
				}
				sessions = append(sessions, session)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return sessions, nil
}

func recordKey(key domain.ThreadKey) []byte {
	return []byte(keyPrefix + string(key))
}

func encodeSession(session domain.Session) ([]byte, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}

	participants := make([]any, 0, len(session.Participants))
	for _, p := range session.Participants {
		participants = append(participants, string(p))
	}

	record, err := structpb.NewStruct(map[string]any{
		"version":      recordVersion,
		"key":          string(session.Key),
		"participants": participants,
		"code":         session.Code.Text(),
		"created_at":   formatTime(session.CreatedAt),
		"updated_at":   formatTime(session.UpdatedAt),
	})
	if err != nil {
		return nil, fmt.Errorf("build session record: %w", err)
	}

	data, err := proto.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode session record: %w", err)
	}
	return data, nil
}

func decodeSession(data []byte) (domain.Session, error) {
	var record structpb.Struct
	if err := proto.Unmarshal(data, &record); err != nil {
		return domain.Session{}, fmt.Errorf("decode session record: %w", err)
	}

	fields := record.GetFields()
	if v := int(fields["version"].GetNumberValue()); v > recordVersion {
		return domain.Session{}, fmt.Errorf("unsupported session record version %d (current %d)", v, recordVersion)
	}

	var participants []domain.ParticipantID
	for _, p := range fields["participants"].GetListValue().GetValues() {
		participants = append(participants, domain.ParticipantID(p.GetStringValue()))
	}

	session := domain.Session{
		Key:          domain.ThreadKey(fields["key"].GetStringValue()),
		Participants: participants,
		Code:         domain.NewCodeBuffer(fields["code"].GetStringValue()),
		CreatedAt:    parseTime(fields["created_at"].GetStringValue()),
		UpdatedAt:    parseTime(fields["updated_at"].GetStringValue()),
	}
	session.NormalizeParticipants()
	return session, nil
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
