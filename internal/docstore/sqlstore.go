package docstore

import (
	"chatapp-client/internal/database"
	"chatapp-client/internal/notify"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// SQLStore keeps documents as JSON rows and announces writes on a notifier so
// watches can re-read their collection.
type SQLStore struct {
	db       *sql.DB
	dialect  string
	notifier notify.Notifier
	sugar    *zap.SugaredLogger
}

func NewSQL(sugar *zap.SugaredLogger, db *sql.DB, dialect string, notifier notify.Notifier) *SQLStore {
	return &SQLStore{
		db:       db,
		dialect:  dialect,
		notifier: notifier,
		sugar:    sugar,
	}
}

func (s *SQLStore) Get(ctx context.Context, path string) (Document, error) {
	path = strings.Trim(path, "/")

	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM documents WHERE path = ?", path).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	} else if err != nil {
		return Document{}, err
	}

	data, err := unmarshalData(raw)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: ID(path), Data: data}, nil
}

func (s *SQLStore) Set(ctx context.Context, path string, data map[string]any) error {
	path = strings.Trim(path, "/")

	bytes, err := json.Marshal(data)
	if err != nil {
		return err
	}

	var query string
	if s.dialect == database.DialectMysql {
		query = "INSERT INTO documents (path, parent, doc_id, data) VALUES (?, ?, ?, ?) ON DUPLICATE KEY UPDATE data = VALUES(data)"
	} else {
		query = "INSERT INTO documents (path, parent, doc_id, data) VALUES (?, ?, ?, ?) ON CONFLICT(path) DO UPDATE SET data = excluded.data"
	}

	_, err = s.db.ExecContext(ctx, query, path, Parent(path), ID(path), string(bytes))
	if err != nil {
		return err
	}

	s.announce(ctx, path)
	return nil
}

func (s *SQLStore) Update(ctx context.Context, path string, fields map[string]any) error {
	path = strings.Trim(path, "/")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		// no-op after commit
		_ = tx.Rollback()
	}()

	var raw string
	err = tx.QueryRowContext(ctx, "SELECT data FROM documents WHERE path = ?", path).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	} else if err != nil {
		return err
	}

	data, err := unmarshalData(raw)
	if err != nil {
		return err
	}
	for k, v := range fields {
		data[k] = v
	}

	bytes, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, "UPDATE documents SET data = ? WHERE path = ?", string(bytes), path)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	s.announce(ctx, path)
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, path string) error {
	path = strings.Trim(path, "/")

	result, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE path = ?", path)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err == nil && affected > 0 {
		s.announce(ctx, path)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context, q Query) ([]Document, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	collection := strings.Trim(q.Path, "/")

	query := "SELECT doc_id, data FROM documents WHERE parent = ?"
	args := []any{collection}
	if len(q.IDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(q.IDs)), ", ")
		query = fmt.Sprintf("%s AND doc_id IN (%s)", query, placeholders)
		for _, id := range q.IDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY doc_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		err := rows.Close()
		if err != nil {
			s.sugar.Error(err)
		}
	}()

	docs := []Document{}
	for rows.Next() {
		var id, raw string
		err := rows.Scan(&id, &raw)
		if err != nil {
			return nil, err
		}

		data, err := unmarshalData(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: id, Data: data})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}

func (s *SQLStore) Watch(q Query, fn Listener) Unsubscribe {
	ctx, cancel := context.WithCancel(context.Background())

	// one pending signal is enough, a re-read covers every write before it
	changed := make(chan struct{}, 1)
	changed <- struct{}{}

	unsubscribe := s.notifier.Subscribe(notify.Topic(strings.Trim(q.Path, "/")), func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
			}

			docs, err := s.List(ctx, q)
			if ctx.Err() != nil {
				return
			}
			fn(docs, err)
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }
}

func (s *SQLStore) Close() error {
	if err := s.notifier.Close(); err != nil {
		s.sugar.Warn(err)
	}
	return s.db.Close()
}

func (s *SQLStore) announce(ctx context.Context, path string) {
	err := s.notifier.Publish(ctx, notify.Topic(Parent(path)))
	if err != nil {
		s.sugar.Warnf("Couldn't announce change of [%s]: %v", path, err)
	}
}

func unmarshalData(raw string) (map[string]any, error) {
	data := map[string]any{}
	if raw == "" {
		return data, nil
	}
	err := json.Unmarshal([]byte(raw), &data)
	return data, err
}
