package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	listenerRetryInitial = time.Second
	listenerRetryMax     = 30 * time.Second
	listenerRetryGiveUp  = 5 * time.Minute
)

type FirestoreStore struct {
	client *firestore.Client
	sugar  *zap.SugaredLogger
}

func NewFirestore(ctx context.Context, sugar *zap.SugaredLogger, projectID string, credentialsFile string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &FirestoreStore{client: client, sugar: sugar}, nil
}

func (s *FirestoreStore) doc(path string) (*firestore.DocumentRef, error) {
	ref := s.client.Doc(path)
	if ref == nil {
		return nil, fmt.Errorf("invalid document path [%s]", path)
	}
	return ref, nil
}

func (s *FirestoreStore) Get(ctx context.Context, path string) (Document, error) {
	ref, err := s.doc(path)
	if err != nil {
		return Document{}, err
	}

	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Document{}, ErrNotFound
	} else if err != nil {
		return Document{}, err
	}

	return Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (s *FirestoreStore) Set(ctx context.Context, path string, data map[string]any) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}

	_, err = ref.Set(ctx, data)
	return err
}

func (s *FirestoreStore) Update(ctx context.Context, path string, fields map[string]any) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}

	_, err = ref.Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func (s *FirestoreStore) Delete(ctx context.Context, path string) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}

	_, err = ref.Delete(ctx)
	return err
}

func (s *FirestoreStore) query(q Query) (firestore.Query, error) {
	if err := validateQuery(q); err != nil {
		return firestore.Query{}, err
	}

	coll := s.client.Collection(q.Path)
	if coll == nil {
		return firestore.Query{}, fmt.Errorf("invalid collection path [%s]", q.Path)
	}

	query := coll.Query
	if len(q.IDs) > 0 {
		refs := make([]*firestore.DocumentRef, 0, len(q.IDs))
		for _, id := range q.IDs {
			refs = append(refs, coll.Doc(id))
		}
		query = query.Where(firestore.DocumentID, "in", refs)
	}
	return query, nil
}

func (s *FirestoreStore) List(ctx context.Context, q Query) ([]Document, error) {
	query, err := s.query(q)
	if err != nil {
		return nil, err
	}

	snaps, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return toDocuments(snaps), nil
}

func (s *FirestoreStore) Watch(q Query, fn Listener) Unsubscribe {
	ctx, cancel := context.WithCancel(context.Background())

	query, err := s.query(q)
	if err != nil {
		go fn(nil, err)
		return Unsubscribe(cancel)
	}

	go s.listen(ctx, q.Path, query, fn)

	return Unsubscribe(cancel)
}

// listen keeps a snapshot listener open until ctx is cancelled, re-opening it
// with backoff when the stream breaks.
func (s *FirestoreStore) listen(ctx context.Context, collection string, query firestore.Query, fn Listener) {
	retry := newListenerBackoff(ctx)

	for {
		err := s.drain(ctx, query, fn, retry)
		if ctx.Err() != nil {
			return
		}

		s.sugar.Warnf("Snapshot listener on [%s] broke: %v", collection, err)
		fn(nil, err)

		wait := retry.NextBackOff()
		if wait == backoff.Stop {
			s.sugar.Errorf("Giving up on snapshot listener for [%s]", collection)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (s *FirestoreStore) drain(ctx context.Context, query firestore.Query, fn Listener, retry backoff.BackOff) error {
	it := query.Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			return err
		}

		snaps, err := snap.Documents.GetAll()
		if err != nil {
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		retry.Reset()
		fn(toDocuments(snaps), nil)
	}
}

func (s *FirestoreStore) Close() error {
	err := s.client.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func toDocuments(snaps []*firestore.DocumentSnapshot) []Document {
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs
}

func newListenerBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = listenerRetryInitial
	b.MaxInterval = listenerRetryMax
	b.MaxElapsedTime = listenerRetryGiveUp
	b.RandomizationFactor = 0.5
	b.Reset()
	return backoff.WithContext(b, ctx)
}
