// Package docstore is the document database the client synchronizes against.
// Paths alternate collection and document ids ("servers/42/channels/7").
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"strings"
)

// MaxInFilter is the most ids a single Query.IDs filter may carry.
const MaxInFilter = 30

var ErrNotFound = errors.New("document not found")

type Document struct {
	ID   string
	Data map[string]any
}

// Query selects the documents of one collection, optionally only those whose
// id is in IDs.
type Query struct {
	Path string
	IDs  []string
}

// Listener receives the complete result set of a watched query, or an error.
type Listener func(docs []Document, err error)

// Unsubscribe stops a watch. Calling it more than once is fine.
type Unsubscribe func()

type Store interface {
	Get(ctx context.Context, path string) (Document, error)
	// Set creates or replaces the document.
	Set(ctx context.Context, path string, data map[string]any) error
	// Update merges top level fields into an existing document.
	Update(ctx context.Context, path string, fields map[string]any) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, q Query) ([]Document, error)
	// Watch delivers the result set of q now and after every change to it.
	// Deliveries for one watch never overlap.
	Watch(q Query, fn Listener) Unsubscribe
	Close() error
}

// Encode turns a JSON tagged struct into document data.
func Encode(v any) (map[string]any, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// Decode fills v from the document. The document id is exposed as "id" when
// the data doesn't carry one.
func Decode(doc Document, v any) error {
	data := doc.Data
	if _, ok := data["id"]; !ok {
		data = make(map[string]any, len(doc.Data)+1)
		for k, val := range doc.Data {
			data[k] = val
		}
		data["id"] = doc.ID
	}

	bytes, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, v)
}

// DecodeAll decodes every document, skipping the ones that don't fit T.
func DecodeAll[T any](docs []Document) ([]T, []error) {
	items := make([]T, 0, len(docs))
	var errs []error
	for _, doc := range docs {
		var item T
		if err := Decode(doc, &item); err != nil {
			errs = append(errs, err)
			continue
		}
		items = append(items, item)
	}
	return items, errs
}

// Parent returns the collection path of a document path.
func Parent(docPath string) string {
	return path.Dir(strings.Trim(docPath, "/"))
}

// ID returns the last segment of a document path.
func ID(docPath string) string {
	return path.Base(strings.Trim(docPath, "/"))
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func validateQuery(q Query) error {
	if q.Path == "" {
		return errors.New("query has no collection path")
	}
	if len(q.IDs) > MaxInFilter {
		return errors.New("query id filter exceeds 30 values")
	}
	return nil
}
