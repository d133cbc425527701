// Package notify tells watchers that a collection changed. Payloads are empty:
// subscribers re-read what they need.
package notify

import "context"

type Notifier interface {
	Publish(ctx context.Context, topic string) error
	// Subscribe calls fn after every publish on topic until the returned func
	// is called.
	Subscribe(topic string, fn func()) func()
	Close() error
}

func Topic(collection string) string {
	return "docs:" + collection
}
