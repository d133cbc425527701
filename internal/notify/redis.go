package notify

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis fans out through redis pub/sub so several clients sharing one
// database see each other's writes.
type Redis struct {
	client *redis.Client
	sugar  *zap.SugaredLogger
}

func NewRedis(sugar *zap.SugaredLogger, client *redis.Client) *Redis {
	return &Redis{client: client, sugar: sugar}
}

func (r *Redis) Publish(ctx context.Context, topic string) error {
	return r.client.Publish(ctx, topic, "changed").Err()
}

func (r *Redis) Subscribe(topic string, fn func()) func() {
	ctx, cancel := context.WithCancel(context.Background())

	pubsub := r.client.Subscribe(ctx, topic)

	// wait for the subscription to be confirmed so no publish right after
	// this call gets lost
	_, err := pubsub.Receive(ctx)
	if err != nil {
		r.sugar.Errorf("Couldn't subscribe to redis channel [%s]: %v", topic, err)
		cancel()
		_ = pubsub.Close()
		return func() {}
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			err := pubsub.Close()
			if err != nil {
				r.sugar.Debug(err)
			}
		})
	}
}

// Close leaves the redis client open, it's owned by main.
func (r *Redis) Close() error {
	return nil
}
