package notify

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

// Local fans out inside this process. Used when the client is self contained.
type Local struct {
	pubsub *gochannel.GoChannel
	sugar  *zap.SugaredLogger
}

func NewLocal(sugar *zap.SugaredLogger) *Local {
	return &Local{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 64,
				Persistent:          false,
			},
			watermill.NopLogger{},
		),
		sugar: sugar,
	}
}

func (l *Local) Publish(_ context.Context, topic string) error {
	return l.pubsub.Publish(topic, message.NewMessage(watermill.NewUUID(), nil))
}

func (l *Local) Subscribe(topic string, fn func()) func() {
	ctx, cancel := context.WithCancel(context.Background())

	messages, err := l.pubsub.Subscribe(ctx, topic)
	if err != nil {
		l.sugar.Errorf("Couldn't subscribe to local topic [%s]: %v", topic, err)
		cancel()
		return func() {}
	}

	go func() {
		for msg := range messages {
			msg.Ack()
			fn()
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }
}

func (l *Local) Close() error {
	return l.pubsub.Close()
}
