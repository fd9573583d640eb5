package bus

import (
	"context"

	"github.com/yungbote/studycards/internal/realtime"
)

// Bus carries SSE messages between server instances.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Ping(ctx context.Context) error
	Close() error
}

// Local delivers straight to onMsg without leaving the process.
type Local struct {
	onMsg func(realtime.SSEMessage)
}

func NewLocal() *Local { return &Local{} }

func (l *Local) Publish(_ context.Context, msg realtime.SSEMessage) error {
	if l.onMsg != nil {
		l.onMsg(msg)
	}
	return nil
}

func (l *Local) StartForwarder(_ context.Context, onMsg func(m realtime.SSEMessage)) error {
	l.onMsg = onMsg
	return nil
}

func (l *Local) Ping(context.Context) error { return nil }

func (l *Local) Close() error { return nil }
