package bus

import (
	"context"

	"github.com/yungbote/studycards/internal/data/history"
	"github.com/yungbote/studycards/internal/platform/logger"
	"github.com/yungbote/studycards/internal/realtime"
)

// HistoryNotifier publishes history changes on the owner's channel.
func HistoryNotifier(b Bus, log *logger.Logger) history.Notifier {
	log = log.With("component", "HistoryNotifier")
	return history.NotifierFunc(func(ctx context.Context, ev history.Event) {
		if ev.Owner == "" {
			return
		}
		msg := realtime.SSEMessage{
			Channel: realtime.OwnerChannel(ev.Owner),
			Event:   historyEvent(ev.Type),
			Data:    ev,
		}
		if err := b.Publish(context.WithoutCancel(ctx), msg); err != nil {
			log.Warn("history event publish failed", "owner", ev.Owner, "event", ev.Type, "error", err)
		}
	})
}

func historyEvent(t history.EventType) realtime.SSEEvent {
	switch t {
	case history.EventSaved:
		return realtime.SSEEventHistorySaved
	case history.EventDeleted:
		return realtime.SSEEventHistoryDeleted
	default:
		return realtime.SSEEventHistoryUpdated
	}
}
