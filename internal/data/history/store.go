package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studycards/internal/domain/content"
	"github.com/yungbote/studycards/internal/platform/dbctx"
	"github.com/yungbote/studycards/internal/platform/logger"
)

const DefaultLimit = 10

type EventType string

const (
	EventSaved   EventType = "HistoryEntrySaved"
	EventUpdated EventType = "HistoryEntryUpdated"
	EventDeleted EventType = "HistoryEntryDeleted"
)

// Event describes one change to an owner's history.
type Event struct {
	Type    EventType `json:"type"`
	Owner   string    `json:"-"`
	EntryID uuid.UUID `json:"entryId"`
	Topic   string    `json:"topic"`
	At      time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

type NotifierFunc func(ctx context.Context, ev Event)

func (f NotifierFunc) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

// Store is the bounded per-owner history used as the session cache.
type Store struct {
	repo   Repo
	limit  int
	notify Notifier
	log    *logger.Logger
}

func NewStore(repo Repo, limit int, notify Notifier, baseLog *logger.Logger) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if notify == nil {
		notify = NotifierFunc(func(context.Context, Event) {})
	}
	return &Store{
		repo:   repo,
		limit:  limit,
		notify: notify,
		log:    baseLog.With("service", "HistoryStore"),
	}
}

func (s *Store) Limit() int { return s.limit }

// Lookup returns the cached cards for (owner, topic) and bumps the entry's timestamp.
func (s *Store) Lookup(ctx context.Context, owner, topic string) ([]content.Card, bool, error) {
	dbc := dbctx.New(ctx)
	row, err := s.repo.Get(dbc, owner, topic)
	if err != nil {
		return nil, false, err
	}
	if row == nil || len(row.Cards) == 0 {
		return nil, false, nil
	}
	if err := s.repo.Touch(dbc, owner, topic); err != nil {
		s.log.Warn("history touch failed", "owner", owner, "error", err)
	} else {
		s.emit(ctx, EventUpdated, owner, row.ID, row.Topic)
	}
	return []content.Card(row.Cards), true, nil
}

// Save writes cards under (owner, topic) and evicts beyond the limit, oldest first.
func (s *Store) Save(ctx context.Context, owner, topic string, cards []content.Card) error {
	dbc := dbctx.New(ctx)
	row, err := s.repo.Upsert(dbc, owner, topic, cards)
	if err != nil {
		return err
	}
	if row != nil {
		s.emit(ctx, EventSaved, owner, row.ID, row.Topic)
	}
	removed, err := s.repo.Trim(dbc, owner, s.limit)
	if err != nil {
		return err
	}
	for _, e := range removed {
		s.emit(ctx, EventDeleted, owner, e.ID, e.Topic)
	}
	return nil
}

// Append adds cards to an existing entry. Entries are only created by Save, so
// a missing entry (evicted, deleted, or stored under another title) is a no-op.
func (s *Store) Append(ctx context.Context, owner, topic string, cards []content.Card) error {
	row, err := s.repo.AppendCards(dbctx.New(ctx), owner, topic, cards)
	if errors.Is(err, ErrNotFound) {
		s.log.Debug("no history entry to append to", "owner", owner, "topic", topic)
		return nil
	}
	if err != nil {
		return err
	}
	s.emit(ctx, EventUpdated, owner, row.ID, row.Topic)
	return nil
}

func (s *Store) List(ctx context.Context, owner string) ([]*Entry, error) {
	return s.repo.ListRecent(dbctx.New(ctx), owner, s.limit)
}

func (s *Store) Delete(ctx context.Context, owner string, id uuid.UUID) error {
	row, err := s.repo.Delete(dbctx.New(ctx), owner, id)
	if err != nil {
		return err
	}
	s.emit(ctx, EventDeleted, owner, row.ID, row.Topic)
	return nil
}

func (s *Store) emit(ctx context.Context, typ EventType, owner string, id uuid.UUID, topic string) {
	s.notify.Notify(ctx, Event{Type: typ, Owner: owner, EntryID: id, Topic: topic, At: time.Now().UTC()})
}
