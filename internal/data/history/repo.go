package history

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/studycards/internal/domain/content"
	"github.com/yungbote/studycards/internal/platform/dbctx"
	"github.com/yungbote/studycards/internal/platform/logger"
)

var ErrNotFound = errors.New("history entry not found")

type Repo interface {
	Get(dbc dbctx.Context, owner, topic string) (*Entry, error)
	Upsert(dbc dbctx.Context, owner, topic string, cards []content.Card) (*Entry, error)
	Touch(dbc dbctx.Context, owner, topic string) error
	AppendCards(dbc dbctx.Context, owner, topic string, cards []content.Card) (*Entry, error)
	ListRecent(dbc dbctx.Context, owner string, limit int) ([]*Entry, error)
	Trim(dbc dbctx.Context, owner string, keep int) ([]*Entry, error)
	Delete(dbc dbctx.Context, owner string, id uuid.UUID) (*Entry, error)
}

type repo struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewRepo(db *gorm.DB, baseLog *logger.Logger) Repo {
	return &repo{
		db:  db,
		log: baseLog.With("repo", "HistoryRepo"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Get returns nil, nil when no entry exists.
func (r *repo) Get(dbc dbctx.Context, owner, topic string) (*Entry, error) {
	if owner == "" {
		return nil, nil
	}
	var row Entry
	res := dbc.Conn(r.db).Where("owner = ? AND topic = ?", owner, topic).Limit(1).Find(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &row, nil
}

// Upsert writes cards under (owner, topic); an existing entry is overwritten.
func (r *repo) Upsert(dbc dbctx.Context, owner, topic string, cards []content.Card) (*Entry, error) {
	if owner == "" || strings.TrimSpace(topic) == "" {
		return nil, errors.New("owner and topic required")
	}
	now := r.now()
	row := &Entry{
		ID:          uuid.New(),
		Owner:       owner,
		Topic:       topic,
		Cards:       cards,
		LastUpdated: now,
		CreatedAt:   now,
	}
	err := dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner"}, {Name: "topic"}},
			DoUpdates: clause.AssignmentColumns([]string{"cards", "last_updated"}),
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	return r.Get(dbc, owner, topic)
}

func (r *repo) Touch(dbc dbctx.Context, owner, topic string) error {
	return dbc.Conn(r.db).
		Model(&Entry{}).
		Where("owner = ? AND topic = ?", owner, topic).
		Update("last_updated", r.now()).Error
}

func (r *repo) AppendCards(dbc dbctx.Context, owner, topic string, cards []content.Card) (*Entry, error) {
	var out *Entry
	err := dbc.Conn(r.db).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		row, err := r.Get(inner, owner, topic)
		if err != nil {
			return err
		}
		if row == nil {
			return ErrNotFound
		}
		merged := make([]content.Card, 0, len(row.Cards)+len(cards))
		merged = append(merged, row.Cards...)
		merged = append(merged, cards...)
		row.Cards = merged
		row.LastUpdated = r.now()
		if err := tx.Model(&Entry{}).Where("id = ?", row.ID).Updates(map[string]any{
			"cards":        row.Cards,
			"last_updated": row.LastUpdated,
		}).Error; err != nil {
			return err
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListRecent returns the owner's entries, most recently updated first.
func (r *repo) ListRecent(dbc dbctx.Context, owner string, limit int) ([]*Entry, error) {
	var rows []*Entry
	q := dbc.Conn(r.db).Where("owner = ?", owner).Order("last_updated DESC").Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Trim deletes everything beyond the keep most recent entries and returns what it removed.
func (r *repo) Trim(dbc dbctx.Context, owner string, keep int) ([]*Entry, error) {
	if keep < 0 {
		keep = 0
	}
	all, err := r.ListRecent(dbc, owner, 0)
	if err != nil {
		return nil, err
	}
	if len(all) <= keep {
		return nil, nil
	}
	stale := all[keep:]
	ids := make([]uuid.UUID, 0, len(stale))
	for _, e := range stale {
		ids = append(ids, e.ID)
	}
	if err := dbc.Conn(r.db).Where("owner = ? AND id IN ?", owner, ids).Delete(&Entry{}).Error; err != nil {
		return nil, err
	}
	r.log.Debug("history trimmed", "owner", owner, "removed", len(stale))
	return stale, nil
}

// Delete removes one entry owned by owner.
func (r *repo) Delete(dbc dbctx.Context, owner string, id uuid.UUID) (*Entry, error) {
	var row Entry
	res := dbc.Conn(r.db).Where("owner = ? AND id = ?", owner, id).Limit(1).Find(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	if err := dbc.Conn(r.db).Delete(&Entry{}, "id = ?", row.ID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
