// Package history persists generated card sets per owner and topic.
package history

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/studycards/internal/domain/content"
)

// Entry is one cached explanation. Topic is the exact cache key; (Owner, Topic) is unique.
type Entry struct {
	ID          uuid.UUID                         `gorm:"type:uuid;primaryKey" json:"id"`
	Owner       string                            `gorm:"not null;uniqueIndex:idx_history_owner_topic,priority:1;index:idx_history_owner_updated,priority:1" json:"-"`
	Topic       string                            `gorm:"not null;uniqueIndex:idx_history_owner_topic,priority:2" json:"topic"`
	Cards       datatypes.JSONSlice[content.Card] `gorm:"not null" json:"cards"`
	LastUpdated time.Time                         `gorm:"not null;index:idx_history_owner_updated,priority:2" json:"lastUpdated"`
	CreatedAt   time.Time                         `gorm:"not null" json:"createdAt"`
}

func (Entry) TableName() string { return "history_entry" }

func (e *Entry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
