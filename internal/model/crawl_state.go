package model

import (
	"context"
	"errors"
	"time"

	"github.com/thep200/github-ranker/cfg"
	"github.com/thep200/github-ranker/internal/errs"
	"github.com/thep200/github-ranker/pkg/db"
	"github.com/thep200/github-ranker/pkg/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CrawlState is the persisted resumption point. A run terminated by the
// quota or the time budget leaves behind the last processed IDs so the next
// invocation continues strictly after them instead of restarting.
type CrawlState struct {
	Model
	Name           string    `json:"name" gorm:"column:name;primaryKey;type:varchar(64)"`
	Phase          string    `json:"phase" gorm:"column:phase;type:varchar(32)"`
	LastDiscoverID int64     `json:"last_discover_id" gorm:"column:last_discover_id;default:0"`
	LastUpdateID   int64     `json:"last_update_id" gorm:"column:last_update_id;default:0"`
	Discovered     int       `json:"discovered" gorm:"column:discovered;default:0"`
	Updated        int       `json:"updated" gorm:"column:updated;default:0"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func NewCrawlState(config *cfg.Config, logger log.Logger, database db.Database) (*CrawlState, error) {
	return &CrawlState{
		Model: Model{
			Config: config,
			Logger: logger,
			Db:     database,
		},
	}, nil
}

func (c *CrawlState) TableName() string {
	return "crawl_states"
}

// Load returns the stored state for name, or a fresh zero state when none
// has been saved yet.
func (c *CrawlState) Load(ctx context.Context, name string) (*CrawlState, error) {
	db, err := c.Model.Db.Db()
	if err != nil {
		return nil, &errs.Storage{Op: "state load", Err: err}
	}

	state := &CrawlState{}
	err = db.WithContext(ctx).Where("name = ?", name).First(state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &CrawlState{Name: name}, nil
	}
	if err != nil {
		return nil, &errs.Storage{Op: "state load", Err: err}
	}
	return state, nil
}

// Save upserts the resumption point.
func (c *CrawlState) Save(ctx context.Context, state *CrawlState) error {
	db, err := c.Model.Db.Db()
	if err != nil {
		return &errs.Storage{Op: "state save", Err: err}
	}

	state.UpdatedAt = time.Now()
	row := CrawlState{
		Name:           state.Name,
		Phase:          state.Phase,
		LastDiscoverID: state.LastDiscoverID,
		LastUpdateID:   state.LastUpdateID,
		Discovered:     state.Discovered,
		Updated:        state.Updated,
		UpdatedAt:      state.UpdatedAt,
	}

	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"phase", "last_discover_id", "last_update_id", "discovered", "updated", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return &errs.Storage{Op: "state save", Err: err}
	}
	return nil
}
