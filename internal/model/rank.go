package model

import (
	"context"
	"time"

	"github.com/thep200/github-ranker/cfg"
	"github.com/thep200/github-ranker/internal/errs"
	"github.com/thep200/github-ranker/pkg/db"
	"github.com/thep200/github-ranker/pkg/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Rank stores the previously known place of a repository. Exactly one row
// per repository, overwritten on every rank run.
type Rank struct {
	Model
	RepoID    int64     `json:"repo_id" gorm:"column:repo_id;primaryKey;autoIncrement:false"`
	Place     int       `json:"place" gorm:"column:place;not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// Placement is one (repo, place) pair produced by a rank run.
type Placement struct {
	RepoID int64
	Place  int
}

func NewRank(config *cfg.Config, logger log.Logger, database db.Database) (*Rank, error) {
	return &Rank{
		Model: Model{
			Config: config,
			Logger: logger,
			Db:     database,
		},
	}, nil
}

func (r *Rank) TableName() string {
	return "previous_places"
}

// PlacesByRepo returns the stored place for every ranked repository.
func (r *Rank) PlacesByRepo(ctx context.Context) (map[int64]int, error) {
	db, err := r.Model.Db.Db()
	if err != nil {
		return nil, &errs.Storage{Op: "rank load", Err: err}
	}

	var rows []Rank
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, &errs.Storage{Op: "rank load", Err: err}
	}

	places := make(map[int64]int, len(rows))
	for _, row := range rows {
		places[row.RepoID] = row.Place
	}
	return places, nil
}

// ReplaceAll upserts the freshly computed places in one transaction.
func (r *Rank) ReplaceAll(ctx context.Context, placements []Placement) error {
	db, err := r.Model.Db.Db()
	if err != nil {
		return &errs.Storage{Op: "rank replace", Err: err}
	}

	now := time.Now()
	rows := make([]Rank, 0, len(placements))
	for _, p := range placements {
		rows = append(rows, Rank{RepoID: p.RepoID, Place: p.Place, UpdatedAt: now})
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "repo_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"place", "updated_at"}),
		}).CreateInBatches(rows, 100).Error
	})
	if err != nil {
		return &errs.Storage{Op: "rank replace", Err: err}
	}
	return nil
}
