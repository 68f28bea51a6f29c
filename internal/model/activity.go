package model

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/thep200/github-ranker/cfg"
	"github.com/thep200/github-ranker/internal/errs"
	"github.com/thep200/github-ranker/pkg/db"
	"github.com/thep200/github-ranker/pkg/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxAuthorLength = 100

// Activity is commit activity for one repository on one UTC calendar day.
// Rows are appended or updated under the monotonic-date policy and never
// deleted: once a later day exists for a repository, earlier days are closed.
type Activity struct {
	Model
	ID        uint           `json:"-" gorm:"column:id;primaryKey"`
	RepoID    int64          `json:"repo_id" gorm:"column:repo_id;not null;uniqueIndex:idx_repo_date"`
	Date      time.Time      `json:"date" gorm:"column:date;not null;uniqueIndex:idx_repo_date"`
	Commits   int            `json:"commits" gorm:"column:commits;default:0"`
	Authors   datatypes.JSON `json:"authors" gorm:"column:authors"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"column:updated_at"`
}

func NewActivity(config *cfg.Config, logger log.Logger, database db.Database) (*Activity, error) {
	return &Activity{
		Model: Model{
			Config: config,
			Logger: logger,
			Db:     database,
		},
	}, nil
}

func (a *Activity) TableName() string {
	return "activity"
}

// AuthorList decodes the stored author set.
func (a *Activity) AuthorList() []string {
	if len(a.Authors) == 0 {
		return nil
	}
	var authors []string
	if err := json.Unmarshal(a.Authors, &authors); err != nil {
		return nil
	}
	return authors
}

// LastDate returns the most recent activity day recorded for a repository.
func (a *Activity) LastDate(ctx context.Context, repoID int64) (time.Time, bool, error) {
	db, err := a.Model.Db.Db()
	if err != nil {
		return time.Time{}, false, &errs.Storage{Op: "activity last date", Err: err}
	}

	var row Activity
	err = db.WithContext(ctx).Where("repo_id = ?", repoID).Order("date DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, &errs.Storage{Op: "activity last date", Err: err}
	}
	return DateOnly(row.Date), true, nil
}

// Get returns the bucket for one (repo, day), or nil when absent.
func (a *Activity) Get(ctx context.Context, repoID int64, date time.Time) (*Activity, error) {
	db, err := a.Model.Db.Db()
	if err != nil {
		return nil, &errs.Storage{Op: "activity get", Err: err}
	}

	var row Activity
	err = db.WithContext(ctx).Where("repo_id = ? AND date = ?", repoID, DateOnly(date)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &errs.Storage{Op: "activity get", Err: err}
	}
	return &row, nil
}

// Upsert writes one day's bucket under the monotonic-date policy:
//   - days before the newest stored day are closed and left untouched,
//   - the newest stored day itself is merged in place: the fresh full-day
//     fetch is authoritative but the bucket never shrinks (commit count
//     keeps the larger value, authors union),
//   - later days insert new rows.
//
// Returns whether a row was written.
func (a *Activity) Upsert(ctx context.Context, repoID int64, date time.Time, commits int, authors []string) (bool, error) {
	db, err := a.Model.Db.Db()
	if err != nil {
		return false, &errs.Storage{Op: "activity upsert", Err: err}
	}

	day := DateOnly(date)
	changed := false

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last Activity
		err := tx.Where("repo_id = ?", repoID).Order("date DESC").First(&last).Error
		hasLast := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if hasLast {
			lastDay := DateOnly(last.Date)
			if day.Before(lastDay) {
				return nil
			}
			if day.Equal(lastDay) {
				merged := mergeBucket(&last, commits, authors)
				if !merged {
					return nil
				}
				changed = true
				return tx.Model(&Activity{}).
					Where("repo_id = ? AND date = ?", repoID, day).
					Updates(map[string]interface{}{
						"commits":    last.Commits,
						"authors":    last.Authors,
						"updated_at": time.Now(),
					}).Error
			}
		}

		encoded, err := encodeAuthors(authors)
		if err != nil {
			return err
		}
		changed = true
		return tx.Create(&Activity{
			RepoID:    repoID,
			Date:      day,
			Commits:   commits,
			Authors:   encoded,
			UpdatedAt: time.Now(),
		}).Error
	})
	if err != nil {
		return false, &errs.Storage{Op: "activity upsert", Err: err}
	}
	return changed, nil
}

// mergeBucket folds a re-fetched open day into the stored row. Reports
// whether anything actually changed so unchanged days skip the write.
func mergeBucket(stored *Activity, commits int, authors []string) bool {
	changed := false

	if commits > stored.Commits {
		stored.Commits = commits
		changed = true
	}

	set := make(map[string]struct{})
	for _, name := range stored.AuthorList() {
		set[name] = struct{}{}
	}
	before := len(set)
	for _, name := range authors {
		set[name] = struct{}{}
	}
	if len(set) > before {
		union := make([]string, 0, len(set))
		for name := range set {
			union = append(union, name)
		}
		encoded, err := encodeAuthors(union)
		if err == nil {
			stored.Authors = encoded
			changed = true
		}
	}

	return changed
}

func encodeAuthors(authors []string) (datatypes.JSON, error) {
	capped := make([]string, 0, len(authors))
	for _, name := range authors {
		if name == "" || len(name) > maxAuthorLength {
			continue
		}
		capped = append(capped, name)
	}
	sort.Strings(capped)

	encoded, err := json.Marshal(capped)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(encoded), nil
}
