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
)

const (
	maxUserLength     = 39
	maxNameLength     = 100
	maxLanguageLength = 100
)

// Repo is a tracked repository. ID is the GitHub numeric ID, assigned at
// first discovery and never changed; rows are never deleted by the pipeline.
type Repo struct {
	Model
	ID         int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement:false"`
	User       string    `json:"user" gorm:"column:user;type:varchar(39);not null;uniqueIndex:idx_user_name"`
	Name       string    `json:"name" gorm:"column:name;type:varchar(100);not null;uniqueIndex:idx_user_name"`
	StarCount  int       `json:"star_count" gorm:"column:star_count;default:0"`
	WatchCount int       `json:"watch_count" gorm:"column:watch_count;default:0"`
	ForkCount  int       `json:"fork_count" gorm:"column:fork_count;default:0"`
	IssueCount int       `json:"issue_count" gorm:"column:issue_count;default:0"`
	Language   *string   `json:"language" gorm:"column:language;type:varchar(100)"`
	CreatedAt  time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// StarRow is the slice of repository state the rank engine needs.
type StarRow struct {
	ID        int64
	StarCount int
}

func NewRepo(config *cfg.Config, logger log.Logger, database db.Database) (*Repo, error) {
	return &Repo{
		Model: Model{
			Config: config,
			Logger: logger,
			Db:     database,
		},
	}, nil
}

func (r *Repo) TableName() string {
	return "repos"
}

// FindByOwnerName returns nil without error when the pair is not tracked.
func (r *Repo) FindByOwnerName(ctx context.Context, user, name string) (*Repo, error) {
	db, err := r.Model.Db.Db()
	if err != nil {
		return nil, &errs.Storage{Op: "repo lookup", Err: err}
	}

	found := &Repo{}
	err = db.WithContext(ctx).Where("user = ? AND name = ?", user, name).First(found).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &errs.Storage{Op: "repo lookup", Err: err}
	}
	return found, nil
}

func (r *Repo) FindByID(ctx context.Context, id int64) (*Repo, error) {
	db, err := r.Model.Db.Db()
	if err != nil {
		return nil, &errs.Storage{Op: "repo lookup", Err: err}
	}

	found := &Repo{}
	err = db.WithContext(ctx).Where("id = ?", id).First(found).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &errs.Storage{Op: "repo lookup", Err: err}
	}
	return found, nil
}

// ListRange returns up to limit tracked repositories with id strictly above
// since, ascending. until = 0 leaves the range open-ended, otherwise the
// range is [since, until) exclusive on both the lower and upper bound.
func (r *Repo) ListRange(ctx context.Context, since, until int64, limit int) ([]Repo, error) {
	db, err := r.Model.Db.Db()
	if err != nil {
		return nil, &errs.Storage{Op: "repo range", Err: err}
	}

	query := db.WithContext(ctx).Where("id > ?", since)
	if until > 0 {
		query = query.Where("id < ?", until)
	}

	var repos []Repo
	if err := query.Order("id ASC").Limit(limit).Find(&repos).Error; err != nil {
		return nil, &errs.Storage{Op: "repo range", Err: err}
	}
	return repos, nil
}

// ListStars loads the metric snapshot for all tracked repositories.
func (r *Repo) ListStars(ctx context.Context) ([]StarRow, error) {
	db, err := r.Model.Db.Db()
	if err != nil {
		return nil, &errs.Storage{Op: "repo stars", Err: err}
	}

	var rows []StarRow
	if err := db.WithContext(ctx).Model(&Repo{}).Select("id", "star_count").Scan(&rows).Error; err != nil {
		return nil, &errs.Storage{Op: "repo stars", Err: err}
	}
	return rows, nil
}

func (r *Repo) Count(ctx context.Context) (int64, error) {
	db, err := r.Model.Db.Db()
	if err != nil {
		return 0, &errs.Storage{Op: "repo count", Err: err}
	}

	var count int64
	if err := db.WithContext(ctx).Model(&Repo{}).Count(&count).Error; err != nil {
		return 0, &errs.Storage{Op: "repo count", Err: err}
	}
	return count, nil
}

// Insert creates a newly discovered repository row.
func (r *Repo) Insert(ctx context.Context, id int64, user, name string, stars, watches, forks, issues int, language *string) error {
	db, err := r.Model.Db.Db()
	if err != nil {
		return &errs.Storage{Op: "repo insert", Err: err}
	}

	now := time.Now()
	row := &Repo{
		ID:         id,
		User:       TruncateString(user, maxUserLength),
		Name:       TruncateString(name, maxNameLength),
		StarCount:  stars,
		WatchCount: watches,
		ForkCount:  forks,
		IssueCount: issues,
		Language:   truncateLanguage(language),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := db.WithContext(ctx).Create(row).Error; err != nil {
		return &errs.Storage{Op: "repo insert", Err: err}
	}
	return nil
}

// UpdateMetrics overwrites all mutable metric fields in one transaction.
func (r *Repo) UpdateMetrics(ctx context.Context, id int64, stars, watches, forks, issues int, language *string) error {
	db, err := r.Model.Db.Db()
	if err != nil {
		return &errs.Storage{Op: "repo update", Err: err}
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&Repo{}).Where("id = ?", id).Updates(map[string]interface{}{
			"star_count":  stars,
			"watch_count": watches,
			"fork_count":  forks,
			"issue_count": issues,
			"language":    truncateLanguage(language),
			"updated_at":  time.Now(),
		}).Error
	})
	if err != nil {
		return &errs.Storage{Op: "repo update", Err: err}
	}
	return nil
}

func truncateLanguage(language *string) *string {
	if language == nil {
		return nil
	}
	truncated := TruncateString(*language, maxLanguageLength)
	return &truncated
}
