package crawler

import (
	"context"
	"sort"
	"time"

	"github.com/thep200/github-ranker/cfg"
	"github.com/thep200/github-ranker/internal/githubapi"
	"github.com/thep200/github-ranker/internal/model"
	"github.com/thep200/github-ranker/pkg/log"
)

// CommitLister is the slice of the API caller the aggregator needs.
type CommitLister interface {
	ListCommits(ctx context.Context, user, repo string, since time.Time, page int) ([]githubapi.CommitItem, error)
}

// Bucket is one day of commit activity, folded from the commit listing.
type Bucket struct {
	Date    time.Time
	Commits int
	Authors []string
}

// Aggregator fetches a repository's commit history since its last recorded
// activity day and folds it into daily buckets. The last recorded day is
// re-fetched in full: it may still have been open when it was stored.
type Aggregator struct {
	Logger     log.Logger
	Config     *cfg.Config
	Api        CommitLister
	ActivityMd *model.Activity
}

func NewAggregator(logger log.Logger, config *cfg.Config, api CommitLister, activityMd *model.Activity) (*Aggregator, error) {
	return &Aggregator{
		Logger:     logger,
		Config:     config,
		Api:        api,
		ActivityMd: activityMd,
	}, nil
}

// Aggregate folds new commit history for one repository into activity rows
// and returns the number of rows written. A repository that was never
// aggregated before is fetched from the beginning of its history.
func (a *Aggregator) Aggregate(ctx context.Context, repoID int64, user, name string) (int, error) {
	lastDate, has, err := a.ActivityMd.LastDate(ctx, repoID)
	if err != nil {
		return 0, err
	}

	since := time.Time{}
	if has {
		since = lastDate
	}

	buckets, err := a.fold(ctx, user, name, since)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, bucket := range buckets {
		changed, err := a.ActivityMd.Upsert(ctx, repoID, bucket.Date, bucket.Commits, bucket.Authors)
		if err != nil {
			return written, err
		}
		if changed {
			written++
		}
	}

	if written > 0 {
		a.Logger.Debug(ctx, "Aggregated %d activity rows for repository %d", written, repoID)
	}
	return written, nil
}

// fold pages through the commit listing and accumulates per-day commit
// counts and committer-name sets, returned in ascending date order.
func (a *Aggregator) fold(ctx context.Context, user, name string, since time.Time) ([]Bucket, error) {
	counts := make(map[time.Time]int)
	authors := make(map[time.Time]map[string]struct{})

	perPage := a.Config.GithubApi.PerPage
	for page := 1; ; page++ {
		commits, err := a.Api.ListCommits(ctx, user, name, since, page)
		if err != nil {
			return nil, err
		}

		for _, commit := range commits {
			committed := commit.Commit.Committer.Date
			if committed == nil {
				continue
			}
			day := model.DateOnly(*committed)
			counts[day]++

			if name := commit.Commit.Committer.Name; name != "" {
				if authors[day] == nil {
					authors[day] = make(map[string]struct{})
				}
				authors[day][name] = struct{}{}
			}
		}

		if len(commits) < perPage {
			break
		}
	}

	buckets := make([]Bucket, 0, len(counts))
	for day, count := range counts {
		names := make([]string, 0, len(authors[day]))
		for name := range authors[day] {
			names = append(names, name)
		}
		sort.Strings(names)
		buckets = append(buckets, Bucket{Date: day, Commits: count, Authors: names})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Date.Before(buckets[j].Date)
	})
	return buckets, nil
}
