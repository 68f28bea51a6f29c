// The crawl orchestrator drives one invocation of the pipeline through its
// phases: discovering new repositories, updating tracked ones, aggregating
// commit activity for everything touched and recomputing the ranking. Each
// processed repository advances the persisted resumption point, so a run cut
// short by the quota or the time budget continues where it stopped.

package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/thep200/github-ranker/cfg"
	"github.com/thep200/github-ranker/internal/crawlinfo"
	"github.com/thep200/github-ranker/internal/errs"
	"github.com/thep200/github-ranker/internal/githubapi"
	"github.com/thep200/github-ranker/internal/limiter"
	"github.com/thep200/github-ranker/internal/model"
	"github.com/thep200/github-ranker/pkg/db"
	kafkapkg "github.com/thep200/github-ranker/pkg/kafka"
	"github.com/thep200/github-ranker/pkg/log"
)

const stateName = "default"

// Orchestrator phases, persisted with the resumption point.
const (
	PhaseIdle     = "idle"
	PhaseDiscover = "discovering_new"
	PhaseUpdate   = "updating_existing"
	PhaseActivity = "aggregating_activity"
	PhaseRank     = "ranking"
)

var errTimeBudget = errors.New("time budget elapsed")

// Api is the slice of the GitHub caller the orchestrator drives. All phases
// share one instance so the quota counter stays a single point of truth.
type Api interface {
	ListPublicRepos(ctx context.Context, since int64) ([]githubapi.RepoSummary, error)
	GetRepo(ctx context.Context, user, repo string) (*githubapi.RepoDetail, error)
	ListCommits(ctx context.Context, user, repo string, since time.Time, page int) ([]githubapi.CommitItem, error)
	Quota() limiter.Snapshot
	Exhausted() bool
}

type touchedRepo struct {
	id   int64
	user string
	name string
}

type Crawler struct {
	Logger     log.Logger
	Config     *cfg.Config
	Api        Api
	RepoMd     *model.Repo
	RankMd     *model.Rank
	ActivityMd *model.Activity
	StateMd    *model.CrawlState

	reconciler *Reconciler
	aggregator *Aggregator
	ranker     *Ranker
	producer   *kafkapkg.Producer

	deadline time.Time
	report   *crawlinfo.Report
	touched  []touchedRepo
}

// NewCrawler wires the pipeline. producer may be nil when the event stream
// is disabled.
func NewCrawler(logger log.Logger, config *cfg.Config, database db.Database, api Api, producer *kafkapkg.Producer) (*Crawler, error) {
	repoMd, _ := model.NewRepo(config, logger, database)
	rankMd, _ := model.NewRank(config, logger, database)
	activityMd, _ := model.NewActivity(config, logger, database)
	stateMd, _ := model.NewCrawlState(config, logger, database)

	reconciler, _ := NewReconciler(logger, repoMd)
	aggregator, _ := NewAggregator(logger, config, api, activityMd)
	ranker, _ := NewRanker(logger, repoMd, rankMd)

	return &Crawler{
		Logger:     logger,
		Config:     config,
		Api:        api,
		RepoMd:     repoMd,
		RankMd:     rankMd,
		ActivityMd: activityMd,
		StateMd:    stateMd,
		reconciler: reconciler,
		aggregator: aggregator,
		ranker:     ranker,
		producer:   producer,
	}, nil
}

// Crawl runs one invocation and reports what it did and why it stopped.
func (c *Crawler) Crawl(ctx context.Context) *crawlinfo.Report {
	c.report = &crawlinfo.Report{StartedAt: time.Now()}
	c.touched = nil

	c.deadline = time.Time{}
	if budget := c.Config.Crawler.TimeBudgetSec; budget > 0 {
		c.deadline = c.report.StartedAt.Add(time.Duration(budget) * time.Second)
	}

	state, err := c.StateMd.Load(ctx, stateName)
	if err != nil {
		return c.finish(ctx, state, err)
	}

	if err := c.discover(ctx, state); err != nil {
		return c.finish(ctx, state, err)
	}
	if err := c.update(ctx, state); err != nil {
		return c.finish(ctx, state, err)
	}
	if err := c.aggregate(ctx, state); err != nil {
		return c.finish(ctx, state, err)
	}
	if err := c.rank(ctx, state); err != nil {
		return c.finish(ctx, state, err)
	}

	return c.finish(ctx, state, nil)
}

// discover walks the public repository listing strictly after the
// configured (or resumed) ID and tracks everything it finds, up to the
// configured new-repository limit.
func (c *Crawler) discover(ctx context.Context, state *model.CrawlState) error {
	if c.Config.Crawler.SkipDiscovery {
		c.Logger.Info(ctx, "Discovery skipped")
		return nil
	}

	if err := c.enterPhase(ctx, state, PhaseDiscover); err != nil {
		return err
	}

	since := c.Config.Crawler.NewSince
	if state.LastDiscoverID > since {
		since = state.LastDiscoverID
		c.Logger.Info(ctx, "Resuming discovery after repository ID %d", since)
	}

	limit := c.Config.Crawler.NewRepoLimit
	cursor := NewCursor(c.Api.ListPublicRepos, func(s githubapi.RepoSummary) int64 { return s.ID }, since, 0)

	for {
		if limit > 0 && c.report.Discovered >= limit {
			c.Logger.Info(ctx, "New repository limit %d reached", limit)
			return nil
		}
		if err := c.checkBudget(ctx); err != nil {
			return err
		}

		summary, ok, err := cursor.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		outcome, err := c.processRepo(ctx, summary.ID, summary.Owner.Login, summary.Name)
		if err != nil {
			return err
		}
		if outcome == OutcomeInserted {
			c.report.Discovered++
		}

		state.LastDiscoverID = summary.ID
		if err := c.saveState(ctx, state); err != nil {
			return err
		}
	}
}

// update walks the tracked repositories with IDs in the configured
// [since, until) range, ascending, re-fetching each one's detail record.
func (c *Crawler) update(ctx context.Context, state *model.CrawlState) error {
	if c.Config.Crawler.SkipRepoUpdate {
		c.Logger.Info(ctx, "Repository update skipped")
		return nil
	}

	if err := c.enterPhase(ctx, state, PhaseUpdate); err != nil {
		return err
	}

	since := c.Config.Crawler.UpdateSince
	if state.LastUpdateID > since {
		since = state.LastUpdateID
		c.Logger.Info(ctx, "Resuming update after repository ID %d", since)
	}

	pager := func(ctx context.Context, after int64) ([]model.Repo, error) {
		return c.RepoMd.ListRange(ctx, after, c.Config.Crawler.UpdateUntil, 100)
	}
	cursor := NewCursor(pager, func(r model.Repo) int64 { return r.ID }, since, c.Config.Crawler.UpdateUntil)

	for {
		if err := c.checkBudget(ctx); err != nil {
			return err
		}

		repo, ok, err := cursor.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		if _, err := c.processRepo(ctx, repo.ID, repo.User, repo.Name); err != nil {
			return err
		}

		state.LastUpdateID = repo.ID
		if err := c.saveState(ctx, state); err != nil {
			return err
		}
	}

	// The pass covered the whole range, the next invocation starts fresh.
	state.LastUpdateID = 0
	return c.saveState(ctx, state)
}

// processRepo fetches one repository's detail record and reconciles it.
// Failures scoped to this repository are logged and counted, never fatal.
func (c *Crawler) processRepo(ctx context.Context, id int64, user, name string) (Outcome, error) {
	detail, err := c.Api.GetRepo(ctx, user, name)
	if err != nil {
		var upstream *errs.Upstream
		if errors.As(err, &upstream) {
			c.report.Failed++
			c.Logger.Warn(ctx, "Skipping repository %d %s/%s: %v", id, user, name, err)
			return OutcomeUnchanged, nil
		}
		return OutcomeUnchanged, err
	}

	outcome, repoID, err := c.reconciler.Reconcile(ctx, detail)
	if err != nil {
		return OutcomeUnchanged, err
	}

	switch outcome {
	case OutcomeInserted, OutcomeUpdated:
		c.touched = append(c.touched, touchedRepo{id: repoID, user: detail.Owner.Login, name: detail.Name})
		c.publish(ctx, model.EventKeyRepoTouched, model.EventMessage{
			Type:    model.EventKeyRepoTouched,
			RepoID:  repoID,
			User:    detail.Owner.Login,
			Name:    detail.Name,
			Outcome: outcome.String(),
			At:      time.Now(),
		})
		if outcome == OutcomeUpdated {
			c.report.Updated++
		}
	default:
		c.report.Unchanged++
	}
	return outcome, nil
}

// aggregate folds commit activity for every repository touched in this
// invocation. A repository that went missing upstream is skipped, the rows
// already committed for earlier repositories stay valid.
func (c *Crawler) aggregate(ctx context.Context, state *model.CrawlState) error {
	if len(c.touched) == 0 {
		return nil
	}

	if err := c.enterPhase(ctx, state, PhaseActivity); err != nil {
		return err
	}

	for _, repo := range c.touched {
		if err := c.checkBudget(ctx); err != nil {
			return err
		}

		written, err := c.aggregator.Aggregate(ctx, repo.id, repo.user, repo.name)
		c.report.ActivityRows += written
		if err != nil {
			var upstream *errs.Upstream
			if errors.As(err, &upstream) {
				c.report.Failed++
				c.Logger.Warn(ctx, "Skipping activity for repository %d %s/%s: %v", repo.id, repo.user, repo.name, err)
				continue
			}
			return err
		}
	}
	return nil
}

// rank recomputes places for all tracked repositories, not only the ones
// touched in this invocation.
func (c *Crawler) rank(ctx context.Context, state *model.CrawlState) error {
	if c.Config.Crawler.SkipRankUpdate {
		c.Logger.Info(ctx, "Rank update skipped")
		return nil
	}

	if err := c.enterPhase(ctx, state, PhaseRank); err != nil {
		return err
	}

	movements, err := c.ranker.Recompute(ctx)
	if err != nil {
		return err
	}
	c.report.Ranked = len(movements)

	moved := 0
	for _, movement := range movements {
		if delta, ok := movement.Delta(); ok && delta != 0 {
			moved++
		}
	}
	c.Logger.Info(ctx, "Ranked %d repositories, %d changed place", len(movements), moved)
	return nil
}

func (c *Crawler) finish(ctx context.Context, state *model.CrawlState, cause error) *crawlinfo.Report {
	c.report.FinishedAt = time.Now()

	if cause != nil {
		c.report.Halt = classifyHalt(cause)
		c.Logger.Warn(ctx, "Crawl halting: %v", cause)
		c.publish(ctx, model.EventKeyRunHalted, model.EventMessage{
			Type:   model.EventKeyRunHalted,
			Reason: string(c.report.Halt),
			At:     time.Now(),
		})
	} else if state != nil {
		state.Phase = PhaseIdle
		if err := c.saveState(ctx, state); err != nil {
			c.Logger.Error(ctx, "Failed to persist idle state: %v", err)
		}
	}

	c.Logger.Info(ctx, "Crawl %s", c.report.Summary())
	return c.report
}

// checkBudget runs between repositories, never mid-repository: a repository
// with heavy history is finished or not started at all.
func (c *Crawler) checkBudget(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.deadline.IsZero() && time.Now().After(c.deadline) {
		return errTimeBudget
	}
	if c.Api.Exhausted() {
		snap := c.Api.Quota()
		return &errs.RateLimited{Remaining: snap.Remaining, Reset: snap.Reset}
	}
	return nil
}

func (c *Crawler) enterPhase(ctx context.Context, state *model.CrawlState, phase string) error {
	c.Logger.Info(ctx, "===== Phase: %s =====", phase)
	state.Phase = phase
	return c.saveState(ctx, state)
}

func (c *Crawler) saveState(ctx context.Context, state *model.CrawlState) error {
	state.Discovered = c.report.Discovered
	state.Updated = c.report.Updated
	return c.StateMd.Save(ctx, state)
}

func (c *Crawler) publish(ctx context.Context, key string, message model.EventMessage) {
	if c.producer == nil {
		return
	}
	if err := c.producer.Publish(ctx, key, message); err != nil {
		c.Logger.Error(ctx, "Failed to publish %s event: %v", key, err)
	}
}

// classifyHalt checks cancellation before storage: a canceled context can
// surface wrapped in a storage failure and the cause is the cancellation.
func classifyHalt(err error) crawlinfo.HaltReason {
	var rateLimited *errs.RateLimited
	var storage *errs.Storage
	switch {
	case errors.As(err, &rateLimited):
		return crawlinfo.HaltRateLimited
	case errors.Is(err, errTimeBudget):
		return crawlinfo.HaltTimeBudget
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return crawlinfo.HaltCanceled
	case errors.As(err, &storage):
		return crawlinfo.HaltStorage
	default:
		return crawlinfo.HaltError
	}
}
