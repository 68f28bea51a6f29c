package crawler

import (
	"context"

	"github.com/thep200/github-ranker/internal/githubapi"
	"github.com/thep200/github-ranker/internal/model"
	"github.com/thep200/github-ranker/pkg/log"
)

// Outcome of reconciling one fetched repository against persisted state.
type Outcome int

const (
	OutcomeUnchanged Outcome = iota
	OutcomeInserted
	OutcomeUpdated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Reconciler merges a freshly fetched repository record with the persisted
// one: insert-if-absent, update-if-changed, no-op otherwise.
type Reconciler struct {
	Logger log.Logger
	RepoMd *model.Repo
}

func NewReconciler(logger log.Logger, repoMd *model.Repo) (*Reconciler, error) {
	return &Reconciler{
		Logger: logger,
		RepoMd: repoMd,
	}, nil
}

// Reconcile looks up the repository by its (owner, name) pair. When any
// mutable metric differs, all of them are rewritten in one transaction;
// identical metrics perform no write at all.
func (r *Reconciler) Reconcile(ctx context.Context, detail *githubapi.RepoDetail) (Outcome, int64, error) {
	existing, err := r.RepoMd.FindByOwnerName(ctx, detail.Owner.Login, detail.Name)
	if err != nil {
		return OutcomeUnchanged, 0, err
	}

	if existing == nil {
		err := r.RepoMd.Insert(ctx, detail.ID, detail.Owner.Login, detail.Name,
			detail.StargazersCount, detail.WatchersCount, detail.ForksCount,
			detail.OpenIssuesCount, detail.Language)
		if err != nil {
			return OutcomeUnchanged, 0, err
		}
		r.Logger.Info(ctx, "Inserted repository %d %s/%s", detail.ID, detail.Owner.Login, detail.Name)
		return OutcomeInserted, detail.ID, nil
	}

	if metricsEqual(existing, detail) {
		return OutcomeUnchanged, existing.ID, nil
	}

	err = r.RepoMd.UpdateMetrics(ctx, existing.ID,
		detail.StargazersCount, detail.WatchersCount, detail.ForksCount,
		detail.OpenIssuesCount, detail.Language)
	if err != nil {
		return OutcomeUnchanged, existing.ID, err
	}
	r.Logger.Info(ctx, "Updated repository %d %s/%s", existing.ID, existing.User, existing.Name)
	return OutcomeUpdated, existing.ID, nil
}

func metricsEqual(existing *model.Repo, detail *githubapi.RepoDetail) bool {
	if existing.StarCount != detail.StargazersCount ||
		existing.WatchCount != detail.WatchersCount ||
		existing.ForkCount != detail.ForksCount ||
		existing.IssueCount != detail.OpenIssuesCount {
		return false
	}
	return languageEqual(existing.Language, detail.Language)
}

func languageEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
