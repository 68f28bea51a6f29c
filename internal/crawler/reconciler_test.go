package crawler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thep200/github-ranker/cfg"
	"github.com/thep200/github-ranker/internal/githubapi"
	"github.com/thep200/github-ranker/internal/model"
	"github.com/thep200/github-ranker/internal/testutil"
	"github.com/thep200/github-ranker/pkg/log"
)

func newTestReconciler(t *testing.T) (*Reconciler, *model.Repo) {
	t.Helper()
	config, _ := cfg.NewMockLoader()
	cfgIns, _ := config.Load()
	logger, _ := log.NewCslLogger()
	database := testutil.OpenTestDB(t)

	repoMd, _ := model.NewRepo(cfgIns, logger, database)
	reconciler, _ := NewReconciler(logger, repoMd)
	return reconciler, repoMd
}

func detail(id int64, user, name string, stars int) *githubapi.RepoDetail {
	language := "Go"
	return &githubapi.RepoDetail{
		ID:              id,
		Name:            name,
		Owner:           githubapi.Owner{Login: user},
		StargazersCount: stars,
		WatchersCount:   stars,
		ForksCount:      2,
		OpenIssuesCount: 1,
		Language:        &language,
	}
}

func TestReconcileInsertsAbsentRepository(t *testing.T) {
	reconciler, repoMd := newTestReconciler(t)
	ctx := context.Background()

	outcome, id, err := reconciler.Reconcile(ctx, detail(42, "octo", "alpha", 10))
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, outcome)
	assert.Equal(t, int64(42), id)

	stored, err := repoMd.FindByID(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "octo", stored.User)
	assert.Equal(t, 10, stored.StarCount)

	count, err := repoMd.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestReconcileIdenticalMetricsPerformsNoWrite(t *testing.T) {
	reconciler, repoMd := newTestReconciler(t)
	ctx := context.Background()

	_, _, err := reconciler.Reconcile(ctx, detail(42, "octo", "alpha", 10))
	require.NoError(t, err)

	before, err := repoMd.FindByID(ctx, 42)
	require.NoError(t, err)

	outcome, id, err := reconciler.Reconcile(ctx, detail(42, "octo", "alpha", 10))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)
	assert.Equal(t, int64(42), id)

	after, err := repoMd.FindByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestReconcileChangedMetricsUpdatesAllFields(t *testing.T) {
	reconciler, repoMd := newTestReconciler(t)
	ctx := context.Background()

	_, _, err := reconciler.Reconcile(ctx, detail(42, "octo", "alpha", 10))
	require.NoError(t, err)

	changed := detail(42, "octo", "alpha", 25)
	changed.ForksCount = 7

	outcome, _, err := reconciler.Reconcile(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)

	stored, err := repoMd.FindByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 25, stored.StarCount)
	assert.Equal(t, 7, stored.ForkCount)
}

func TestReconcileNullableLanguage(t *testing.T) {
	reconciler, repoMd := newTestReconciler(t)
	ctx := context.Background()

	noLanguage := detail(42, "octo", "alpha", 10)
	noLanguage.Language = nil

	_, _, err := reconciler.Reconcile(ctx, noLanguage)
	require.NoError(t, err)

	stored, err := repoMd.FindByID(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, stored.Language)

	// Language appearing later counts as a metric change
	outcome, _, err := reconciler.Reconcile(ctx, detail(42, "octo", "alpha", 10))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
}
