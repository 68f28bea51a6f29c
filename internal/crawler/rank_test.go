package crawler

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thep200/github-ranker/cfg"
	"github.com/thep200/github-ranker/internal/model"
	"github.com/thep200/github-ranker/internal/testutil"
	"github.com/thep200/github-ranker/pkg/log"
)

func newTestRanker(t *testing.T) (*Ranker, *model.Repo, *model.Rank) {
	t.Helper()
	loader, _ := cfg.NewMockLoader()
	config, _ := loader.Load()
	logger, _ := log.NewCslLogger()
	database := testutil.OpenTestDB(t)

	repoMd, _ := model.NewRepo(config, logger, database)
	rankMd, _ := model.NewRank(config, logger, database)
	ranker, _ := NewRanker(logger, repoMd, rankMd)
	return ranker, repoMd, rankMd
}

func seedRepo(t *testing.T, repoMd *model.Repo, id int64, stars int) {
	t.Helper()
	name := "repo-" + string(rune('a'+id%26))
	err := repoMd.Insert(context.Background(), id, "octo", name, stars, 0, 0, 0, nil)
	require.NoError(t, err)
}

func TestRecomputeFirstRunWithTieBreak(t *testing.T) {
	ranker, repoMd, _ := newTestRanker(t)
	ctx := context.Background()

	// Scores [50, 10, 10, 5]; the tied pair is ordered by ascending ID
	seedRepo(t, repoMd, 3, 50)
	seedRepo(t, repoMd, 5, 10)
	seedRepo(t, repoMd, 2, 10)
	seedRepo(t, repoMd, 7, 5)

	movements, err := ranker.Recompute(ctx)
	require.NoError(t, err)
	require.Len(t, movements, 4)

	assert.Equal(t, 1, movements[3].Place)
	assert.Equal(t, 2, movements[2].Place)
	assert.Equal(t, 3, movements[5].Place)
	assert.Equal(t, 4, movements[7].Place)

	// Nothing was ranked before: previous place is nil, not zero
	for _, movement := range movements {
		assert.Nil(t, movement.Previous)
		_, ok := movement.Delta()
		assert.False(t, ok)
	}
}

func TestRecomputePlacesAreContiguous(t *testing.T) {
	ranker, repoMd, rankMd := newTestRanker(t)
	ctx := context.Background()

	stars := []int{12, 7, 7, 7, 100, 1, 12}
	for i, s := range stars {
		seedRepo(t, repoMd, int64(i+1), s)
	}

	_, err := ranker.Recompute(ctx)
	require.NoError(t, err)

	places, err := rankMd.PlacesByRepo(ctx)
	require.NoError(t, err)
	require.Len(t, places, len(stars))

	assigned := make([]int, 0, len(places))
	for _, place := range places {
		assigned = append(assigned, place)
	}
	sort.Ints(assigned)
	for i, place := range assigned {
		assert.Equal(t, i+1, place)
	}
}

func TestRecomputeReportsSignedMovement(t *testing.T) {
	ranker, repoMd, _ := newTestRanker(t)
	ctx := context.Background()

	seedRepo(t, repoMd, 1, 50)
	seedRepo(t, repoMd, 2, 10)

	_, err := ranker.Recompute(ctx)
	require.NoError(t, err)

	// Repo 2 overtakes repo 1
	require.NoError(t, repoMd.UpdateMetrics(ctx, 2, 80, 0, 0, 0, nil))

	movements, err := ranker.Recompute(ctx)
	require.NoError(t, err)

	up, ok := movements[2].Delta()
	require.True(t, ok)
	assert.Equal(t, 1, up)

	down, ok := movements[1].Delta()
	require.True(t, ok)
	assert.Equal(t, -1, down)
}
