package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thep200/github-ranker/cfg"
	"github.com/thep200/github-ranker/internal/errs"
	"github.com/thep200/github-ranker/pkg/log"
)

func testConfig(baseURL string) *cfg.Config {
	return &cfg.Config{
		GithubApi: cfg.GithubApi{
			ListApiUrl:        baseURL + "/repositories",
			RepoApiUrl:        baseURL + "/repos/{user}/{repo}",
			CommitsApiUrl:     baseURL + "/repos/{user}/{repo}/commits",
			RequestsPerSecond: 100,
			QuotaFloor:        3,
			MaxRetries:        1,
			PerPage:           100,
		},
	}
}

func newTestCaller(t *testing.T, handler http.HandlerFunc) (*Caller, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger, _ := log.NewCslLogger()
	return NewCaller(logger, testConfig(server.URL)), server
}

func TestCallerListPublicRepos(t *testing.T) {
	caller, _ := newTestCaller(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("since"))
		w.Header().Set("X-RateLimit-Remaining", "4999")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
		fmt.Fprint(w, `[{"id":101,"name":"alpha","owner":{"login":"octo"}},{"id":102,"name":"beta","owner":{"login":"octo"}}]`)
	})

	repos, err := caller.ListPublicRepos(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, int64(101), repos[0].ID)
	assert.Equal(t, "octo", repos[0].Owner.Login)

	snap := caller.Quota()
	assert.True(t, snap.Known)
	assert.Equal(t, 4999, snap.Remaining)
}

func TestCallerRateLimitedResponse(t *testing.T) {
	reset := time.Now().Add(20 * time.Minute).Unix()
	caller, _ := newTestCaller(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := caller.GetRepo(context.Background(), "octo", "alpha")

	var rateLimited *errs.RateLimited
	require.True(t, errors.As(err, &rateLimited))
	assert.Equal(t, 0, rateLimited.Remaining)
	assert.Equal(t, reset, rateLimited.Reset.Unix())
}

func TestCallerRefusesWhenQuotaExhausted(t *testing.T) {
	calls := 0
	reset := time.Now().Add(time.Hour).Unix()
	caller, _ := newTestCaller(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := caller.GetRepo(context.Background(), "octo", "alpha")
	var rateLimited *errs.RateLimited
	require.True(t, errors.As(err, &rateLimited))
	assert.Equal(t, 1, calls)

	// Tracked state is exhausted now, the next call never goes out
	_, err = caller.GetRepo(context.Background(), "octo", "alpha")
	require.True(t, errors.As(err, &rateLimited))
	assert.Equal(t, 1, calls)
	assert.True(t, caller.Exhausted())
}

func TestCallerNotFound(t *testing.T) {
	caller, _ := newTestCaller(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "4000")
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := caller.GetRepo(context.Background(), "octo", "gone")

	var upstream *errs.Upstream
	require.True(t, errors.As(err, &upstream))
	assert.True(t, upstream.NotFound())
}

func TestCallerListCommitsSinceParameter(t *testing.T) {
	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	caller, _ := newTestCaller(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, since.Format(time.RFC3339), r.URL.Query().Get("since"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Header().Set("X-RateLimit-Remaining", "4000")
		fmt.Fprint(w, `[{"sha":"abc","commit":{"committer":{"name":"alice","date":"2024-06-01T10:00:00Z"}}}]`)
	})

	commits, err := caller.ListCommits(context.Background(), "octo", "alpha", since, 2)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "alice", commits[0].Commit.Committer.Name)
}
