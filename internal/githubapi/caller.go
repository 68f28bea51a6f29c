// Package githubapi is the rate-limited caller for the GitHub REST API.
// It authenticates with the configured token, throttles outgoing requests,
// keeps the quota counter in sync with the X-RateLimit headers of every
// response and maps failures onto the shared error taxonomy. Retrying a
// rate-limited call is the orchestrator's decision, never the caller's.

package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/thep200/github-ranker/cfg"
	"github.com/thep200/github-ranker/internal/errs"
	"github.com/thep200/github-ranker/internal/limiter"
	"github.com/thep200/github-ranker/pkg/log"
	"golang.org/x/oauth2"
)

const throttleDelay = 200 * time.Millisecond

type Caller struct {
	Logger log.Logger
	Config *cfg.Config
	quota  *limiter.Quota
	rate   *limiter.RateLimiter
	client *http.Client
}

func NewCaller(logger log.Logger, config *cfg.Config) *Caller {
	client := &http.Client{Timeout: 30 * time.Second}
	if token := config.GithubApi.AccessToken; token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = oauth2.NewClient(context.Background(), ts)
		client.Timeout = 30 * time.Second
	}

	return &Caller{
		Logger: logger,
		Config: config,
		quota:  limiter.NewQuota(),
		rate:   limiter.NewRateLimiter(config.GithubApi.RequestsPerSecond),
		client: client,
	}
}

// Quota exposes the tracked quota so the orchestrator can decide whether to
// start another expensive operation.
func (c *Caller) Quota() limiter.Snapshot {
	return c.quota.Snapshot()
}

// Exhausted reports whether the remaining call budget is at the floor.
func (c *Caller) Exhausted() bool {
	return c.quota.Exhausted(c.Config.GithubApi.QuotaFloor)
}

// ListPublicRepos fetches one page of the public repository listing with
// IDs strictly above since, ascending.
func (c *Caller) ListPublicRepos(ctx context.Context, since int64) ([]RepoSummary, error) {
	endpoint := fmt.Sprintf("%s?since=%d&per_page=%d",
		c.Config.GithubApi.ListApiUrl, since, c.Config.GithubApi.PerPage)

	var repos []RepoSummary
	if err := c.get(ctx, endpoint, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// GetRepo fetches the detail record for one repository.
func (c *Caller) GetRepo(ctx context.Context, user, repo string) (*RepoDetail, error) {
	endpoint := strings.ReplaceAll(c.Config.GithubApi.RepoApiUrl, "{user}", url.PathEscape(user))
	endpoint = strings.ReplaceAll(endpoint, "{repo}", url.PathEscape(repo))

	detail := &RepoDetail{}
	if err := c.get(ctx, endpoint, detail); err != nil {
		return nil, err
	}
	return detail, nil
}

// ListCommits fetches one page of a repository's commit listing. A zero
// since fetches from the beginning of the repository's history.
func (c *Caller) ListCommits(ctx context.Context, user, repo string, since time.Time, page int) ([]CommitItem, error) {
	endpoint := strings.ReplaceAll(c.Config.GithubApi.CommitsApiUrl, "{user}", url.PathEscape(user))
	endpoint = strings.ReplaceAll(endpoint, "{repo}", url.PathEscape(repo))
	endpoint = fmt.Sprintf("%s?per_page=%d&page=%d", endpoint, c.Config.GithubApi.PerPage, page)
	if !since.IsZero() {
		endpoint += "&since=" + url.QueryEscape(since.UTC().Format(time.RFC3339))
	}

	var commits []CommitItem
	if err := c.get(ctx, endpoint, &commits); err != nil {
		return nil, err
	}
	return commits, nil
}

// get performs one API call: refuses when the quota is already exhausted,
// throttles, retries transient network failures with bounded backoff,
// refreshes the quota from the response headers and decodes the body.
func (c *Caller) get(ctx context.Context, endpoint string, out interface{}) error {
	if c.Exhausted() {
		snap := c.quota.Snapshot()
		return &errs.RateLimited{Remaining: snap.Remaining, Reset: snap.Reset}
	}

	c.throttle(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &errs.Upstream{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	var resp *http.Response
	operation := func() error {
		r, err := c.client.Do(req)
		if err != nil {
			c.Logger.Warn(ctx, "Transient request failure for %s: %v", endpoint, err)
			return err
		}
		resp = r
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.Config.GithubApi.MaxRetries)),
		ctx,
	)
	if err := backoff.Retry(operation, bo); err != nil {
		return &errs.Upstream{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	c.quota.UpdateFromHeader(resp.Header)

	if rateLimited(resp) {
		snap := c.quota.Snapshot()
		c.Logger.Warn(ctx, "Rate limit hit for %s, reset at %s", endpoint, snap.Reset.Format(time.RFC3339))
		return &errs.RateLimited{Remaining: snap.Remaining, Reset: snap.Reset}
	}

	if resp.StatusCode != http.StatusOK {
		return &errs.Upstream{Endpoint: endpoint, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &errs.Upstream{Endpoint: endpoint, Err: err}
	}
	return nil
}

// rateLimited recognizes the upstream rate-limit response: 403 or 429 with
// the remaining counter at zero.
func rateLimited(resp *http.Response) bool {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return false
	}
	return resp.Header.Get("X-RateLimit-Remaining") == "0"
}

func (c *Caller) throttle(ctx context.Context) {
	for !c.rate.Allow() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(throttleDelay):
		}
	}
}
