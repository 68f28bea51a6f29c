// DTOs for the subset of the GitHub REST API this pipeline consumes.

package githubapi

import "time"

type Owner struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
}

// RepoSummary is one entry of the public repository listing, ordered
// ascending by ID.
type RepoSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Owner    Owner  `json:"owner"`
}

// RepoDetail is the full repository record behind /repos/{user}/{repo}.
type RepoDetail struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	Owner           Owner     `json:"owner"`
	StargazersCount int       `json:"stargazers_count"`
	WatchersCount   int       `json:"watchers_count"`
	ForksCount      int       `json:"forks_count"`
	OpenIssuesCount int       `json:"open_issues_count"`
	Language        *string   `json:"language"`
	CreatedAt       time.Time `json:"created_at"`
}

// CommitItem is one entry of the commit listing. The committer is used
// rather than the author: GitHub orders the listing by committed date and
// the committer is the one who actually contributed the change.
type CommitItem struct {
	SHA    string `json:"sha"`
	Commit struct {
		Committer struct {
			Name string     `json:"name"`
			Date *time.Time `json:"date"`
		} `json:"committer"`
		Message string `json:"message"`
	} `json:"commit"`
}
