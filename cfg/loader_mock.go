package cfg

type MockLoader struct{}

func NewMockLoader() (*MockLoader, error) {
	return &MockLoader{}, nil
}

func (ml *MockLoader) Load() (*Config, error) {
	return &Config{
		App: App{
			Name:    "github-ranker",
			Version: "0.0.1",
		},

		Mysql: Mysql{
			Host:                  "127.0.0.1",
			Password:              "root",
			Username:              "root",
			Port:                  "3306",
			Database:              "github_ranker",
			MaxIdleConnection:     10,
			MaxOpenConnection:     100,
			MaxLifeTimeConnection: 3600,
		},

		GithubApi: GithubApi{
			AccessToken:       "",
			ListApiUrl:        "https://api.github.com/repositories",
			RepoApiUrl:        "https://api.github.com/repos/{user}/{repo}",
			CommitsApiUrl:     "https://api.github.com/repos/{user}/{repo}/commits",
			RequestsPerSecond: 5,
			QuotaFloor:        3,
			MaxRetries:        3,
			PerPage:           100,
		},

		Kafka: Kafka{
			Enabled:     false,
			Brokers:     []string{"127.0.0.1:9092"},
			TopicEvents: "ranker.crawl.events",
		},

		Crawler: Crawler{
			NewRepoLimit:   0,
			NewSince:       815368990,
			UpdateSince:    0,
			UpdateUntil:    0,
			SkipDiscovery:  false,
			SkipRepoUpdate: false,
			SkipRankUpdate: false,
			TimeBudgetSec:  0,
		},
	}, nil
}
