package cfg

type (
	App struct {
		Name    string
		Version string
	}

	Mysql struct {
		Host                  string
		Port                  string
		Username              string
		Password              string
		Database              string
		MaxIdleConnection     int
		MaxOpenConnection     int
		MaxLifeTimeConnection int
	}

	GithubApi struct {
		AccessToken       string
		ListApiUrl        string
		RepoApiUrl        string
		CommitsApiUrl     string
		RequestsPerSecond int
		QuotaFloor        int
		MaxRetries        int
		PerPage           int
	}

	Kafka struct {
		Enabled     bool
		Brokers     []string
		TopicEvents string
	}

	// Crawler carries the bounds the invocation driver sets for a single run.
	// NewRepoLimit <= 0 means no limit, UpdateUntil = 0 means open-ended,
	// TimeBudgetSec <= 0 means no wall-clock budget.
	Crawler struct {
		NewRepoLimit   int
		NewSince       int64
		UpdateSince    int64
		UpdateUntil    int64
		SkipDiscovery  bool
		SkipRepoUpdate bool
		SkipRankUpdate bool
		TimeBudgetSec  int
	}
)

type Config struct {
	App       App
	Mysql     Mysql
	GithubApi GithubApi
	Kafka     Kafka
	Crawler   Crawler
}
