package crawler

import (
	"context"
	"sort"

	"github.com/thep200/github-ranker/internal/model"
	"github.com/thep200/github-ranker/pkg/log"
)

// Movement is one repository's new place next to its previously stored one.
// Previous is nil for a repository ranked for the first time; that is not
// the same as an unchanged rank.
type Movement struct {
	Place    int
	Previous *int
}

// Delta is the signed rank change, positive when the repository moved up.
// The second return is false when there is no previous place to compare to.
func (m Movement) Delta() (int, bool) {
	if m.Previous == nil {
		return 0, false
	}
	return *m.Previous - m.Place, true
}

// Ranker recomputes the full popularity ordering. Every run is a complete
// recomputation over all tracked repositories: any one repository's place
// depends on the metrics of all others, so the read must be one consistent
// snapshot.
type Ranker struct {
	Logger log.Logger
	RepoMd *model.Repo
	RankMd *model.Rank
}

func NewRanker(logger log.Logger, repoMd *model.Repo, rankMd *model.Rank) (*Ranker, error) {
	return &Ranker{
		Logger: logger,
		RepoMd: repoMd,
		RankMd: rankMd,
	}, nil
}

// Recompute orders all tracked repositories by stars descending with ID
// ascending as the deterministic tie-break, assigns contiguous 1-based
// places, overwrites the stored places and returns the per-repository
// movements.
func (r *Ranker) Recompute(ctx context.Context) (map[int64]Movement, error) {
	rows, err := r.RepoMd.ListStars(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StarCount != rows[j].StarCount {
			return rows[i].StarCount > rows[j].StarCount
		}
		return rows[i].ID < rows[j].ID
	})

	previous, err := r.RankMd.PlacesByRepo(ctx)
	if err != nil {
		return nil, err
	}

	placements := make([]model.Placement, len(rows))
	movements := make(map[int64]Movement, len(rows))
	for i, row := range rows {
		place := i + 1
		placements[i] = model.Placement{RepoID: row.ID, Place: place}

		movement := Movement{Place: place}
		if prev, ok := previous[row.ID]; ok {
			p := prev
			movement.Previous = &p
		}
		movements[row.ID] = movement
	}

	if len(placements) > 0 {
		if err := r.RankMd.ReplaceAll(ctx, placements); err != nil {
			return nil, err
		}
	}
	return movements, nil
}
