// Package recommend derives randomized and genre-grouped views over the catalog.
//
// Nothing here ranks movies. Every view is a uniform random sample, and some
// views seed the generator from the date, the ISO week or the user id so that
// repeated requests see the same picks.
package recommend

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"time"

	"kino-bot/internal/repo"
)

// Default sample sizes for the list views.
const (
	DefaultRandomCount = 5
	DefaultTodayCount  = 3
	DefaultWeeklyCount = 5

	maxPerGenre = 2
)

// MovieLister is the read side of the catalog this package needs.
type MovieLister interface {
	ListMovies(ctx context.Context) ([]repo.Movie, error)
}

// GenreGroup is one genre bucket of the genre view.
type GenreGroup struct {
	Genre  string
	Movies []repo.Movie
}

// Service computes recommendation views. Store failures are logged and
// surface as empty results.
type Service struct {
	store   MovieLister
	logger  *slog.Logger
	loc     *time.Location
	now     func() time.Time
	newRand func() *rand.Rand
}

// New builds a Service. Day and week buckets are computed in loc (UTC when nil).
func New(store MovieLister, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:  store,
		logger: logger.With("component", "recommend"),
		loc:    loc,
		now:    time.Now,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}
}

// Random returns n distinct movies chosen uniformly. When n covers the whole
// catalog every movie is returned in random order.
func (s *Service) Random(ctx context.Context, n int) []repo.Movie {
	movies := s.load(ctx)
	return sample(s.newRand(), movies, n)
}

// Today returns the day's picks. The sample is fixed for a calendar date.
func (s *Service) Today(ctx context.Context, n int) []repo.Movie {
	movies := s.load(ctx)
	return sample(seeded(dayKey(s.now().In(s.loc))), movies, n)
}

// Weekly returns the week's picks. The sample is fixed for an ISO week.
func (s *Service) Weekly(ctx context.Context, n int) []repo.Movie {
	movies := s.load(ctx)
	return sample(seeded(weekKey(s.now().In(s.loc))), movies, n)
}

// ByGenre buckets the catalog by the genre line of each description, keeping
// at most two random entries per bucket. Buckets keep first-seen order.
func (s *Service) ByGenre(ctx context.Context) []GenreGroup {
	movies := s.load(ctx)
	if len(movies) == 0 {
		return nil
	}

	index := map[string]int{}
	var groups []GenreGroup
	for _, m := range movies {
		genre := ParseGenre(m.Description)
		i, ok := index[genre]
		if !ok {
			i = len(groups)
			index[genre] = i
			groups = append(groups, GenreGroup{Genre: genre})
		}
		groups[i].Movies = append(groups[i].Movies, m)
	}

	rng := s.newRand()
	for i := range groups {
		if len(groups[i].Movies) > maxPerGenre {
			groups[i].Movies = sample(rng, groups[i].Movies, maxPerGenre)
		}
	}
	return groups
}

// Recommend picks one movie. A non-zero userID always gets the same pick for
// an unchanged catalog.
func (s *Service) Recommend(ctx context.Context, userID int64) (repo.Movie, bool) {
	movies := s.load(ctx)
	if len(movies) == 0 {
		return repo.Movie{}, false
	}
	rng := s.newRand()
	if userID != 0 {
		rng = seeded(fmt.Sprintf("user_%d", userID))
	}
	return movies[rng.IntN(len(movies))], true
}

func (s *Service) load(ctx context.Context) []repo.Movie {
	movies, err := s.store.ListMovies(ctx)
	if err != nil {
		s.logger.Error("failed loading catalog", "error", err)
		return nil
	}
	return movies
}

// sample draws min(n, len(movies)) entries without replacement using a
// partial Fisher-Yates shuffle over a copy.
func sample(rng *rand.Rand, movies []repo.Movie, n int) []repo.Movie {
	if n <= 0 || len(movies) == 0 {
		return nil
	}
	if n > len(movies) {
		n = len(movies)
	}
	pool := make([]repo.Movie, len(movies))
	copy(pool, movies)
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}

func seeded(key string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("week_%d-%02d", year, week)
}
