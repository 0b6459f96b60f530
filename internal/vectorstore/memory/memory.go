package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"eidrag/internal/domain"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
// Points are keyed by ID so re-upserting replaces rather than duplicates.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	points    map[string]domain.Point
	order     []string
}

func NewStorage() *Storage { return &Storage{points: make(map[string]domain.Point)} }

// Configured is always true for the in-memory store.
func (s *Storage) Configured() bool { return true }

// EnsureCollection fixes the collection dimension on first use.
func (s *Storage) EnsureCollection(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		s.dimension = dimension
		return nil
	}
	if s.dimension != dimension {
		return fmt.Errorf("%w: collection has size %d but embeddings have size %d", domain.ErrDimensionMismatch, s.dimension, dimension)
	}
	return nil
}

// Upsert inserts or replaces points by ID.
func (s *Storage) Upsert(_ context.Context, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		if s.dimension == 0 {
			s.dimension = len(p.Vector)
		}
		if len(p.Vector) != s.dimension {
			return fmt.Errorf("%w: point %s has size %d, collection %d", domain.ErrDimensionMismatch, p.ID, len(p.Vector), s.dimension)
		}
	}
	for _, p := range points {
		if _, ok := s.points[p.ID]; !ok {
			s.order = append(s.order, p.ID)
		}
		s.points[p.ID] = p
	}
	return nil
}

// Search ranks stored points by cosine similarity to vector.
func (s *Storage) Search(_ context.Context, vector []float64, limit int, filter *domain.Filter) ([]domain.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 5
	}
	hits := make([]domain.Hit, 0, len(s.order))
	for _, id := range s.order {
		p := s.points[id]
		if filter != nil && filter.Domain != "" && p.Payload.Domain != filter.Domain {
			continue
		}
		hits = append(hits, domain.Hit{ID: id, Score: cosine(p.Vector, vector), Payload: p.Payload})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Len returns the number of stored points.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

// Point returns the stored point with the given ID.
func (s *Storage) Point(id string) (domain.Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[id]
	return p, ok
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
