// Package confidence scores how well an answer is supported by its sources.
package confidence

import "eidrag/internal/domain"

const (
	empty     = 0.1
	perSource = 0.1
	baseCap   = 0.8
	boostRate = 0.05
	boostCap  = 0.2
	ceiling   = 0.95
)

// Score returns a value in [0, 0.95]. It grows with the number of sources and,
// weakly, with their average relevance.
func Score(sources []domain.Source) float64 {
	if len(sources) == 0 {
		return empty
	}
	total := 0.0
	for _, s := range sources {
		total += s.Relevance
	}
	base := min(float64(len(sources))*perSource, baseCap)
	boost := min(total/float64(len(sources))*boostRate, boostCap)
	return max(0, min(base+boost, ceiling))
}
