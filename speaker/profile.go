package speaker

import (
	"github.com/zhengyishen0/voca-app/vector"
)

// Profile is a single speaker's dual-bucket embedding store: a "core"
// bucket of embeddings confidently attributed to this speaker, and a
// "boundary" bucket of embeddings close enough to count but not
// confident enough to anchor the centroid.
type Profile struct {
	ID           string
	Name         string
	Core         [][]float32
	Boundary     [][]float32
	Centroid     []float32
	StdDev       float32
	AllDistances []float32
}

// NewProfile creates an empty profile under name.
func NewProfile(id, name string) *Profile {
	return &Profile{ID: id, Name: name}
}

// MaxSimilarityToCore returns the highest cosine similarity between e
// and any core member, or -1 if core is empty.
func (p *Profile) MaxSimilarityToCore(e []float32) (float32, error) {
	return maxSimilarity(e, p.Core)
}

// MaxSimilarityToBoundary returns the highest cosine similarity
// between e and any boundary member, or -1 if boundary is empty.
func (p *Profile) MaxSimilarityToBoundary(e []float32) (float32, error) {
	return maxSimilarity(e, p.Boundary)
}

func maxSimilarity(e []float32, bucket [][]float32) (float32, error) {
	if len(bucket) == 0 {
		return -1, nil
	}
	best := float32(-1)
	for _, m := range bucket {
		sim, err := vector.CosineSimilarity(e, m)
		if err != nil {
			return 0, err
		}
		if sim > best {
			best = sim
		}
	}
	return best, nil
}

// AddEmbedding implements spec.md §4.E's admission procedure: a new
// embedding is routed to core or boundary depending on its highest
// similarity to any existing core member, subject to bucket caps and a
// diversity gate on replacement. Returns a human-readable tag
// describing the bucket and action taken (for logging/diagnostics),
// or ok=false if the embedding was rejected.
func (p *Profile) AddEmbedding(e []float32, forceBoundary bool) (tag string, ok bool, err error) {
	e = vector.Normalize(e)

	if len(p.Core) == 0 && !forceBoundary {
		p.Core = append(p.Core, e)
		p.Centroid = append([]float32{}, e...)
		p.recordDistance(e)
		return "added to core", true, nil
	}

	sCore, err := p.MaxSimilarityToCore(e)
	if err != nil {
		return "", false, err
	}

	if forceBoundary || sCore < CoreThreshold {
		if sCore < BoundaryThreshold {
			return "rejected: below boundary threshold", false, nil
		}

		if len(p.Boundary) < MaxBoundary {
			p.Boundary = append(p.Boundary, e)
			p.recordDistance(e)
			return "added to boundary", true, nil
		}

		admitted, err := replaceWithDiversityGate(&p.Boundary, e)
		if err != nil {
			return "", false, err
		}
		if !admitted {
			return "rejected: insufficient diversity for boundary", false, nil
		}
		p.recordDistance(e)
		return "replaced boundary member (diversity gate)", true, nil
	}

	// s_core >= CORE_THRESHOLD: candidate for core.
	if len(p.Core) < MaxCore {
		p.Core = append(p.Core, e)
		if err := p.recomputeCentroid(); err != nil {
			return "", false, err
		}
		p.recordDistance(e)
		return "added to core", true, nil
	}

	admitted, err := replaceWithDiversityGate(&p.Core, e)
	if err != nil {
		return "", false, err
	}
	if !admitted {
		return "rejected: insufficient diversity for core", false, nil
	}
	if err := p.recomputeCentroid(); err != nil {
		return "", false, err
	}
	p.recordDistance(e)
	return "replaced core member (diversity gate)", true, nil
}

// replaceWithDiversityGate evicts the bucket member most similar to e
// (i.e. nearest in cosine distance) and admits e in its place, but
// only if that minimum distance is at least MinDiversity — otherwise
// e would collapse the bucket's spread and is rejected.
func replaceWithDiversityGate(bucket *[][]float32, e []float32) (bool, error) {
	minDist := float64(2) // max possible cosine distance
	evictIdx := -1

	for i, m := range *bucket {
		d, err := vector.CosineDistance(e, m)
		if err != nil {
			return false, err
		}
		if d < minDist {
			minDist = d
			evictIdx = i
		}
	}

	if minDist < float64(MinDiversity) {
		return false, nil
	}

	(*bucket)[evictIdx] = e
	return true, nil
}

func (p *Profile) recomputeCentroid() error {
	c, err := vector.Centroid(p.Core)
	if err != nil {
		return err
	}
	p.Centroid = c
	return nil
}

func (p *Profile) recordDistance(e []float32) {
	if p.Centroid == nil {
		return
	}
	d, err := vector.CosineDistance(e, p.Centroid)
	if err != nil {
		return
	}
	p.AllDistances = append(p.AllDistances, float32(d))

	distances := make([]float64, len(p.AllDistances))
	for i, v := range p.AllDistances {
		distances[i] = float64(v)
	}
	p.StdDev = float32(vector.StdDev(distances))
}
