package speaker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/zhengyishen0/voca-app/errs"
	"github.com/zhengyishen0/voca-app/vector"
)

// Library is the enrolled-speaker registry: the match/enroll/
// auto-learn/cluster surface spec.md §4.F describes, backed by an
// atomically-persisted JSON file (grounded on voiceprint/store.go's
// temp-file-then-rename pattern).
type Library struct {
	mu       sync.RWMutex
	profiles map[string]*Profile // keyed by name

	// unknownPool holds embeddings parked as Unknown, awaiting
	// ClusterUnknowns.
	unknownPool [][]float32
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{profiles: make(map[string]*Profile)}
}

type candidate struct {
	profile *Profile
	s       float32
}

// Match implements spec.md §4.F's confidence-tiering procedure.
func (l *Library) Match(e []float32) (name string, similarity float32, confidence Confidence, err error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var ranked []candidate
	for _, p := range l.profiles {
		sc, err := p.MaxSimilarityToCore(e)
		if err != nil {
			return "", 0, ConfidenceUnknown, err
		}
		sb, err := p.MaxSimilarityToBoundary(e)
		if err != nil {
			return "", 0, ConfidenceUnknown, err
		}
		s := sc
		if sb > s {
			s = sb
		}
		ranked = append(ranked, candidate{profile: p, s: s})
	}

	if len(ranked) == 0 {
		return UnknownName, 0, ConfidenceUnknown, nil
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].s > ranked[j].s })

	p1 := ranked[0]
	var p2 *candidate
	if len(ranked) > 1 {
		p2 = &ranked[1]
	}

	if p1.s < BoundaryThreshold {
		return UnknownName, p1.s, ConfidenceUnknown, nil
	}

	margin := float32(2) // no second candidate: treat margin as unbounded
	if p2 != nil {
		margin = p1.s - p2.s
	}

	switch {
	case p1.s >= CoreThreshold && (p2 == nil || margin >= ConflictMargin):
		return p1.profile.Name, p1.s, ConfidenceHigh, nil
	case p2 != nil && margin < ConflictMargin && p2.s >= BoundaryThreshold:
		return p1.profile.Name, p1.s, ConfidenceConflict, nil
	case p2 == nil:
		return p1.profile.Name, p1.s, ConfidenceLow, nil
	case margin >= ConflictMargin:
		return p1.profile.Name, p1.s, ConfidenceMedium, nil
	default:
		return p1.profile.Name, p1.s, ConfidenceLow, nil
	}
}

// Enroll creates a new profile under name and admits e to its core.
func (l *Library) Enroll(name string, e []float32) (*Profile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if name == "" || name == UnknownName {
		return nil, &errs.InvalidInput{Kind: "speaker name"}
	}
	if _, exists := l.profiles[name]; exists {
		return nil, &errs.DuplicateName{Name: name}
	}

	p := NewProfile(uuid.NewString(), name)
	if _, _, err := p.AddEmbedding(e, false); err != nil {
		return nil, err
	}
	l.profiles[name] = p
	return p, nil
}

// AutoLearn is called after a high-confidence match: if score clears
// AutoLearnThreshold, the embedding is folded into that profile.
func (l *Library) AutoLearn(name string, e []float32, score float32) (admitted bool, err error) {
	if score < AutoLearnThreshold {
		return false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.profiles[name]
	if !ok {
		return false, nil
	}
	_, admitted, err = p.AddEmbedding(e, false)
	return admitted, err
}

// ParkUnknown records an embedding that couldn't be matched, for a
// later ClusterUnknowns pass.
func (l *Library) ParkUnknown(e []float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unknownPool = append(l.unknownPool, vector.Normalize(e))
}

// ClusterUnknowns runs agglomerative clustering (single-link, cosine
// distance) over the parked Unknown pool via union-find, the same
// approach ai/diarization.go uses for offline speaker grouping.
// Clusters of size >= MinClusterSize become provisional profiles named
// by an auto-generated cluster_label and their members leave the pool;
// members of smaller groups stay parked for a later pass.
func (l *Library) ClusterUnknowns(distanceThreshold float64) ([]*Profile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.unknownPool)
	if n == 0 {
		return nil, nil
	}

	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d, err := vector.CosineDistance(l.unknownPool[i], l.unknownPool[j])
			if err != nil {
				return nil, err
			}
			if d <= distanceThreshold {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	for i := 0; i < n; i++ {
		root := find(i)
		groups[root] = append(groups[root], i)
	}

	var created []*Profile
	remaining := make(map[int]bool)
	for i := 0; i < n; i++ {
		remaining[i] = true
	}

	clusterNum := 1
	for _, members := range groups {
		if len(members) < MinClusterSize {
			continue
		}

		label := fmt.Sprintf("cluster_%d", clusterNum)
		clusterNum++
		for l.profiles[label] != nil {
			label = fmt.Sprintf("cluster_%d", clusterNum)
			clusterNum++
		}

		p := NewProfile(uuid.NewString(), label)
		for _, idx := range members {
			if _, _, err := p.AddEmbedding(l.unknownPool[idx], false); err != nil {
				return nil, err
			}
			delete(remaining, idx)
		}
		l.profiles[label] = p
		created = append(created, p)
	}

	var survivors [][]float32
	for i := 0; i < n; i++ {
		if remaining[i] {
			survivors = append(survivors, l.unknownPool[i])
		}
	}
	l.unknownPool = survivors

	return created, nil
}

// ConfirmOutliers re-examines every profile's members against its own
// centroid/stddev, moving members that drift too far into the Unknown
// pool (core members are demoted to boundary first, and only parked
// to Unknown from there). Idempotent: running it twice in a row is a
// no-op the second time.
func (l *Library) ConfirmOutliers() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// A profile whose members moved is queued again, so its remaining
	// members are re-checked against the recomputed centroid.
	queue := make([]*Profile, 0, len(l.profiles))
	for _, p := range l.profiles {
		queue = append(queue, p)
	}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if p.Centroid == nil || p.StdDev == 0 {
			continue
		}
		cutoff := float64(p.StdDev) * OutlierStdDevMultiple

		keep := p.Core[:0:0]
		demoted := [][]float32(nil)
		for _, m := range p.Core {
			d, err := vector.CosineDistance(m, p.Centroid)
			if err != nil {
				return err
			}
			if d > cutoff {
				demoted = append(demoted, m)
			} else {
				keep = append(keep, m)
			}
		}
		p.Core = keep

		boundaryKeep := p.Boundary[:0:0]
		parked := 0
		for _, m := range p.Boundary {
			d, err := vector.CosineDistance(m, p.Centroid)
			if err != nil {
				return err
			}
			if d > cutoff {
				l.unknownPool = append(l.unknownPool, m)
				parked++
			} else {
				boundaryKeep = append(boundaryKeep, m)
			}
		}
		p.Boundary = append(boundaryKeep, demoted...)

		moved := len(demoted) > 0 || parked > 0
		if moved && len(p.Core) > 0 {
			if err := p.recomputeCentroid(); err != nil {
				return err
			}
		}
		if moved {
			queue = append(queue, p)
		}
	}
	return nil
}

// serializedLibrary is the on-disk schema from spec.md §4.F.
type serializedLibrary struct {
	Speakers []serializedProfile `json:"speakers"`
}

type serializedProfile struct {
	Name         string      `json:"name"`
	Core         [][]float32 `json:"core"`
	Boundary     [][]float32 `json:"boundary"`
	Centroid     []float32   `json:"centroid"`
	StdDev       float32     `json:"stdDev"`
	AllDistances []float32   `json:"allDistances"`
}

// Save serialises the library to path, writing to a temp sibling and
// renaming into place so a crash mid-write never corrupts the
// previous version — the same pattern voiceprint/store.go uses.
func (l *Library) Save(path string) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := serializedLibrary{}
	for _, p := range l.profiles {
		out.Speakers = append(out.Speakers, serializedProfile{
			Name:         p.Name,
			Core:         p.Core,
			Boundary:     p.Boundary,
			Centroid:     p.Centroid,
			StdDev:       p.StdDev,
			AllDistances: p.AllDistances,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return &errs.LibraryIO{Detail: "marshal", Cause: err}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".library-*.tmp")
	if err != nil {
		return &errs.LibraryIO{Detail: "create temp file", Cause: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &errs.LibraryIO{Detail: "write temp file", Cause: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &errs.LibraryIO{Detail: "close temp file", Cause: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &errs.LibraryIO{Detail: "rename into place", Cause: err}
	}
	return nil
}

// Load replaces the library's contents with the profiles serialised
// at path.
func (l *Library) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &errs.LibraryIO{Detail: "read file", Cause: err}
	}

	var in serializedLibrary
	if err := json.Unmarshal(data, &in); err != nil {
		return &errs.LibraryCorrupt{Detail: "invalid JSON", Cause: err}
	}

	profiles := make(map[string]*Profile, len(in.Speakers))
	for _, sp := range in.Speakers {
		if sp.Name == "" {
			return &errs.LibraryCorrupt{Detail: "speaker with empty name"}
		}
		profiles[sp.Name] = &Profile{
			ID:           uuid.NewString(),
			Name:         sp.Name,
			Core:         sp.Core,
			Boundary:     sp.Boundary,
			Centroid:     sp.Centroid,
			StdDev:       sp.StdDev,
			AllDistances: sp.AllDistances,
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.profiles = profiles
	return nil
}
