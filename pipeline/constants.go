package pipeline

const (
	// DefaultClusterDistanceThreshold is the distance threshold the voca
	// maintain command passes to Library.ClusterUnknowns: the speaker
	// package's BoundaryThreshold (similarity) converted to a cosine
	// distance.
	DefaultClusterDistanceThreshold = 1 - 0.50
)
