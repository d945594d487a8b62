package speaker

// Constant names restored from the original pipeline (see SPEC_FULL.md —
// SUPPLEMENTED FEATURES), values adapted from the teacher's
// voiceprint confidence tiers (ThresholdHigh/Medium/Low) to the
// dual-bucket core/boundary model spec.md §4.E/§4.F describes.
const (
	CoreThreshold      float32 = 0.70
	BoundaryThreshold  float32 = 0.50
	AutoLearnThreshold float32 = 0.85
	ConflictMargin     float32 = 0.05
	MinDiversity       float32 = 0.10

	MaxCore     = 10
	MaxBoundary = 20

	// MinClusterSize and OutlierStdDevMultiple are the conservative
	// defaults spec.md §9 Open Questions calls for when
	// cluster_unknowns/confirm_outliers policy isn't fully specified.
	MinClusterSize        = 2
	OutlierStdDevMultiple = 3.0

	// UnknownName is reserved: enroll() rejects it as a display name.
	UnknownName = "Unknown"
)

// Confidence is the match() result tier from spec.md §4.F.
type Confidence string

const (
	ConfidenceHigh     Confidence = "high"
	ConfidenceMedium   Confidence = "medium"
	ConfidenceConflict Confidence = "conflict"
	ConfidenceLow      Confidence = "low"
	ConfidenceUnknown  Confidence = "unknown"
)
