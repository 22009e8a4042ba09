package utils

// =============================================================================
// Sampling Constants
// =============================================================================

const (
	// GapEpsilon is the largest peak-to-peak spread of the timestamp
	// differences (seconds) still considered uniform sampling
	GapEpsilon = 1e-8

	// MinDifferentiateSamples is the shortest series the central difference accepts
	MinDifferentiateSamples = 3

	// ChannelsPerRegion is the number of color channels tracked per region (R, G, B)
	ChannelsPerRegion = 3
)

// =============================================================================
// Transient Defaults
// =============================================================================

const (
	// DefaultLeadTransient is the capture-startup duration dropped from the start (seconds)
	DefaultLeadTransient = 7.0

	// DefaultTrailTransient is the end-of-capture duration dropped from the end (seconds)
	DefaultTrailTransient = 1.0
)

// =============================================================================
// ICA Constants
// =============================================================================

const (
	// DefaultComponents is the component count for the RGB use case
	DefaultComponents = 3

	// DefaultMaxIter is the default FastICA iteration cap
	DefaultMaxIter = 40000

	// DefaultTolerance is the default FastICA convergence tolerance
	DefaultTolerance = 1e-14

	// ConsistencyTolerance is the relative tolerance of the post-canonicalization
	// cross-check U = K·W and S = (X − mean(X))·U
	ConsistencyTolerance = 1e-12

	// SingularEigenvalue is the smallest covariance eigenvalue, relative to the
	// largest, accepted when whitening
	SingularEigenvalue = 1e-12

	// MachineEpsilon is the spacing of float64 values near 1
	MachineEpsilon = 0x1p-52

	// RoundingSlack multiplies the first-order rounding bound of a matrix
	// product chain before it is used as a tolerance
	RoundingSlack = 16
)

// DefaultWarmStart is the initial separating matrix used for the first region
// when no other warm start is configured. Rows are red, green, blue.
var DefaultWarmStart = [3][3]float64{
	{0.05648833, 0.97166715, 0.22950386},
	{0.50415065, 0.17065149, -0.84658738},
	{0.86176632, -0.16352682, 0.48022681},
}

// DefaultWarmStartSlice returns DefaultWarmStart as a fresh row-major slice
func DefaultWarmStartSlice() [][]float64 {
	rows := make([][]float64, len(DefaultWarmStart))
	for i, r := range DefaultWarmStart {
		rows[i] = append([]float64(nil), r[:]...)
	}
	return rows
}

// =============================================================================
// Output Constants
// =============================================================================

const (
	// DefaultPrecision is the number of significant digits written per value
	DefaultPrecision = 16

	// MinPrecision is the smallest precision consistent with ConsistencyTolerance
	MinPrecision = 15

	// DefaultPublishBatchSize is the number of rows per published message
	DefaultPublishBatchSize = 500
)

// =============================================================================
// Queue Type Constants
// =============================================================================
// QueueType represents the type of message queue
type QueueType string

const (
	// QueueTypeNATS represents NATS JetStream queue
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams queue
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka queue
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMemory represents in-memory queue (default, for testing)
	QueueTypeMemory QueueType = "memory"
)
