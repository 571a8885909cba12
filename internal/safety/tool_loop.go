package safety

// ToolLoopDetector tracks the running tool-call count for one execute
// phase and classifies it against warning/critical/circuit-breaker
// thresholds so the Executor can escalate before burning the whole
// iteration budget on a stuck tool loop.
type ToolLoopDetector struct {
	Warning        int
	Critical       int
	CircuitBreaker int

	count int
}

// ToolLoopLevel is the detector's classification of the current call count.
type ToolLoopLevel string

const (
	ToolLoopNone           ToolLoopLevel = "none"
	ToolLoopWarning        ToolLoopLevel = "warning"
	ToolLoopCritical       ToolLoopLevel = "critical"
	ToolLoopCircuitBreaker ToolLoopLevel = "circuit_breaker"
)

// RecordCall increments the running count and returns the current level.
func (d *ToolLoopDetector) RecordCall() ToolLoopLevel {
	d.count++
	switch {
	case d.CircuitBreaker > 0 && d.count >= d.CircuitBreaker:
		return ToolLoopCircuitBreaker
	case d.Critical > 0 && d.count >= d.Critical:
		return ToolLoopCritical
	case d.Warning > 0 && d.count >= d.Warning:
		return ToolLoopWarning
	default:
		return ToolLoopNone
	}
}

// Reset zeroes the running count at the start of a new execute phase.
func (d *ToolLoopDetector) Reset() {
	d.count = 0
}
