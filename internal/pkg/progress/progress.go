package progress

const (
	tickStep      = 5
	processingCap = 90
	completedAll  = 100
)

// Estimator turns elapsed polls into a progress percentage.
// The value is a UI heuristic, not an engine measurement.
// It never regresses and stays below 100 until completion
type Estimator struct {
	value int32
}

// Tick advances the estimate for one more poll of a still processing job
func (e *Estimator) Tick() int32 {
	if e.value+tickStep <= processingCap {
		e.value += tickStep
	}
	return e.value
}

// Complete marks the work done
func (e *Estimator) Complete() int32 {
	e.value = completedAll
	return e.value
}

// Value returns current estimate
func (e *Estimator) Value() int32 {
	return e.value
}
