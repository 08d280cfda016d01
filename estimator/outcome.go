package estimator

// Status distinguishes a clean run from one that fell back on
// interpolation and from one that produced nothing usable.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// Outcome is the explicit result of a pipeline phase.
type Outcome[T any] struct {
	Value  T
	Status Status
	Reason string
	Err    error
}

func OK[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v, Status: StatusOK}
}

func Degraded[T any](v T, reason string) Outcome[T] {
	return Outcome[T]{Value: v, Status: StatusDegraded, Reason: reason}
}

func Failed[T any](err error) Outcome[T] {
	return Outcome[T]{Status: StatusFailed, Reason: err.Error(), Err: err}
}

// Unwrap returns the value for ok and degraded outcomes and the error
// for failed ones.
func (o Outcome[T]) Unwrap() (T, error) {
	return o.Value, o.Err
}
