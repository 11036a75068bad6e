package detect

import (
	"fmt"
	"time"
)

// ThrottleError сигнализирует, что сайдкар перегружен и сообщил Retry-After.
// Retry-политика обвязки использует это значение вместо стандартного бэкоффа.
type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}

func (e *ThrottleError) Unwrap() error { return e.Cause }
