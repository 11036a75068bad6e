package detect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/xela07ax/sentinel-server/internal/infra"
)

// ReliabilityWrapper оборачивает вызовы LLM-сайдкара в rate limiter,
// circuit breaker и ретраи. Детекция стоит на горячем пути агента:
// зависший сайдкар не должен топить весь конвейер.
type ReliabilityWrapper struct {
	next    SidecarAnalyzer
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func NewReliabilityWrapper(next SidecarAnalyzer, cfg infra.DetectConfig) *ReliabilityWrapper {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm-sidecar",
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Более 5 ошибок подряд — открываемся (пропускаем мимо модели)
			return counts.ConsecutiveFailures > 5
		},
	})

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)

	return &ReliabilityWrapper{
		next:    next,
		cb:      cb,
		limiter: limiter,
	}
}

// State отдает текущее состояние предохранителя (для метрик).
func (w *ReliabilityWrapper) State() gobreaker.State {
	return w.cb.State()
}

func (w *ReliabilityWrapper) AnalyzeText(ctx context.Context, text string) (*AnalysisResult, error) {
	res, err := execute(ctx, w, func(ctx context.Context) (*AnalysisResult, error) {
		return w.next.AnalyzeText(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (w *ReliabilityWrapper) ClassifyIntent(ctx context.Context, prompt string) (*IntentResult, error) {
	res, err := execute(ctx, w, func(ctx context.Context) (*IntentResult, error) {
		return w.next.ClassifyIntent(ctx, prompt)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// execute — общий контур: limiter -> circuit breaker -> retry.
func execute[T any](ctx context.Context, w *ReliabilityWrapper, call func(context.Context) (T, error)) (T, error) {
	var zero T

	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		return zero, fmt.Errorf("rate limit exceeded: %w", err)
	}

	var finalData T

	// 2. Circuit Breaker
	cbResult, err := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(3),
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// Сайдкар вернул ThrottleError — уважаем его Retry-After
				var tErr *ThrottleError
				if errors.As(err, &tErr) {
					return tErr.RetryAfter
				}

				// Иначе стандартный экспоненциальный бэкофф
				return retry.BackOffDelay(n, err, config)
			}),
		)

		retryErr := r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			var callErr error
			finalData, callErr = call(tCtx)
			return callErr
		})

		return finalData, retryErr
	})

	if err != nil {
		return zero, err
	}

	return cbResult.(T), nil
}
