package edgestow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Retry defaults applied when the configuration leaves them unset.
const (
	DefaultMaxAttempts = 3
	DefaultBackoffBase = 200 * time.Millisecond
)

// RetryingFetcher wraps an Origin with bounded retries and exponential
// backoff. Transport errors, 5xx statuses, and range responses that lost
// their Content-Range header are transient and retried; any other origin
// response is definitive and returned untouched, 4xx included, so the
// client sees exactly what the origin said.
type RetryingFetcher struct {
	origin      Origin
	maxAttempts int
	backoffBase time.Duration
	logger      *slog.Logger
}

// NewRetryingFetcher creates a fetcher over origin. Non-positive
// maxAttempts or backoffBase fall back to the package defaults; a nil
// logger discards retry diagnostics.
func NewRetryingFetcher(origin Origin, maxAttempts int, backoffBase time.Duration, logger *slog.Logger) *RetryingFetcher {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if backoffBase <= 0 {
		backoffBase = DefaultBackoffBase
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RetryingFetcher{
		origin:      origin,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		logger:      logger,
	}
}

// Fetch performs the origin request, retrying transient failures with
// backoff base*2^attempt plus jitter. The sleeps between attempts are not
// cut short by ctx; the loop is bounded by the attempt budget alone, while
// ctx still governs each individual origin call. Once the budget is spent
// the last failure is wrapped in a *FetchError matching ErrUpstream.
func (f *RetryingFetcher) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(f.backoff(attempt - 1))
		}

		res, err := f.origin.Fetch(ctx, req)
		retry, cause := transient(req, res, err)
		if !retry {
			return res, nil
		}
		lastErr = cause
		f.logger.Warn("origin fetch failed",
			"key", req.Key,
			"attempt", attempt+1,
			"max_attempts", f.maxAttempts,
			"error", cause,
		)
	}
	return nil, &FetchError{Attempts: f.maxAttempts, LastErr: lastErr}
}

// transient classifies one attempt's outcome. A 2xx answer to a range
// request must carry Content-Range; origins that silently ignore the Range
// header produce a response useless to the client, so it is retried rather
// than passed through.
func transient(req FetchRequest, res *FetchResult, err error) (bool, error) {
	if err != nil {
		return true, err
	}
	if res.Status >= 500 {
		return true, fmt.Errorf("origin returned status %d", res.Status)
	}
	if req.Range != "" && res.Status >= 200 && res.Status < 300 && res.Header("Content-Range") == "" {
		return true, fmt.Errorf("origin ignored range request")
	}
	return false, nil
}

func (f *RetryingFetcher) backoff(attempt int) time.Duration {
	return f.backoffBase*(1<<attempt) + rand.N(f.backoffBase)
}
