package bucket

import (
	"math"
	"time"

	"tipjar/internal/ratelimit/models"
)

func allowedResult(limit, count int, oldest time.Time, window time.Duration) *models.Result {
	return &models.Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - count,
		ResetAt:   oldest.Add(window),
	}
}

func deniedResult(limit int, oldest, now time.Time, window time.Duration) *models.Result {
	resetAt := oldest.Add(window)
	retry := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if retry < 1 {
		retry = 1
	}
	return &models.Result{
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: retry,
	}
}
