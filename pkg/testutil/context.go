package testutil

import (
	"net/http"
	"time"

	"tipjar/pkg/requestcontext"
)

// AtTime pins the request clock to at.
func AtTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}
