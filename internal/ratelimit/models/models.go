package models

import (
	"strings"
	"time"
)

// EndpointClass categorizes endpoints for differentiated rate limiting.
type EndpointClass string

const (
	// ClassAuth covers the unauthenticated sign-in endpoints, keyed by client IP.
	ClassAuth EndpointClass = "auth"
)

func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassAuth:
		return true
	}
	return false
}

// Limit is the number of requests admitted per sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Key builds the bucket key for one identifier in a class.
func Key(class EndpointClass, identifier string) string {
	return "rl:" + string(class) + ":" + strings.ToLower(identifier)
}

type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"error_description"`
	RetryAfter int    `json:"retry_after"`
}
