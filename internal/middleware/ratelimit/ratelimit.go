package rateLimit

import (
	"net/http"
	"time"

	httprate "github.com/go-chi/httprate"
)

func SigninRequest() func(http.Handler) http.Handler {
	return limitByIP(10, 10*time.Minute)
}

// SigninVerify and SignupComplete bound code guessing per client on top of the
// per-token attempt counter.
func SigninVerify() func(http.Handler) http.Handler {
	return limitByIP(20, 10*time.Minute)
}

func SignupLookup() func(http.Handler) http.Handler {
	return limitByIP(30, 10*time.Minute)
}

func SignupComplete() func(http.Handler) http.Handler {
	return limitByIP(10, time.Hour)
}

func Logout() func(http.Handler) http.Handler {
	return limitByIP(20, 10*time.Minute)
}

func limitByIP(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.LimitByIP(limit, window)
}
