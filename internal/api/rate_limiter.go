package api

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/inbox-snapshot/internal/types"
)

// RateLimiter manages per-user rate limiting for API requests
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex

	// Rate limits per tier (requests per second)
	freeTierLimit    rate.Limit
	trialTierLimit   rate.Limit
	starterTierLimit rate.Limit
	proTierLimit     rate.Limit

	burstSize int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(freeRPS, trialRPS, starterRPS, proRPS int) *RateLimiter {
	return &RateLimiter{
		limiters:         make(map[string]*rate.Limiter),
		freeTierLimit:    rate.Limit(freeRPS),
		trialTierLimit:   rate.Limit(trialRPS),
		starterTierLimit: rate.Limit(starterRPS),
		proTierLimit:     rate.Limit(proRPS),
		burstSize:        10,
	}
}

// getLimiter returns the rate limiter for a specific user and tier
func (rl *RateLimiter) getLimiter(userID string, tier types.SubscriptionTier) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[userID]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	var limit rate.Limit
	switch tier {
	case types.TierPro:
		limit = rl.proTierLimit
	case types.TierStarter:
		limit = rl.starterTierLimit
	case types.TierTrial:
		limit = rl.trialTierLimit
	default:
		limit = rl.freeTierLimit
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Another goroutine may have created it in the meantime.
	if limiter, exists := rl.limiters[userID]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(limit, rl.burstSize)
	rl.limiters[userID] = limiter
	return limiter
}

// RateLimitMiddleware creates a middleware that enforces rate limiting
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get("X-User-ID")
			if userID == "" {
				// No user identity yet, fall back to the client address.
				userID = r.RemoteAddr
			}

			tier := types.SubscriptionTier(r.Header.Get("X-User-Tier"))
			if !types.ValidTier(tier) {
				tier = types.TierFree
			}

			if !rl.getLimiter(userID, tier).Allow() {
				respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
					"Too many requests. Please slow down.", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
