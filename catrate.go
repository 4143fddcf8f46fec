package reactor

import (
	"time"

	"github.com/joeycumines/go-catrate"
)

// CatrateLimiter wraps github.com/joeycumines/go-catrate's sliding-window
// Limiter as an Acceptor accept-rate limiter. Categories are typically a
// peer's remote IP, so one noisy source can't starve the rest of the
// accept queue.
type CatrateLimiter struct {
	limiter *catrate.Limiter
}

// NewCatrateLimiter builds a CatrateLimiter from a set of sliding-window
// rates, e.g. {time.Second: 50, time.Minute: 1000}. See
// catrate.NewLimiter for the monotonicity requirement across windows.
func NewCatrateLimiter(rates map[time.Duration]int) *CatrateLimiter {
	return &CatrateLimiter{limiter: catrate.NewLimiter(rates)}
}

// Allow reports whether a new accept for category should proceed.
func (c *CatrateLimiter) Allow(category any) bool {
	_, ok := c.limiter.Allow(category)
	return ok
}
