package flow

import (
	"math"
	"time"

	"golang.org/x/time/rate"
)

// ResendCooldown is how long resend stays disabled after the session starts or a resend.
const ResendCooldown = 30 * time.Second

// Countdown gates the resend action. It refills one token per second up to
// the cooldown length in seconds; resend is enabled only when full.
type Countdown struct {
	lim   *rate.Limiter
	burst int
	now   func() time.Time
}

// NewCountdown returns a countdown that starts disabled at now().
func NewCountdown(length time.Duration, now func() time.Time) *Countdown {
	if now == nil {
		now = time.Now
	}
	burst := int(length / time.Second)
	c := &Countdown{
		lim:   rate.NewLimiter(rate.Every(time.Second), burst),
		burst: burst,
		now:   now,
	}
	c.Restart()
	return c
}

// Restart disables resend for the full cooldown from now.
func (c *Countdown) Restart() {
	t := c.now()
	// Drain whatever has refilled so the wait is always the full length.
	if tokens := int(math.Floor(c.lim.TokensAt(t))); tokens > 0 {
		c.lim.AllowN(t, tokens)
	}
}

// Remaining returns the whole seconds left before resend is enabled, rounded up.
func (c *Countdown) Remaining() int {
	missing := float64(c.burst) - c.lim.TokensAt(c.now())
	if missing <= 0 {
		return 0
	}
	return int(math.Ceil(missing))
}

// Enabled reports whether resend is allowed now.
func (c *Countdown) Enabled() bool {
	return c.Remaining() == 0
}

// Take consumes the cooldown if it has elapsed and restarts it.
// Returns false without changing state when resend is still disabled.
func (c *Countdown) Take() bool {
	return c.lim.AllowN(c.now(), c.burst)
}
