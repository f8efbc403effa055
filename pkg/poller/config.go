package poller

import "time"

const (
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 3 * time.Second
	defaultFactor          = 1.2
	defaultFailureFactor   = 2.0
	defaultWarmupAttempts  = 3
	defaultMaxRetries      = 60
)

// Config shapes the backoff curve shared by every job of a Poller.
type Config struct {
	// InitialInterval is the wait after the first poll.
	InitialInterval time.Duration

	// MaxInterval caps the wait between polls.
	MaxInterval time.Duration

	// Factor multiplies the interval after each non-terminal status once
	// the warmup attempts are spent.
	Factor float64

	// FailureFactor further multiplies Factor after a failed fetch, so
	// transport errors back off faster than "still processing" answers.
	FailureFactor float64

	// WarmupAttempts is the number of polls kept at InitialInterval.
	WarmupAttempts int

	// MaxRetries bounds the number of polls per job.
	MaxRetries int
}

// DefaultConfig polls fast for the first seconds, then slows down to a
// three second cadence, giving up after roughly three minutes.
func DefaultConfig() Config {
	return Config{
		InitialInterval: defaultInitialInterval,
		MaxInterval:     defaultMaxInterval,
		Factor:          defaultFactor,
		FailureFactor:   defaultFailureFactor,
		WarmupAttempts:  defaultWarmupAttempts,
		MaxRetries:      defaultMaxRetries,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.InitialInterval <= 0 {
		c.InitialInterval = d.InitialInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = d.MaxInterval
	}
	if c.InitialInterval > c.MaxInterval {
		c.InitialInterval = c.MaxInterval
	}
	if c.Factor < 1 {
		c.Factor = d.Factor
	}
	if c.FailureFactor < 1 {
		c.FailureFactor = d.FailureFactor
	}
	if c.WarmupAttempts < 0 {
		c.WarmupAttempts = 0
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	return c
}

// NextInterval is the wait after a non-terminal status, given the attempt
// count after that poll.
func (c Config) NextInterval(current time.Duration, attempts int) time.Duration {
	if attempts <= c.WarmupAttempts {
		return current
	}
	return c.grow(current, c.Factor)
}

// FailureInterval is the wait after a failed fetch.
func (c Config) FailureInterval(current time.Duration) time.Duration {
	return c.grow(current, c.Factor*c.FailureFactor)
}

func (c Config) grow(current time.Duration, factor float64) time.Duration {
	next := time.Duration(float64(current) * factor)
	if next < current {
		next = current
	}
	return min(next, c.MaxInterval)
}
