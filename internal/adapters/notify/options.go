package notify

import "time"

// Option applies a configuration option to the Discord notifier.
type Option func(*Discord)

// WithEnabled toggles notification delivery; when disabled every send is
// a silent no-op.
func WithEnabled(enabled bool) Option {
	return func(d *Discord) {
		d.enabled = enabled
	}
}

// WithTopN caps how many ranked models the rankings embed lists.
func WithTopN(n int) Option {
	return func(d *Discord) {
		if n > 0 {
			d.topN = n
		}
	}
}

// WithTimeout bounds each webhook request.
func WithTimeout(dur time.Duration) Option {
	return func(d *Discord) {
		if dur > 0 {
			d.timeout = dur
		}
	}
}

// WithRateDelay sets the pause before each delivery, protecting against
// webhook rate limits.
func WithRateDelay(dur time.Duration) Option {
	return func(d *Discord) {
		if dur >= 0 {
			d.rateDelay = dur
		}
	}
}

// WithRetryDelay sets the pause before the single redelivery attempt.
func WithRetryDelay(dur time.Duration) Option {
	return func(d *Discord) {
		if dur >= 0 {
			d.retryDelay = dur
		}
	}
}
