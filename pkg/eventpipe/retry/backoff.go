package retry

import "time"

// maxShift bounds the exponent so the delay never overflows.
const maxShift = 32

// Backoff computes exponential retry delays.
type Backoff struct {
	Base time.Duration
}

// Delay returns Base * 2^n. Negative n is treated as zero.
func (b Backoff) Delay(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	if n > maxShift {
		n = maxShift
	}
	return b.Base * time.Duration(uint64(1)<<uint(n))
}
