package scheduler

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Delay is a pause duration in seconds. DelayForever pauses until Resume.
type Delay int64

const (
	DelayNone          Delay = 0
	DelayTenMinutes    Delay = 600
	DelayThirtyMinutes Delay = 1800
	DelayOneHour       Delay = 3600
	DelayOneDay        Delay = 86400
	DelayForever       Delay = -1

	// MaxDelay is the longest finite delay whose duration fits in a
	// time.Duration.
	MaxDelay = Delay(math.MaxInt64 / int64(time.Second))
)

var delayNames = map[string]Delay{
	"none":    DelayNone,
	"10m":     DelayTenMinutes,
	"30m":     DelayThirtyMinutes,
	"1h":      DelayOneHour,
	"1d":      DelayOneDay,
	"forever": DelayForever,
}

// ParseDelay accepts a preset name (none, 10m, 30m, 1h, 1d, forever) or a
// whole number of seconds.
func ParseDelay(s string) (Delay, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if d, ok := delayNames[s]; ok {
		return d, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDelay, s)
	}
	d := Delay(n)
	if err := d.validate(); err != nil {
		return 0, err
	}
	return d, nil
}

func (d Delay) validate() error {
	if d < 0 && d != DelayForever {
		return fmt.Errorf("%w: %d", ErrInvalidDelay, int64(d))
	}
	if d > MaxDelay {
		return fmt.Errorf("%w: %d exceeds %d seconds", ErrInvalidDelay, int64(d), int64(MaxDelay))
	}
	return nil
}

// Duration converts a finite delay. DelayForever has no duration and returns 0.
func (d Delay) Duration() time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(d) * time.Second
}

func (d Delay) String() string {
	switch d {
	case DelayNone:
		return "none"
	case DelayForever:
		return "forever"
	}
	return d.Duration().String()
}
