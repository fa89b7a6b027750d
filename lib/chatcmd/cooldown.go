// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatcmd

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bureau-foundation/mcwhitelist/lib/clock"
	"github.com/bureau-foundation/mcwhitelist/lib/ref"
)

// cooldowns holds one token bucket per (command, user): one use per
// Cooldown interval.
type cooldowns struct {
	clock clock.Clock

	mu       sync.Mutex
	limiters map[cooldownKey]*rate.Limiter
}

type cooldownKey struct {
	command string
	user    ref.UserID
}

func newCooldowns(clock clock.Clock) *cooldowns {
	return &cooldowns{clock: clock, limiters: make(map[cooldownKey]*rate.Limiter)}
}

// take consumes a use of command by user, returning the wait until the
// next use is allowed when none is available.
func (c *cooldowns) take(command *Command, user ref.UserID) (time.Duration, bool) {
	if command.Cooldown <= 0 {
		return 0, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := cooldownKey{command: command.Name, user: user}
	limiter, ok := c.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(command.Cooldown), 1)
		c.limiters[key] = limiter
	}

	now := c.clock.Now()
	reservation := limiter.ReserveN(now, 1)
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return delay, false
	}
	return 0, true
}
