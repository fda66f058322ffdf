package counter

import (
	"context"
	"strconv"

	"github.com/harborlist/harborlist/internal/pkg/cache"
)

const (
	allowKey = "authz:counters:allow"
	denyKey  = "authz:counters:deny"
	sweepKey = "authz:counters:sweep"
)

// AddAllow increments the allow counter for an action in Redis
func AddAllow(action string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, allowKey, action, 1).Err()
}

// AddDeny increments the deny counter for an action/reason pair in Redis
func AddDeny(action, reason string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, denyKey, action+"|"+reason, 1).Err()
}

// AddSweepDowngrades adds to the running count of sweep downgrades
func AddSweepDowngrades(n int) error {
	if n <= 0 {
		return nil
	}
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, sweepKey, "downgraded", int64(n)).Err()
}

// Snapshot returns the current allow and deny counters for operator visibility
func Snapshot() (map[string]int64, map[string]int64, error) {
	ctx := context.Background()
	rdb := cache.GetClient()

	allows, err := rdb.HGetAll(ctx, allowKey).Result()
	if err != nil {
		return nil, nil, err
	}
	denies, err := rdb.HGetAll(ctx, denyKey).Result()
	if err != nil {
		return nil, nil, err
	}

	return parseCounts(allows), parseCounts(denies), nil
}

// Reset clears all decision counters
func Reset() error {
	ctx := context.Background()
	return cache.GetClient().Del(ctx, allowKey, denyKey, sweepKey).Err()
}

func parseCounts(raw map[string]string) map[string]int64 {
	out := make(map[string]int64, len(raw))
	for field, val := range raw {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			out[field] = n
		}
	}
	return out
}
