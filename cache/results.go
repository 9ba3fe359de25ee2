package cache

import (
	"context"
	"time"
)

// resultsTTL is deliberately short: results change with every vote and the
// cache only has to absorb read bursts.
const resultsTTL = 10 * time.Second

func resultsKey(instanceID string) string {
	return "results:" + instanceID
}

// CacheResults stores a rendered results payload for an instance.
func CacheResults(ctx context.Context, instanceID string, payload []byte) error {
	client, err := GetClient()
	if err != nil {
		return err
	}
	return client.Set(ctx, resultsKey(instanceID), payload, resultsTTL).Err()
}

// GetCachedResults returns the cached results payload, or ErrRedisNotAvailable
// / redis.Nil when there is none.
func GetCachedResults(ctx context.Context, instanceID string) ([]byte, error) {
	client, err := GetClient()
	if err != nil {
		return nil, err
	}
	return client.Get(ctx, resultsKey(instanceID)).Bytes()
}

// InvalidateResults drops the cached results for an instance, called after
// each recorded vote.
func InvalidateResults(ctx context.Context, instanceID string) {
	client, err := GetClient()
	if err != nil {
		return
	}
	client.Del(ctx, resultsKey(instanceID))
}
