package app

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestCollectionOf(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	testCases := []struct {
		cmd  redis.Cmder
		want string
	}{
		{redis.NewStringCmd(ctx, "get", "carva:idempotency:sara:POST:/v1/requests:k1"), "idempotency"},
		{redis.NewBoolCmd(ctx, "setnx", "lock:request:42", "1"), "locks"},
		{redis.NewIntCmd(ctx, "geoadd", "carva:drivers:locations", 46.67, 24.7, "driver1"), "driver_locations"},
		{redis.NewStringCmd(ctx, "get", "carva_active_requests"), "collections"},
		{redis.NewStringCmd(ctx, "get", "notified_arrival_1700000000000"), "collections"},
		{redis.NewStatusCmd(ctx, "ping"), "redis"},
	}

	for _, tc := range testCases {
		if got := collectionOf(tc.cmd); got != tc.want {
			t.Errorf("collectionOf(%v) = %q, want %q", tc.cmd.Args(), got, tc.want)
		}
	}
}
