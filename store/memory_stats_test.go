package store

import (
	"context"
	"net/url"
	"testing"

	"github.com/BatmanBruc/ofmbot/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStats(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStats()

	require.NoError(t, m.TrackUser(ctx, types.User{UserID: 1}))
	require.NoError(t, m.TrackUser(ctx, types.User{UserID: 1, Username: "again"}))
	require.NoError(t, m.TrackUser(ctx, types.User{UserID: 2}))

	n, err := m.ActiveUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, m.Incr(ctx, string(types.OpMerge)))
	require.NoError(t, m.Incr(ctx, string(types.OpMerge)))

	counters, err := m.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counters["merge"])
	assert.Equal(t, int64(0), counters["ocr"])
	assert.Contains(t, counters, types.CounterResume)
}

func TestBuildPostgresDSN(t *testing.T) {
	cases := []struct {
		params PostgresParams
		want   string
	}{
		{
			PostgresParams{User: "bot", Password: "p@ss:w/rd", Host: "db"},
			"postgres://bot:p%40ss%3Aw%2Frd@db:5432/ofmbot?sslmode=disable",
		},
		{
			PostgresParams{Password: "a#b%c?d", Host: "::1", Port: "6432", DB: "stats"},
			"postgres://ofmbot:a%23b%25c%3Fd@[::1]:6432/stats?sslmode=disable",
		},
		{
			PostgresParams{},
			"postgres://ofmbot:@localhost:5432/ofmbot?sslmode=disable",
		},
	}
	for _, tc := range cases {
		dsn := BuildPostgresDSN(tc.params)
		assert.Equal(t, tc.want, dsn)

		u, err := url.Parse(dsn)
		require.NoError(t, err)
		pw, _ := u.User.Password()
		assert.Equal(t, tc.params.Password, pw)
	}
}
