// Package redis keeps the leaderboards in redis sorted sets.
package redis

import (
	"context"
	"io"
	"net"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
)

const (
	AllTimeKey = "leaderboard:points"
	WeeklyKey  = "leaderboard:weekly"
)

type Scoreboard struct {
	client redis.UniversalClient
	prefix string
}

var _ account.Scoreboard = (*Scoreboard)(nil) // interface compliance check

// NewScoreboard uses client to store both leaderboards; keys are prefixed with prefix when set.
func NewScoreboard(client redis.UniversalClient, prefix string) *Scoreboard {
	return &Scoreboard{client: client, prefix: prefix}
}

// NewClient connects to the configured redis server.
func NewClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func (sb *Scoreboard) key(period account.Period) string {
	key := AllTimeKey
	if period == account.PeriodWeekly {
		key = WeeklyKey
	}
	if sb.prefix != "" {
		key = sb.prefix + ":" + key
	}
	return key
}

func (sb *Scoreboard) SetScores(ctx context.Context, accountID string, points, weeklyPoints int) error {
	_, err := sb.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, sb.key(account.PeriodAllTime), redis.Z{Score: float64(points), Member: accountID})
		pipe.ZAdd(ctx, sb.key(account.PeriodWeekly), redis.Z{Score: float64(weeklyPoints), Member: accountID})
		return nil
	})
	return storageError("setting scores", err)
}

// Top returns the best limit scores of the period, highest first.
func (sb *Scoreboard) Top(ctx context.Context, period account.Period, limit int) ([]account.Score, error) {
	results, err := sb.client.ZRevRangeWithScores(ctx, sb.key(period), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, storageError("reading scoreboard", err)
	}

	scores := make([]account.Score, 0, len(results))
	for _, z := range results {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		scores = append(scores, account.Score{AccountID: id, Score: int(z.Score)})
	}
	return scores, nil
}

func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return core.NewStorageError(op, err, isTransient(err))
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	return msg == "redis: connection pool timeout" ||
		strings.HasPrefix(msg, "LOADING") || strings.HasPrefix(msg, "TRYAGAIN") || strings.HasPrefix(msg, "BUSY")
}
