package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"dskdao/models"
)

const (
	keyLeaderboard = "leaderboard:%s:%s" // game ID, period bucket
	keyUsernames   = "leaderboard:usernames"

	dailyTTL  = 48 * time.Hour
	weeklyTTL = 15 * 24 * time.Hour
)

// Leaderboard keeps per-game net winnings rankings in Redis sorted sets.
// It is a read-through cache over the game sessions table: a missing key
// reports a miss and the caller falls back to the database.
type Leaderboard struct {
	client *redis.Client
	now    func() time.Time
}

// NewLeaderboard connects to Redis and verifies the connection
func NewLeaderboard(addr, password string) (*Leaderboard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Leaderboard{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (l *Leaderboard) Close() error {
	return l.client.Close()
}

// AddNetWinnings accumulates a settled session's net result into the daily,
// weekly and all-time sorted sets for the game
func (l *Leaderboard) AddNetWinnings(ctx context.Context, gameID models.GameID, discordID int64, username string, net int64) error {
	now := l.now()
	member := strconv.FormatInt(discordID, 10)

	pipe := l.client.Pipeline()
	for period, ttl := range map[models.LeaderboardPeriod]time.Duration{
		models.LeaderboardPeriodDaily:  dailyTTL,
		models.LeaderboardPeriodWeekly: weeklyTTL,
		models.LeaderboardPeriodAll:    0,
	} {
		key := l.key(gameID, period, now)
		pipe.ZIncrBy(ctx, key, float64(net), member)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
	}
	pipe.HSet(ctx, keyUsernames, member, username)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update leaderboard: %w", err)
	}
	return nil
}

// Top returns up to limit entries ordered by net winnings descending. The
// boolean reports whether the cache held data for the period.
func (l *Leaderboard) Top(ctx context.Context, gameID models.GameID, period models.LeaderboardPeriod, limit int) ([]*models.LeaderboardEntry, bool, error) {
	key := l.key(gameID, period, l.now())

	members, err := l.client.ZRevRangeWithScores(ctx, key, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	if len(members) == 0 {
		return nil, false, nil
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.Member.(string)
	}
	usernames, err := l.client.HMGet(ctx, keyUsernames, ids...).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read usernames: %w", err)
	}

	entries := make([]*models.LeaderboardEntry, 0, len(members))
	for i, m := range members {
		discordID, err := strconv.ParseInt(ids[i], 10, 64)
		if err != nil {
			log.WithField("member", ids[i]).Warn("Skipping malformed leaderboard member")
			continue
		}
		username := ""
		if s, ok := usernames[i].(string); ok {
			username = s
		}
		entries = append(entries, &models.LeaderboardEntry{
			Rank:        len(entries) + 1,
			DiscordID:   discordID,
			Username:    username,
			NetWinnings: int64(m.Score),
		})
	}

	return entries, true, nil
}

// key buckets daily and weekly boards by UTC date so periods roll over
// without explicit invalidation
func (l *Leaderboard) key(gameID models.GameID, period models.LeaderboardPeriod, now time.Time) string {
	var bucket string
	switch period {
	case models.LeaderboardPeriodDaily:
		bucket = "daily:" + now.Format("2006-01-02")
	case models.LeaderboardPeriodWeekly:
		year, week := now.ISOWeek()
		bucket = fmt.Sprintf("weekly:%d-%02d", year, week)
	default:
		bucket = "all"
	}
	return fmt.Sprintf(keyLeaderboard, gameID, bucket)
}
