package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/EasterCompany/dex-leveling-service/cache"
	"github.com/EasterCompany/dex-leveling-service/leveling"
	"github.com/redis/go-redis/v9"
)

// addXPScript applies ARGV[1] to member ARGV[2], clamps the score to
// [0, ARGV[3]] and stores the matching level capped at ARGV[4], all in one
// step. It returns {xp, gained, level}.
var addXPScript = redis.NewScript(`
local maxXP = tonumber(ARGV[3])
local maxLevel = tonumber(ARGV[4])
local prev = tonumber(redis.call('ZSCORE', KEYS[1], ARGV[2]) or '0')
local cur = math.min(math.max(prev, 0), maxXP)
local xp = math.min(math.max(cur + tonumber(ARGV[1]), 0), maxXP)

local function threshold(n)
	if n <= 0 then
		return 0
	end
	return 5 * n * n + 50 * n + 100
end

local level = 0
if xp >= threshold(1) then
	level = math.floor((math.sqrt(20 * xp + 500) - 50) / 10)
	level = math.min(math.max(level, 0), maxLevel)
	while level < maxLevel and threshold(level + 1) <= xp do
		level = level + 1
	end
	while level > 0 and threshold(level) > xp do
		level = level - 1
	end
end

redis.call('ZADD', KEYS[1], xp, ARGV[2])
redis.call('HSET', KEYS[2], ARGV[2], level)
return {xp, xp - prev, level}
`)

// RedisStore keeps each guild's XP in a sorted set and levels in a hash.
type RedisStore struct {
	client *cache.RedisClient
}

func NewRedisStore(client *cache.RedisClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) xpKey(guildID string) string    { return s.client.Key("guild", guildID, "xp") }
func (s *RedisStore) levelKey(guildID string) string { return s.client.Key("guild", guildID, "level") }
func (s *RedisStore) settingsKey() string            { return s.client.Key("settings", "levelup_channel") }

func (s *RedisStore) Get(ctx context.Context, guildID, userID string) (Progress, error) {
	var score *redis.FloatCmd
	var level *redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAddNX(ctx, s.xpKey(guildID), redis.Z{Score: 0, Member: userID})
		pipe.HSetNX(ctx, s.levelKey(guildID), userID, 0)
		score = pipe.ZScore(ctx, s.xpKey(guildID), userID)
		level = pipe.HGet(ctx, s.levelKey(guildID), userID)
		return nil
	})
	if err != nil {
		return Progress{}, fmt.Errorf("failed to get progress for %s/%s: %w", guildID, userID, err)
	}
	lvl, err := level.Int64()
	if err != nil {
		return Progress{}, fmt.Errorf("failed to parse level for %s/%s: %w", guildID, userID, err)
	}
	return Progress{GuildID: guildID, UserID: userID, XP: int64(score.Val()), Level: lvl}, nil
}

func (s *RedisStore) Set(ctx context.Context, p Progress) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, s.xpKey(p.GuildID), redis.Z{Score: float64(p.XP), Member: p.UserID})
		pipe.HSet(ctx, s.levelKey(p.GuildID), p.UserID, p.Level)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set progress for %s/%s: %w", p.GuildID, p.UserID, err)
	}
	return nil
}

func (s *RedisStore) AddXP(ctx context.Context, guildID, userID string, delta int64) (Progress, error) {
	keys := []string{s.xpKey(guildID), s.levelKey(guildID)}
	res, err := addXPScript.Run(ctx, s.client, keys, clampDelta(delta), userID, leveling.MaxXP, leveling.MaxLevel).Int64Slice()
	if err != nil {
		return Progress{}, fmt.Errorf("failed to add xp for %s/%s: %w", guildID, userID, err)
	}
	if len(res) != 3 {
		return Progress{}, fmt.Errorf("unexpected add xp reply for %s/%s: %v", guildID, userID, res)
	}
	return Progress{GuildID: guildID, UserID: userID, XP: res[0], Level: res[2], Gained: res[1]}, nil
}

func (s *RedisStore) Rank(ctx context.Context, guildID, userID string) (int64, error) {
	p, err := s.Get(ctx, guildID, userID)
	if err != nil {
		return 0, err
	}
	above, err := s.client.ZCount(ctx, s.xpKey(guildID), "("+strconv.FormatInt(p.XP, 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to rank %s/%s: %w", guildID, userID, err)
	}
	return above + 1, nil
}

func (s *RedisStore) Top(ctx context.Context, guildID string, page, pageSize int) ([]Progress, error) {
	off, size := offset(page, pageSize)
	zs, err := s.client.ZRevRangeWithScores(ctx, s.xpKey(guildID), int64(off), int64(off+size-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard for %s: %w", guildID, err)
	}
	if len(zs) == 0 {
		return nil, nil
	}

	// Levels follow from the score so a page never shows a level that
	// disagrees with the XP beside it.
	out := make([]Progress, len(zs))
	for i, z := range zs {
		xp := int64(z.Score)
		out[i] = Progress{GuildID: guildID, UserID: z.Member.(string), XP: xp, Level: leveling.LevelForXP(xp)}
	}
	return out, nil
}

func (s *RedisStore) Count(ctx context.Context, guildID string) (int64, error) {
	n, err := s.client.ZCard(ctx, s.xpKey(guildID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count members of %s: %w", guildID, err)
	}
	return n, nil
}

func (s *RedisStore) guildKeys(ctx context.Context) ([]string, error) {
	return s.client.ScanKeys(ctx, s.client.Key("guild", "*", "xp"))
}

func (s *RedisStore) UserIDs(ctx context.Context) ([]string, error) {
	keys, err := s.guildKeys(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, key := range keys {
		members, err := s.client.ZRange(ctx, key, 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list members of %s: %w", key, err)
		}
		for _, m := range members {
			seen[m] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *RedisStore) DeleteUsers(ctx context.Context, userIDs []string) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	keys, err := s.guildKeys(ctx)
	if err != nil {
		return 0, err
	}

	members := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		members[i] = id
	}

	var removed []*redis.IntCmd
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			removed = append(removed, pipe.ZRem(ctx, key, members...))
			pipe.HDel(ctx, strings.TrimSuffix(key, ":xp")+":level", userIDs...)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete users: %w", err)
	}
	var total int64
	for _, cmd := range removed {
		total += cmd.Val()
	}
	return total, nil
}

func (s *RedisStore) LevelUpChannel(ctx context.Context, guildID string) (string, error) {
	ch, err := s.client.HGet(ctx, s.settingsKey(), guildID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read level-up channel for %s: %w", guildID, err)
	}
	return ch, nil
}

func (s *RedisStore) SetLevelUpChannel(ctx context.Context, guildID, channelID string) error {
	var err error
	if channelID == "" {
		err = s.client.HDel(ctx, s.settingsKey(), guildID).Err()
	} else {
		err = s.client.HSet(ctx, s.settingsKey(), guildID, channelID).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to store level-up channel for %s: %w", guildID, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
