package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/EasterCompany/dex-leveling-service/cache"
	"github.com/EasterCompany/dex-leveling-service/config"
	"github.com/EasterCompany/dex-leveling-service/preinit"
	"github.com/EasterCompany/dex-leveling-service/store"
	"github.com/dustin/go-humanize"
)

func main() {
	path := flag.String("config", "", "path to leveling.json")
	guildID := flag.String("guild", "", "guild whose leaderboard to print")
	limit := flag.Int("limit", 25, "number of ranked members to print")
	keys := flag.Bool("keys", false, "list raw redis keys (redis backend only)")
	flag.Parse()

	logger := preinit.NewLogger()
	cfg, err := config.Load(config.NewViper(), *path)
	if err != nil {
		preinit.Fatal(logger, "fatal error loading config", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *keys {
		if cfg.Store.Backend != config.BackendRedis {
			preinit.Fatal(logger, "cannot list keys", fmt.Errorf("backend is %s, not redis", cfg.Store.Backend))
		}
		dumpKeys(ctx, cfg.Store.Redis)
	}
	if *guildID == "" {
		return
	}

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		preinit.Fatal(logger, "failed to open store", err)
	}
	defer st.Close()

	count, err := st.Count(ctx, *guildID)
	if err != nil {
		preinit.Fatal(logger, "failed to count members", err)
	}
	fmt.Printf("\n--- Guild: %s (%s ranked members) ---\n", *guildID, humanize.Comma(count))

	top, err := st.Top(ctx, *guildID, 1, *limit)
	if err != nil {
		preinit.Fatal(logger, "failed to load leaderboard", err)
	}
	for i, p := range top {
		fmt.Printf("%3d. %-20s level %-4d %s XP\n", i+1, p.UserID, p.Level, humanize.Comma(p.XP))
	}
}

func dumpKeys(ctx context.Context, cfg config.RedisConfig) {
	logger := preinit.NewLogger()
	client, err := cache.NewRedisClient(ctx, cfg)
	if err != nil {
		preinit.Fatal(logger, "failed to connect to redis", err)
	}
	defer client.Close()

	keys, err := client.ScanKeys(ctx, client.Key("*"))
	if err != nil {
		preinit.Fatal(logger, "failed to get keys", err)
	}
	for _, key := range keys {
		keyType, err := client.Type(ctx, key).Result()
		if err != nil {
			logger.Warn("failed to get type", "key", key, "error", err)
			continue
		}
		fmt.Printf("\n--- Key: %s ---\nType: %s\n", key, keyType)
		switch keyType {
		case "string":
			fmt.Printf("Value: %s\n", client.Get(ctx, key).Val())
		case "hash":
			for field, val := range client.HGetAll(ctx, key).Val() {
				fmt.Printf("  %s = %s\n", field, val)
			}
		case "zset":
			n := client.ZCard(ctx, key).Val()
			fmt.Printf("Members: %s\n", humanize.Comma(n))
		default:
			fmt.Println("Value: (unsupported type for printing)")
		}
	}
}
