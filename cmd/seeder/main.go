// cmd/seeder/main.go
// Seeds the Redis cache with the DEV_REDIRECTS fallback entries so local
// environments resolve slugs without Notion credentials.
package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/dealscale/redirect-engine/internal/cache"
	"github.com/dealscale/redirect-engine/internal/config"
	"github.com/dealscale/redirect-engine/internal/model"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}
	cfg := config.Load()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	campaignCache := cache.NewCampaignCache(rdb)
	ctx := context.Background()

	redirects := config.ParseDevRedirects(cfg.DevRedirects)
	seeded := 0
	for slug, dest := range redirects {
		rec := &model.CampaignRecord{
			Slug:        slug,
			Destination: dest,
			Title:       slug,
		}
		if err := campaignCache.Put(ctx, slug, rec); err != nil {
			log.Println("⚠️ failed to seed slug", slug, ":", err)
			continue
		}
		seeded++
	}

	log.Printf("✅ Seeded %d dev redirect(s) into the cache\n", seeded)
}
