// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"

	"github.com/dealscale/redirect-engine/internal/cache"
	"github.com/dealscale/redirect-engine/internal/config"
	"github.com/dealscale/redirect-engine/internal/handler"
	mid "github.com/dealscale/redirect-engine/internal/middleware"
	"github.com/dealscale/redirect-engine/internal/notify"
	"github.com/dealscale/redirect-engine/internal/notion"
	"github.com/dealscale/redirect-engine/internal/queue"
	"github.com/dealscale/redirect-engine/internal/repository"
	"github.com/dealscale/redirect-engine/internal/service"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}
	cfg := config.Load()

	if cfg.NotionWebhookSecret == "" {
		log.Println("⚠️ NOTION_WEBHOOK_SECRET not set; webhook auth is DISABLED (dev only)")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	campaignCache := cache.NewCampaignCache(rdb)

	records := &repository.RecordRepository{
		Client:     notion.NewClient(cfg.NotionKey),
		DatabaseID: cfg.NotionRedirectsDB,
	}

	jobs := queue.NewInMemoryQueue()
	queue.StartCounterIncrementSubscriber(jobs, records)

	var events queue.EventPublisher = queue.NopPublisher{}
	if conn, err := amqp.Dial(cfg.AmqpURL); err != nil {
		log.Println("⚠️ RabbitMQ unavailable, click/invalidation events disabled:", err)
	} else {
		pub, err := queue.NewAmqpPublisher(conn)
		if err != nil {
			log.Println("⚠️ failed to open AMQP channel:", err)
		} else {
			events = pub
		}
	}

	resolver := &service.ResolverService{
		Cache:            campaignCache,
		Records:          records,
		Jobs:             jobs,
		Events:           events,
		AllowIncomingUtm: cfg.AllowIncomingUtm,
		SiteHost:         cfg.SiteHost,
		DevRedirects:     config.ParseDevRedirects(cfg.DevRedirects),
	}
	ingest := &service.IngestService{
		Records:    records,
		Cache:      campaignCache,
		Events:     events,
		DatabaseID: cfg.NotionRedirectsDB,
	}
	linktree := &service.LinkTreeService{Records: records}

	redirectHandler := handler.NewRedirectHandler(resolver)
	webhookHandler := &handler.WebhookHandler{
		Ingest:   ingest,
		Notifier: notify.NewNotifier(cfg.SlackToken, cfg.SlackChannel),
		Secret:   cfg.NotionWebhookSecret,
	}
	linktreeHandler := &handler.LinkTreeHandler{LinkTree: linktree, Resolver: resolver}
	debugHandler := &handler.DebugHandler{Cfg: cfg, LinkTree: linktree, Cache: campaignCache}

	// Webhook endpoint only; the redirect path is never rate limited.
	rl := mid.NewRateLimiter(10, time.Minute)
	stop := make(chan struct{})
	go rl.CleanupLoop(stop)

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(mid.SlugRedirect(resolver, nil))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("redirect engine is running ✅"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/redirect", redirectHandler.Redirect)
		api.With(mid.RateLimitMiddleware(rl)).Post("/notion-webhook", webhookHandler.Receive)
		api.Get("/notion-webhook", webhookHandler.Alive)
		api.Get("/linktree", linktreeHandler.List)
		api.Get("/linktree/click", linktreeHandler.Click)
		api.Get("/debug", debugHandler.Report)
	})

	log.Println("🚀 Server running on :" + cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
