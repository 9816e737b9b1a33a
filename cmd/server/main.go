package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"matchbook/internal/api"
	"matchbook/internal/cache"
	"matchbook/internal/config"
	"matchbook/internal/engine"
	"matchbook/internal/messaging"
	"matchbook/internal/metrics"
	"matchbook/internal/models"
	"matchbook/internal/store"
	"matchbook/internal/ws"
)

func main() {
	cfg := config.Load()
	books := engine.NewManager()
	appMetrics := metrics.New()

	var redisCache *cache.RedisCache
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		log.Printf("⚠️ Redis cache not available: %v", err)
		redisCache = nil
	} else {
		log.Println("✅ Redis cache connected")
	}
	defer func() {
		if redisCache != nil {
			redisCache.Close()
		}
	}()

	var pgStore *store.PostgresStore
	pgStore, err = store.NewPostgresStore(cfg.GetPostgresDSN())
	if err != nil {
		log.Printf("⚠️ PostgreSQL store not available: %v", err)
		pgStore = nil
	} else {
		log.Println("✅ PostgreSQL store connected")
	}
	defer func() {
		if pgStore != nil {
			pgStore.Close()
		}
	}()

	var symbolStore *store.SymbolStore
	if pgStore != nil {
		migrator, err := store.NewMigrator(cfg.GetPostgresDSN())
		if err != nil {
			log.Printf("⚠️ Migrator not available: %v", err)
		} else {
			applied, err := migrator.Up(context.Background())
			migrator.Close()
			if err != nil {
				log.Printf("⚠️ Migrations failed: %v", err)
			} else if applied > 0 {
				log.Printf("✅ Applied %d migrations", applied)
			} else {
				log.Println("✅ Schema up to date")
			}
		}

		symbolStore = store.NewSymbolStore(pgStore.GetDB())

		defaultSymbols := []*models.Symbol{
			{Name: "AAPL", TickSize: 1},
			{Name: "MSFT", TickSize: 1},
			{Name: "GOOG", TickSize: 1},
			{Name: "AMZN", TickSize: 1},
		}
		seeded, err := symbolStore.SeedDefaultSymbols(context.Background(), defaultSymbols)
		if err != nil {
			log.Printf("⚠️ Failed to seed default symbols: %v", err)
		} else if seeded > 0 {
			log.Printf("✅ Seeded %d default symbols", seeded)
		} else {
			log.Println("✅ Default symbols already exist")
		}
	} else {
		log.Println("⚠️ Symbol registry not available (PostgreSQL required)")
	}

	var wsHub *ws.Hub
	if cfg.WSEnabled {
		wsHub = ws.NewHub(&ws.HubConfig{SnapshotLevels: cfg.DepthLevels}, books, redisCache)
		wsHub.SetMetrics(appMetrics)
		go wsHub.Run()
		log.Println("✅ WebSocket hub started")
		defer wsHub.Stop()
	} else {
		log.Println("⚠️ WebSocket disabled")
	}

	var publisher *messaging.Publisher
	publisher, err = messaging.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
	if err != nil {
		log.Printf("⚠️ RabbitMQ publisher not available: %v", err)
		publisher = nil
	} else {
		log.Println("✅ RabbitMQ publisher connected")
		publisher.SetMetrics(appMetrics)
		defer publisher.Close()
	}

	if publisher != nil && pgStore != nil {
		consumer, err := messaging.NewConsumer(cfg.RabbitMQURL, pgStore, cfg.WorkerCount)
		if err != nil {
			log.Printf("⚠️ RabbitMQ consumer not available: %v", err)
		} else if err := consumer.Start(cfg.RabbitMQExchange); err != nil {
			log.Printf("⚠️ Failed to start consumer: %v", err)
		} else {
			log.Println("✅ RabbitMQ consumer started")
			consumer.SetMetrics(appMetrics)
			defer consumer.Stop()
		}
	}

	books.SetTradeCallback(func(symbol string, trade *models.Trade) {
		appMetrics.RecordTrade(symbol, trade.Quantity())

		if wsHub != nil {
			wsHub.BroadcastTrade(symbol, trade)
		}
		if redisCache != nil {
			redisCache.AddRecentTrade(context.Background(), trade)
		}
		if publisher != nil {
			publisher.Publish(messaging.RouteTradeExecuted, trade)
		}
	})

	books.SetOrderCallback(func(symbol string, order *models.Order) {
		if publisher != nil {
			publisher.Publish(messaging.RouteOrderAccepted, order)
		}
	})

	books.SetCancelCallback(func(symbol string, order *models.Order) {
		if publisher != nil {
			publisher.Publish(messaging.RouteOrderCancelled, order)
		}
	})

	router := gin.Default()
	api.RegisterRoutes(router, books, redisCache, pgStore, wsHub, symbolStore, appMetrics)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("\n🛑 Shutting down...")
		os.Exit(0)
	}()

	log.Printf("🚀 Matchbook running on %s", cfg.ServerPort)
	log.Printf("📱 WebSocket endpoint: ws://%s/ws/{{symbol}}", cfg.ServerPort)
	router.Run(cfg.ServerPort)
}
