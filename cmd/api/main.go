package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pizzadni/go-pizza-day.git/internal/booking"
	"github.com/pizzadni/go-pizza-day.git/internal/catalog"
	"github.com/pizzadni/go-pizza-day.git/internal/config"
	"github.com/pizzadni/go-pizza-day.git/internal/httpx"
	kafkax "github.com/pizzadni/go-pizza-day.git/internal/kafka"
	"github.com/pizzadni/go-pizza-day.git/internal/orders"
	"github.com/pizzadni/go-pizza-day.git/internal/postgres"
	"github.com/pizzadni/go-pizza-day.git/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pOrders := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024)
	pOrders.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatus, 1024)
	pStatus.Start(ctx)
	pSlots := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicSlotCapacity, 1024)
	pSlots.Start(ctx)

	// the engine is the only writer of slot capacity
	engine := booking.NewPGEngine(db)
	orderRepo := &orders.Repo{DB: db}
	catalogRepo := &catalog.Repo{DB: db}

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Store:          orderRepo,
		Engine:         engine,
		ProducerOrders: pOrders,
		ProducerStatus: pStatus,
		ProducerSlots:  pSlots,
		Redis:          rdb,
		Service:        cfg.ServiceName,
	}
	oh.Register(router)
	ch := &httpx.CatalogHandler{Repo: catalogRepo}
	ch.Register(router)

	// safety net for capacity leaked by crashed checkouts
	rc := &orders.Reconciler{Repo: orderRepo, Engine: engine, Grace: cfg.ReconcileGrace}
	go rc.Run(ctx, cfg.ReconcileInterval)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pOrders.Close()
	pStatus.Close()
	pSlots.Close()
	pOrders.WaitClosed()
	pStatus.WaitClosed()
	pSlots.WaitClosed()
}
