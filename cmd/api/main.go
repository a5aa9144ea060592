package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shinyyama/chatshop-backend/internal/config"
	"github.com/shinyyama/chatshop-backend/internal/db"
	"github.com/shinyyama/chatshop-backend/internal/server"
)

const expireSweepBatch = 100

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	conn, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatalf("auto migrate error: %v", err)
	}

	srv, err := server.New(conn, cfg, os.Getenv("GIT_SHA"), os.Getenv("BUILD_TIME"))
	if err != nil {
		log.Fatalf("server init error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepLoop(ctx, srv, cfg.SweepPeriod)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Printf("starting server on %s", addr)
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		log.Fatalf("server stopped: %v", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}
}

// sweepLoop expires created orders whose payment window closed, freeing
// their reservations back to the pool.
func sweepLoop(ctx context.Context, srv *server.Server, period time.Duration) {
	if period <= 0 {
		period = time.Minute
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := srv.Orders().ExpireStale(ctx, time.Now(), expireSweepBatch)
			if err != nil {
				log.Printf("expire sweep error: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("expire sweep: expired %d orders", n)
			}
		}
	}
}
