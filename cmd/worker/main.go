package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"motorpass/internal/config"
	"motorpass/internal/monitor"
	"motorpass/internal/queue"
	"motorpass/internal/store"
)

// Worker consumes overtime alerts published by the dashboard pipeline
// and relays them, with a per-user cool-down so a long stay does not
// page security every snapshot.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend == "memory" {
		log.Fatal("the alert worker needs a shared queue; set QUEUE_BACKEND=redis")
	}
	redisClient := store.NewRedis(cfg.RedisAddr)
	q := queue.NewRedisQueue(redisClient.Client, "motorpass:overtime-alerts")

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	// lastNotified tracks the most recent relay per (user, reason) key.
	lastNotified := make(map[string]time.Time)

	log.Println("alert worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != monitor.MessageTypeOvertime {
			continue
		}

		alert, err := monitor.DecodeAlert(msg)
		if err != nil {
			log.Printf("bad alert payload: %v", err)
			continue
		}

		key := alert.UserID + "|" + string(alert.Reason)
		if last, ok := lastNotified[key]; ok && time.Since(last) < cfg.AlertCooldown {
			continue
		}
		lastNotified[key] = time.Now()

		notify(alert)
	}

	log.Println("alert worker stopped")
}

// notify is the delivery hook. Deployments wire this to whatever the
// security desk watches; the default just writes structured log lines.
func notify(a monitor.Alert) {
	log.Printf("OVERTIME alert=%s user=%s name=%q type=%s reason=%s since=%s",
		a.ID, a.UserID, a.Name, a.UserType, a.Reason, a.Since.Format(time.RFC3339))
}
