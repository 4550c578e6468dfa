package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"schoolgate/internal/config"
	"schoolgate/internal/notify"
	"schoolgate/internal/pushclient"
	"schoolgate/internal/queue"
	"schoolgate/internal/store"
)

// Worker consumes attendance events and delivers guardian notifications
// through the push gateway. Delivery is best-effort: a failed send is
// logged and dropped, never retried into the primary flow.
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

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "schoolgate:events")
	}

	push := pushclient.New(cfg.PushGatewayURL, cfg.PushSkip)
	if !cfg.PushSkip {
		if err := push.Health(ctx); err != nil {
			log.Printf("WARNING: push gateway not available: %v", err)
			log.Println("Worker will retry delivery when events arrive")
		} else {
			log.Println("Push gateway connected")
		}
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for events...")
	for msg := range messages {
		if msg.Type != queue.TypeCheckIn && msg.Type != queue.TypeCheckOut {
			continue
		}

		evt, err := queue.DecodeAttendanceEvent(msg)
		if err != nil {
			log.Printf("malformed %s event dropped: %v", msg.Type, err)
			continue
		}

		var title, body string
		if msg.Type == queue.TypeCheckIn {
			title, body = notify.CheckInMessage(evt.ChildName, evt.At)
		} else {
			title, body = notify.CheckOutMessage(evt.ChildName, evt.At)
		}

		delivery, err := push.Send(ctx, evt.GuardianID, title, body)
		if err != nil {
			log.Printf("notification for record %s failed: %v", evt.RecordID, err)
			continue
		}
		log.Printf("record %s: notified guardian %s on %d device(s)", evt.RecordID, evt.GuardianID, delivery.Devices)

		time.Sleep(10 * time.Millisecond) // Small delay between deliveries
	}

	log.Println("worker stopped")
}
