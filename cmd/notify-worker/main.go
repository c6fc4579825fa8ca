package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"storefront/internal/config"
	"storefront/internal/kafka"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/notification"
	notification_db "storefront/internal/notification/db"
	users_db "storefront/internal/users/db"
)

// notify-worker consumes the order event stream and fans admin
// notifications out to the database. It runs separately from the API
// server so admin audit notifications survive API restarts and
// deploys.
func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting notify-worker initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}

	cfg := config.Load()
	if !cfg.Kafka.Enabled {
		log.Fatal("CONFIG", "Kafka is disabled, notify-worker has nothing to consume")
	}

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
	}
	defer sqldb.Close()
	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	// No hub here: the worker only persists. Admin clients pick the
	// rows up through the notifications API.
	notificationService := notification.NewService(&notification_db.DB{Bun: bunDB}, nil, log)
	userDB := &users_db.DB{Bun: bunDB}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := func(ev models.OrderEvent) {
		admins, err := listAdmins(ctx, userDB)
		if err != nil {
			log.Error("WORKER", fmt.Sprintf("Failed to list admins for event %s: %v", ev.OrderID, err))
			return
		}

		var message string
		switch ev.Type {
		case "created":
			message = fmt.Sprintf("Order %s placed (total %.2f)", ev.Number, ev.Total)
		case "status":
			message = fmt.Sprintf("Order %s is now %s", ev.Number, ev.Status)
		default:
			log.Warn("WORKER", fmt.Sprintf("Unknown order event type %q, skipping", ev.Type))
			return
		}

		for _, adminID := range admins {
			_, err := notificationService.Publish(ctx, notification.Event{
				RecipientID: adminID,
				OrderID:     ev.OrderID,
				Message:     message,
			})
			if err != nil {
				log.Error("WORKER", fmt.Sprintf("Failed to store notification for admin %s: %v", adminID, err))
			}
		}
	}

	topics := []string{cfg.Kafka.Topics.OrderCreated, cfg.Kafka.Topics.OrderStatus}
	var wg sync.WaitGroup
	consumers := make([]*kafka.Consumer, 0, len(topics))

	for _, topic := range topics {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, topic, cfg.Kafka.GroupID)
		consumers = append(consumers, consumer)

		wg.Add(1)
		go func(topic string, c *kafka.Consumer) {
			defer wg.Done()
			log.Info("KAFKA", fmt.Sprintf("Consuming topic %s as group %s", topic, cfg.Kafka.GroupID))
			c.Start(ctx, handler)
		}(topic, consumer)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "notify-worker started, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, stopping consumers")
	cancel()
	for _, c := range consumers {
		if err := c.Close(); err != nil {
			log.Error("KAFKA", fmt.Sprintf("Failed to close consumer: %v", err))
		}
	}
	wg.Wait()
	log.Info("APP", "notify-worker stopped cleanly")
}

func listAdmins(ctx context.Context, db *users_db.DB) ([]string, error) {
	return db.ListIDsByRole(ctx, models.RoleAdmin)
}
