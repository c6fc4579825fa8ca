package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/cart/cart_api"
	"storefront/internal/catalog"
	"storefront/internal/catalog/catalog_api"
	catalog_db "storefront/internal/catalog/db"
	"storefront/internal/config"
	"storefront/internal/coupon"
	"storefront/internal/coupon/coupon_api"
	coupon_db "storefront/internal/coupon/db"
	"storefront/internal/database/migrations"
	"storefront/internal/kafka"
	"storefront/internal/logger"
	"storefront/internal/notification"
	notification_db "storefront/internal/notification/db"
	"storefront/internal/notification/notification_api"
	"storefront/internal/order"
	order_db "storefront/internal/order/db"
	"storefront/internal/order/order_api"
	"storefront/internal/payment"
	"storefront/internal/qr"
	"storefront/internal/realtime"
	"storefront/internal/users"
	users_db "storefront/internal/users/db"
	"storefront/internal/users/user_api"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	log.Info("DATABASE", "✅ PostgreSQL connection successful")
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, cfg.Redis.DB))

	return bunDB, redisClient
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting storefront service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	log.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, cfg.Database.MigrationsDir)
		if err := runner.Up(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Failed to apply migrations: %v", err))
		}
		if version, err := runner.Version(); err == nil {
			log.Info("DATABASE", fmt.Sprintf("Schema is at version %d", version))
		}
	}

	var kafkaProducer *kafka.Producer
	if cfg.Kafka.Enabled {
		kafkaProducer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer kafkaProducer.Close()
		log.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for brokers %v", cfg.Kafka.Brokers))

		requiredTopics := []string{
			cfg.Kafka.Topics.OrderCreated,
			cfg.Kafka.Topics.OrderStatus,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		log.Warn("KAFKA", "Kafka is disabled, order events will not be streamed")
	}

	var oidcVerifier *auth.OIDCVerifier
	if cfg.Auth.OIDCIssuer != "" {
		verifier, err := auth.NewOIDCVerifier(ctx, cfg.Auth.OIDCIssuer, cfg.Auth.OIDCClientID)
		if err != nil {
			log.Warn("AUTH", fmt.Sprintf("OIDC provider unavailable, OAuth login disabled: %v", err))
		} else {
			oidcVerifier = verifier
			log.Info("AUTH", fmt.Sprintf("OIDC verifier configured for issuer %s", cfg.Auth.OIDCIssuer))
		}
	}

	var stripeProvider *payment.StripeProvider
	if cfg.Stripe.SecretKey != "" {
		provider, err := payment.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, log)
		if err != nil {
			log.Warn("PAYMENT", fmt.Sprintf("Stripe unavailable, card payments disabled: %v", err))
		} else {
			stripeProvider = provider
			log.Info("PAYMENT", "Stripe payment provider initialized")
		}
	} else {
		log.Warn("PAYMENT", "STRIPE_SECRET_KEY not set, card payments disabled")
	}

	hub := realtime.NewHub()

	notificationService := notification.NewService(&notification_db.DB{Bun: bunDB}, hub, log)
	catalogService := catalog.NewService(&catalog_db.DB{Bun: bunDB}, redisClient, hub, log)
	cartStore := cart.NewStore(redisClient, cfg.Cart.TTL)
	cartService := cart.NewService(cartStore, catalogService, log)
	couponService := coupon.NewService(&coupon_db.DB{Bun: bunDB}, log)
	userService := users.NewService(&users_db.DB{Bun: bunDB}, oidcVerifier, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, log)

	var paymentProvider order.PaymentProvider
	if stripeProvider != nil {
		paymentProvider = stripeProvider
	}
	var eventPublisher order.EventPublisher
	if kafkaProducer != nil {
		eventPublisher = kafkaProducer
	}

	orderService := order.NewOrderService(
		&order_db.DB{Bun: bunDB},
		cartStore,
		couponService,
		notificationService,
		hub,
		eventPublisher,
		paymentProvider,
		cfg.Kafka.Topics,
		log,
	)

	qrGen := qr.NewGenerator(cfg.Auth.QRSecret)

	orderHandler := order_api.NewHandler(orderService, qrGen, log)
	notificationHandler := notification_api.NewHandler(notificationService, log)
	cartHandler := cart_api.NewHandler(cartService, log)
	couponHandler := coupon_api.NewHandler(couponService, log)
	catalogHandler := catalog_api.NewHandler(catalogService, log)
	userHandler := user_api.NewHandler(userService, log)
	sseHandler := realtime.NewSSEHandler(hub, orderService, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", userHandler.Register)
		r.Post("/auth/login", userHandler.Login)
		r.Post("/auth/oauth", userHandler.OAuthLogin)
		r.Get("/products", catalogHandler.Browse)
		r.Get("/products/{id}", catalogHandler.GetProduct)

		if stripeProvider != nil {
			paymentHandler := order_api.NewPaymentHandler(orderService, stripeProvider, log)
			r.Post("/webhook/stripe", paymentHandler.StripeWebhook)
			log.Info("ROUTER", "Stripe webhook registered at /api/webhook/stripe")
		}
	})
	log.Info("ROUTER", "Public auth and catalog routes registered under /api")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth.JWTSecret))
		log.Info("AUTH", "JWT middleware applied to protected API routes")

		r.Route("/api", func(r chi.Router) {
			r.Get("/auth/me", userHandler.Me)

			r.Route("/order", func(r chi.Router) {
				r.Post("/", orderHandler.Checkout)
				r.Get("/my", orderHandler.ListMyOrders)
				r.Get("/events", sseHandler.HandleUserEvents)

				r.Get("/track/{orderId}", orderHandler.TrackOrder)
				r.Get("/track/{orderId}/qr", orderHandler.TrackOrderQR)
				r.Get("/track/{orderId}/events", sseHandler.HandleOrderEvents)

				r.Get("/seller", orderHandler.ListSellerOrders)
				r.Get("/seller/id/{id}", orderHandler.GetSellerOrder)
				r.Put("/seller/id/{id}/status", orderHandler.UpdateOrderStatus)

				r.Route("/notifications", func(r chi.Router) {
					r.Get("/", notificationHandler.List)
					r.Put("/read-all", notificationHandler.MarkAllRead)
					r.Put("/{id}/read", notificationHandler.MarkRead)
					r.Delete("/clear", notificationHandler.ClearAll)
					r.Delete("/{id}", notificationHandler.Delete)
				})
			})
			log.Info("ROUTER", "Order, tracking and notification routes registered under /api/order")

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{productId}", cartHandler.UpdateItem)
				r.Delete("/items/{productId}", cartHandler.RemoveItem)
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", cartHandler.GetWishlist)
				r.Post("/{productId}", cartHandler.AddToWishlist)
				r.Delete("/{productId}", cartHandler.RemoveFromWishlist)
			})
			log.Info("ROUTER", "Cart and wishlist routes registered")

			r.Route("/coupons", func(r chi.Router) {
				r.Get("/", couponHandler.ListMine)
				r.Post("/", couponHandler.Create)
				r.Get("/{code}", couponHandler.Get)
				r.Put("/{code}", couponHandler.Update)
				r.Delete("/{code}", couponHandler.Delete)
			})

			r.Post("/products", catalogHandler.Create)
			r.Put("/products/{id}", catalogHandler.Update)
			r.Delete("/products/{id}", catalogHandler.Delete)
			log.Info("ROUTER", "Coupon and product management routes registered")
		})
	})

	// No WriteTimeout: SSE streams stay open indefinitely and are torn
	// down by client disconnects.
	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Storefront service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "Server stopped cleanly")
	}
}
