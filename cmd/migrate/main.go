package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/config"
	"storefront/internal/models"
)

func main() {
	drop := flag.Bool("drop", false, "drop all tables before creating them")
	seed := flag.Bool("seed", false, "insert sample data after creating tables")
	flag.Parse()

	ctx := context.Background()
	cfg := config.Load()

	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN))
	sqldb := sql.OpenDB(connector)
	defer sqldb.Close()

	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())

	if *drop {
		log.Println("Dropping tables...")
		dropTables(ctx, db)
	}

	log.Println("Creating tables...")
	createTables(ctx, db)

	if *seed {
		log.Println("Seeding sample data...")
		seedData(ctx, db)
	}

	log.Println("✅ Done.")
}

func dropTables(ctx context.Context, db *bun.DB) {
	tables := []interface{}{
		(*models.Notification)(nil),
		(*models.OrderItem)(nil),
		(*models.Order)(nil),
		(*models.Coupon)(nil),
		(*models.Product)(nil),
		(*models.User)(nil),
	}
	for _, m := range tables {
		_, _ = db.NewDropTable().Model(m).IfExists().Cascade().Exec(ctx)
	}
}

func createTables(ctx context.Context, db *bun.DB) {
	tables := []interface{}{
		(*models.User)(nil),
		(*models.Product)(nil),
		(*models.Coupon)(nil),
		(*models.Order)(nil),
		(*models.OrderItem)(nil),
		(*models.Notification)(nil),
	}
	for _, m := range tables {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			log.Fatalf("❌ Failed to create table for %T: %v", m, err)
		}
	}
}

func seedData(ctx context.Context, db *bun.DB) {
	now := time.Now()

	hash := func(password string) string {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("❌ Failed to hash seed password: %v", err)
		}
		return string(h)
	}

	sellerID := uuid.New().String()
	users := []models.User{
		{ID: uuid.New().String(), Email: "admin@storefront.dev", FullName: "Site Admin", PasswordHash: hash("admin12345"), Role: models.RoleAdmin, Provider: "local", CreatedAt: now},
		{ID: sellerID, Email: "seller@storefront.dev", FullName: "Sample Seller", PasswordHash: hash("seller12345"), Role: models.RoleSeller, Provider: "local", CreatedAt: now},
		{ID: uuid.New().String(), Email: "buyer@storefront.dev", FullName: "Sample Buyer", PasswordHash: hash("buyer12345"), Role: models.RoleBuyer, Provider: "local", CreatedAt: now},
	}
	if _, err := db.NewInsert().Model(&users).Exec(ctx); err != nil {
		log.Fatalf("❌ Failed to seed users: %v", err)
	}

	products := []models.Product{
		{
			ID:          uuid.New().String(),
			SellerID:    sellerID,
			Name:        "Classic Cotton Tee",
			Description: "Plain crew neck t-shirt.",
			Category:    "apparel",
			Price:       19.99,
			Sizes:       []string{"S", "M", "L", "XL"},
			Stock:       120,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          uuid.New().String(),
			SellerID:    sellerID,
			Name:        "Canvas Tote Bag",
			Description: "Heavy duty shopping tote.",
			Category:    "accessories",
			Price:       12.50,
			Stock:       60,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
	if _, err := db.NewInsert().Model(&products).Exec(ctx); err != nil {
		log.Fatalf("❌ Failed to seed products: %v", err)
	}

	percentage := 10.0
	maxDiscount := 20.0
	coupons := []models.Coupon{
		{
			Code:        "WELCOME10",
			SellerID:    sellerID,
			Type:        models.CouponPercentage,
			Percentage:  &percentage,
			MaxDiscount: &maxDiscount,
			Active:      true,
			ActiveFrom:  now,
			ExpiresAt:   now.AddDate(0, 3, 0),
			MaxUsage:    100,
			CreatedAt:   now,
		},
	}
	if _, err := db.NewInsert().Model(&coupons).Exec(ctx); err != nil {
		log.Fatalf("❌ Failed to seed coupons: %v", err)
	}
}
