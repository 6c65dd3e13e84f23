package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kleen-pos/api/internal/config"
	"github.com/kleen-pos/api/internal/database"
	"github.com/kleen-pos/api/internal/enum"
	"github.com/kleen-pos/api/internal/service"
	"github.com/kleen-pos/api/internal/smartlink"
	"github.com/kleen-pos/api/internal/validate"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type options struct {
	dataDir   string
	skipClear bool
	email     string
	password  string
	name      string
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var opts options
	flag.StringVar(&opts.dataDir, "data", "data", "Directory holding all_outlets.json and bintaro_services_merged.json")
	flag.BoolVar(&opts.skipClear, "skip-clear", false, "Keep existing branches and services")
	flag.StringVar(&opts.email, "email", "", "Admin email address")
	flag.StringVar(&opts.password, "password", "", "Admin password")
	flag.StringVar(&opts.name, "name", "", "Admin full name")
	flag.Parse()

	if opts.email == "" {
		opts.email = os.Getenv("SEED_EMAIL")
	}
	if opts.password == "" {
		opts.password = os.Getenv("SEED_PASSWORD")
	}
	if opts.name == "" {
		opts.name = os.Getenv("SEED_NAME")
	}
	if opts.email == "" {
		opts.email = "admin@kleen.id"
	}
	if opts.password == "" {
		opts.password = "password123"
		logrus.Warn("Using default password 'password123'. Change immediately in production!")
	}
	if opts.name == "" {
		opts.name = "Admin Kleen"
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}

	if err := run(context.Background(), cfg, opts); err != nil {
		logrus.WithError(err).Error("seed failed")
		os.Exit(1)
	}
	logrus.Info("Seed completed successfully")
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	if cfg.RunMigrations {
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			return err
		}
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	logrus.Info("Connected to database")

	outlets, err := smartlink.LoadOutlets(filepath.Join(opts.dataDir, "all_outlets.json"))
	if err != nil {
		return err
	}
	services, err := smartlink.LoadServices(filepath.Join(opts.dataDir, "bintaro_services_merged.json"))
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"outlets": len(outlets), "services": len(services)}).Info("Loaded SmartLink export")

	if err := importSmartlink(ctx, pool, outlets, services, opts.skipClear); err != nil {
		return err
	}

	caps, err := database.ProbeCapabilities(ctx, pool)
	if err != nil {
		return err
	}
	queries := database.NewWithCapabilities(pool, caps)

	if err := seedDemoOrder(ctx, pool, queries); err != nil {
		return err
	}
	return seedAdmin(ctx, queries, opts)
}

// seedDemoOrder creates the sample order unless it already exists.
func seedDemoOrder(ctx context.Context, pool *pgxpool.Pool, queries *database.Queries) error {
	_, err := queries.GetOrderByOrderID(ctx, service.DemoOrderID)
	if err == nil {
		logrus.WithField("order_id", service.DemoOrderID).Info("Demo order already exists, skipping")
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check demo order: %w", err)
	}

	caps := queries.Capabilities()
	svc := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.NewWithCapabilities(db, caps)
	}, nil)
	order, err := svc.CreateOrder(ctx, service.DemoOrder())
	if err != nil {
		return fmt.Errorf("seed demo order: %w", err)
	}
	logrus.WithField("order_id", order.OrderID).Info("Demo order seeded")
	return nil
}

// seedAdmin creates the admin employee if the email is not taken.
func seedAdmin(ctx context.Context, queries *database.Queries, opts options) error {
	existing, err := queries.GetUserByEmail(ctx, opts.email)
	if err == nil {
		logrus.WithFields(logrus.Fields{"email": opts.email, "id": existing.ID}).Info("Admin already exists, skipping")
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check admin: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(opts.password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user, err := queries.CreateUser(ctx, database.CreateUserParams{
		Name:           opts.name,
		Username:       validate.Username(opts.name),
		Role:           enum.UserRoleAdmin,
		IsActive:       true,
		Email:          pgtype.Text{String: opts.email, Valid: true},
		HashedPassword: pgtype.Text{String: string(hashed), Valid: true},
	})
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	logrus.WithFields(logrus.Fields{"email": opts.email, "id": user.ID}).Info("Created admin user")
	return nil
}
