package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/quotedeck/quotedeck/internal/activity"
	"github.com/quotedeck/quotedeck/internal/app"
	"github.com/quotedeck/quotedeck/internal/catalog"
	"github.com/quotedeck/quotedeck/internal/customers"
	"github.com/quotedeck/quotedeck/internal/payments"
	"github.com/quotedeck/quotedeck/internal/platform/cache"
	"github.com/quotedeck/quotedeck/internal/platform/db"
	"github.com/quotedeck/quotedeck/internal/proposals"
	"github.com/quotedeck/quotedeck/internal/shared"
	"github.com/quotedeck/quotedeck/jobs"
)

// proposalSource adapts the proposal repository to the slice of state the
// payment schedule needs.
type proposalSource struct {
	repo *proposals.Repository
}

func (s proposalSource) ProposalInfo(ctx context.Context, proposalID int64) (payments.ProposalInfo, error) {
	p, err := s.repo.Get(ctx, proposalID)
	if err != nil {
		return payments.ProposalInfo{}, err
	}
	return payments.ProposalInfo{
		ID:          p.ID,
		TotalAmount: p.TotalAmount,
		SentAt:      p.SentAt,
		CreatedAt:   p.CreatedAt,
	}, nil
}

// productSource adapts the catalog service to proposal line pricing.
type productSource struct {
	svc *catalog.Service
}

func (s productSource) PricingFor(ctx context.Context, productID int64) (proposals.ProductPricing, error) {
	p, err := s.svc.Get(ctx, productID)
	if err != nil {
		return proposals.ProductPricing{}, err
	}
	return proposals.ProductPricing{
		Name:         p.Name,
		ListPrice:    p.ListPrice,
		PartnerPrice: p.PartnerPrice,
	}, nil
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	activityLog := activity.NewPGLogger(pool)

	customerRepo := customers.NewRepository(pool)
	customerSvc := customers.NewService(customerRepo)

	catalogRepo := catalog.NewRepository(pool)
	catalogSvc := catalog.NewService(catalogRepo)

	proposalRepo := proposals.NewRepository(pool)
	paymentRepo := payments.NewRepository(pool)

	paymentSvc := payments.NewService(logger, paymentRepo,
		proposalSource{repo: proposalRepo}, activityLog,
		payments.AnchorPolicy(cfg.OverdueAnchor))

	summaryCache := proposals.NewSummaryCache(redisClient, logger, cfg.SummaryCacheTTL)
	proposalSvc := proposals.NewService(logger, proposalRepo,
		productSource{svc: catalogSvc}, paymentSvc, summaryCache, activityLog)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Pool:            pool,
		Idempotency:     shared.NewIdempotencyStore(pool),
		ProposalHandler: proposals.NewHandler(logger, proposalSvc),
		PaymentHandler:  payments.NewHandler(logger, paymentSvc),
		CustomerHandler: customers.NewHandler(logger, customerSvc),
		CatalogHandler:  catalog.NewHandler(logger, catalogSvc),
		ActivityHandler: activity.NewHandler(logger, activityLog),
		JobHandler:      jobs.NewHandler(logger, jobClient, proposalSvc, customerSvc, inspector),
	})

	srv := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
