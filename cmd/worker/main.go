package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/quotedeck/quotedeck/internal/activity"
	"github.com/quotedeck/quotedeck/internal/app"
	"github.com/quotedeck/quotedeck/internal/catalog"
	"github.com/quotedeck/quotedeck/internal/customers"
	"github.com/quotedeck/quotedeck/internal/payments"
	"github.com/quotedeck/quotedeck/internal/platform/cache"
	"github.com/quotedeck/quotedeck/internal/platform/db"
	"github.com/quotedeck/quotedeck/internal/proposals"
	"github.com/quotedeck/quotedeck/jobs"
	"github.com/quotedeck/quotedeck/report"
)

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
		slog.Default().Info("test mode detected, skipping worker startup")
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

	renderer, err := report.NewRenderer()
	if err != nil {
		logger.Error("build renderer", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Deps: &jobs.Deps{
			Logger:    logger,
			Proposals: proposalSvc,
			Customers: customerSvc,
			Payments:  paymentSvc,
			Activity:  activityLog,
			Renderer:  renderer,
			PDF:       report.NewClient(cfg.GotenbergURL),
			ExportDir: cfg.ExportStorageDir,
			SMTPAddr:  fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
			SMTPFrom:  cfg.SMTPFrom,
		},
		Cron: []jobs.CronRegistration{
			{Spec: "@every 6h", Task: jobs.NewOverdueScanTask()},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
