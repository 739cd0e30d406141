package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/listing-bot/internal/api/http"
	"github.com/spec-kit/listing-bot/internal/api/http/handlers"
	"github.com/spec-kit/listing-bot/internal/auth"
	"github.com/spec-kit/listing-bot/internal/config"
	"github.com/spec-kit/listing-bot/internal/events"
	"github.com/spec-kit/listing-bot/internal/observability"
	"github.com/spec-kit/listing-bot/internal/persistence"
	"github.com/spec-kit/listing-bot/internal/repository"
	"github.com/spec-kit/listing-bot/internal/service"
	"github.com/spec-kit/listing-bot/internal/store"
	"github.com/spec-kit/listing-bot/internal/transport/telegram"
	"github.com/spec-kit/listing-bot/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot and the admin HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Telegram.WebhookURL != "" && cfg.Telegram.WebhookSecret == "" {
			return errors.New("TELEGRAM_WEBHOOK_SECRET is required when TELEGRAM_WEBHOOK_URL is set")
		}
		logger, err := observability.NewLogger(cfg.Logger)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer logger.Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

type stores struct {
	sessions   store.SessionStore
	referrals  store.ReferralLedger
	queue      store.ModerationQueue
	rejections store.RejectionContexts
	redis      *persistence.Redis
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.Store.Backend == "memory" {
		logger.Warn("STORE_BACKEND=memory; sessions and referrals are lost on restart")
		return &stores{
			sessions:   store.NewMemorySessionStore(),
			referrals:  store.NewMemoryReferralLedger(),
			queue:      store.NewMemoryModerationQueue(),
			rejections: store.NewMemoryRejectionContexts(cfg.Moderation.RejectContextTTL()),
		}, nil
	}
	rdb, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, err
	}
	ns := cfg.Store.KeyPrefix
	return &stores{
		sessions:   store.NewRedisSessionStore(rdb.Client, ns, cfg.Store.SessionTTL()),
		referrals:  store.NewRedisReferralLedger(rdb.Client, ns),
		queue:      store.NewRedisModerationQueue(rdb.Client, ns),
		rejections: store.NewRedisRejectionContexts(rdb.Client, ns, cfg.Moderation.RejectContextTTL()),
		redis:      rdb,
	}, nil
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	metrics := observability.NewMetrics(strings.ReplaceAll(cfg.App.Name, "-", "_"))

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			return err
		}
	}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.redis.Close()

	var submissions repository.SubmissionRepository = repository.NewMemorySubmissionRepository()
	if pg.Enabled() {
		submissions = repository.NewSubmissionRepository(pg.PoolHandle())
	}

	client, err := telegram.NewClient(cfg.Telegram, metrics, logger)
	if err != nil {
		return err
	}
	channelID, err := client.ChannelChatID(ctx)
	if err != nil {
		return fmt.Errorf("resolve channel: %w", err)
	}

	bus := events.NewInMemoryDispatcher()
	referrals := service.NewReferralService(st.referrals, bus, metrics, logger, cfg.Flow.InviteThreshold)
	finalizer := service.NewFinalizer(service.FinalizerDependencies{
		Submissions:  submissions,
		Queue:        st.queue,
		Sessions:     st.sessions,
		Messenger:    client,
		Dispatcher:   bus,
		Metrics:      metrics,
		Logger:       logger,
		ModChatID:    cfg.Telegram.ModChatID,
		AgentContact: cfg.Flow.AgentContact,
	})
	moderation := service.NewModerationService(service.ModerationDependencies{
		Submissions:   submissions,
		Queue:         st.queue,
		Rejections:    st.rejections,
		Sessions:      st.sessions,
		Messenger:     client,
		Dispatcher:    bus,
		Metrics:       metrics,
		Logger:        logger,
		ChannelChatID: channelID,
		ContactURL:    cfg.Flow.ContactURL,
		ModChatID:     cfg.Telegram.ModChatID,
		ModeratorIDs:  cfg.Moderation.ModeratorIDs,
	})
	flow := service.NewFlowService(service.FlowDependencies{
		Sessions:   st.sessions,
		Gate:       service.NewSubscriptionGate(client, logger),
		Referrals:  referrals,
		Finalizer:  finalizer,
		Moderation: moderation,
		Messenger:  client,
		Metrics:    metrics,
		Logger:     logger,
		Settings: service.FlowSettings{
			ChannelUsername:  cfg.Telegram.ChannelUsername(),
			TableTemplateURL: cfg.Flow.TableTemplateURL,
			InviteThreshold:  cfg.Flow.InviteThreshold,
			MaxPhotos:        cfg.Flow.MaxPhotos,
		},
	})

	lanes := worker.NewDispatcher(flow.Handle, cfg.Worker.Lanes, cfg.Worker.Buffer, logger)

	if st.redis == nil && pg.Enabled() {
		restored, err := moderation.RestoreQueue(ctx)
		if err != nil {
			return fmt.Errorf("restore moderation queue: %w", err)
		}
		logger.Info("moderation queue restored", zap.Int("entries", restored))
	}

	// Lanes outlive the signal so that queued updates drain on stop.
	stopLanes := worker.StartNotificationWorker(context.WithoutCancel(ctx), service.NewNotificationService(bus, lanes, logger), lanes)
	defer stopLanes()

	healthDeps := map[string]handlers.Pinger{}
	if pg.Enabled() {
		healthDeps["postgres"] = pg
	}
	if st.redis != nil {
		healthDeps["redis"] = st.redis
	}

	var webhook *handlers.WebhookHandler
	if cfg.Telegram.WebhookURL != "" {
		webhook = handlers.NewWebhookHandler(cfg.Telegram.WebhookSecret, lanes, logger)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthDeps),
		Moderation:     handlers.NewModerationHandler(moderation, submissions),
		Webhook:        webhook,
		Metrics:        metrics,
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		IsModerator:    cfg.Moderation.IsModerator,
	})

	if webhook != nil {
		url := strings.TrimRight(cfg.Telegram.WebhookURL, "/") + "/telegram/webhook/" + cfg.Telegram.WebhookSecret
		if err := client.SetWebhook(ctx, url); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		logger.Info("telegram webhook registered")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})
	if webhook == nil {
		poller := telegram.NewPoller(client, lanes, cfg.Telegram.PollTimeoutSeconds, logger)
		g.Go(func() error {
			return poller.Run(gctx)
		})
	}

	return g.Wait()
}
