package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"aroma-order-service/internal/config"
	httpapi "aroma-order-service/internal/http"
	"aroma-order-service/internal/http/handlers"
	"aroma-order-service/internal/payments"
	"aroma-order-service/internal/queue"
	"aroma-order-service/internal/restaurant"
	"aroma-order-service/internal/services"
	"aroma-order-service/internal/storage"
	"aroma-order-service/internal/ws"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	receiptMaxRetries = 5
	receiptRetryDelay = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and websocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openSeeded(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	var uploads storage.Uploader
	if cfg.ObjectStoreEnabled() {
		objects, err := storage.NewObjectStore(ctx, storage.Config{
			Endpoint:        cfg.ObjectStoreEndpoint,
			Region:          cfg.ObjectStoreRegion,
			AccessKeyID:     cfg.ObjectStoreAccessKeyID,
			SecretAccessKey: cfg.ObjectStoreSecretAccessKey,
			Bucket:          cfg.ObjectStoreBucket,
			PublicBaseURL:   cfg.ObjectStorePublicBaseURL,
			StorageClass:    cfg.ObjectStoreStorageClass,
		})
		if err != nil {
			return fmt.Errorf("object store: %w", err)
		}
		uploads = objects
		log.Info("object store enabled", zap.String("bucket", cfg.ObjectStoreBucket))
	} else {
		log.Info("object store disabled; image uploads and stored receipts are off")
	}

	hub := ws.NewHub(log)
	orders := services.NewOrders(st, log, hub)

	qc, err := connectQueue(cfg, log)
	if err != nil {
		return err
	}
	if qc != nil {
		defer qc.Close()
		orders.AddSink(queue.NewPublisher(qc))
		startReceiptWorker(ctx, cfg, log, qc, st, uploads)
	}

	h := &handlers.Handler{
		Catalog:   services.NewCatalog(st, log),
		Orders:    orders,
		Tables:    services.NewTables(st, cfg.TableURLBase),
		Settings:  services.NewSettings(st),
		Analytics: services.NewAnalytics(st),
		Uploads:   uploads,
		Logger:    log,
		Config:    cfg,
	}
	// A nil *Stripe stored in the interface would not compare equal to nil.
	if stripe := payments.NewStripe(cfg.StripeSecret, cfg.StripeTimeout); stripe != nil {
		h.Payments = stripe
		log.Info("stripe payments enabled")
	}

	wsServer := ws.NewServer(hub, st, log, cfg.OrderTrackingTokenSecret, cfg.WSHeartbeatInterval, cfg.CorsAllowedOrigins)
	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(h, wsServer, log, cfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("order api ready", zap.String("base", "/api"))
		log.Info("admin api ready", zap.String("base", "/admin"))
		log.Info("order service listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
	log.Info("order service stopped")
	return nil
}

// connectQueue connects to RabbitMQ when configured. Outside production a
// broker failure only disables events; in production it is fatal.
func connectQueue(cfg config.Config, log *zap.Logger) (*queue.Client, error) {
	if cfg.RabbitMQURL == "" {
		log.Info("order events disabled (RABBITMQ_URL is empty)")
		return nil, nil
	}
	qc, err := queue.New(cfg.RabbitMQURL)
	if err == nil {
		err = queue.EnsureTopology(qc)
		if err != nil {
			_ = qc.Close()
		}
	}
	if err != nil {
		if cfg.Env == "production" {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		log.Warn("rabbitmq unavailable; continuing without order events", zap.Error(err))
		return nil, nil
	}
	log.Info("rabbitmq enabled", zap.String("exchange", queue.EventsExchange))
	return qc, nil
}

func startReceiptWorker(ctx context.Context, cfg config.Config, log *zap.Logger, qc *queue.Client, st restaurant.Store, uploads storage.Uploader) {
	if cfg.RabbitMQWorkerMode != "daemon" {
		log.Info("receipt worker disabled", zap.String("mode", cfg.RabbitMQWorkerMode))
		return
	}
	if uploads == nil {
		log.Info("receipt worker disabled (object store not configured)")
		return
	}
	worker := &queue.ReceiptWorker{Store: st, Uploader: uploads, Logger: log}
	log.Info("receipt worker enabled", zap.String("queue", queue.ReceiptsQueue))
	go func() {
		err := qc.ConsumeWithRetry(ctx, queue.ReceiptsQueue, worker.Handle, receiptMaxRetries, receiptRetryDelay)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("receipt consumer stopped", zap.Error(err))
		}
	}()
}
