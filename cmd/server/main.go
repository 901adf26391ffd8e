package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/freelance-marketplace/internal/config"
	"github.com/iliyamo/freelance-marketplace/internal/database"
	"github.com/iliyamo/freelance-marketplace/internal/mail"
	"github.com/iliyamo/freelance-marketplace/internal/queue"
	"github.com/iliyamo/freelance-marketplace/internal/repository"
	"github.com/iliyamo/freelance-marketplace/internal/repository/memory"
	"github.com/iliyamo/freelance-marketplace/internal/router"
	"github.com/iliyamo/freelance-marketplace/internal/service"
	"github.com/iliyamo/freelance-marketplace/internal/storage"
	"github.com/iliyamo/freelance-marketplace/internal/utils"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	cfg := config.Load()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	entry := log.WithField("env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, err := openStore(ctx, cfg.DB, entry)
	if err != nil {
		entry.WithError(err).Fatal("open store")
	}
	if db != nil {
		defer db.Close()
	}

	objects, err := openObjects(ctx, cfg.Storage, entry)
	if err != nil {
		entry.WithError(err).Fatal("open object storage")
	}

	var mailer mail.Mailer = mail.LogMailer{Log: entry}
	if cfg.Mail.Enabled {
		m, err := mail.NewSMTPMailer(cfg.Mail)
		if err != nil {
			entry.WithError(err).Fatal("configure mailer")
		}
		mailer = m
	}

	rdb := config.NewRedisClient(ctx, cfg.Redis)
	if rdb == nil && cfg.RateLimit.Enabled {
		entry.WithField("addr", cfg.Redis.Addr).Warn("redis unreachable, rate limiting disabled")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	codec := utils.NewTokenCodec(cfg.Token.Secret, cfg.Token.TTL)
	notifications := service.NewNotificationService(store.Notifications())

	deps := router.Deps{
		Codec:         codec,
		Users:         store.Users(),
		Auth:          service.NewAuthService(store.Users(), codec, cfg.BcryptCost, entry),
		Projects:      service.NewProjectLifecycle(store, entry),
		Notifications: notifications,
		Reports:       service.NewReportService(store, entry),
		Chat:          service.NewChatService(store),
		Accounts:      service.NewUserService(store.Users(), store.Mails(), mailer, entry),
		Applications: service.NewApplicationLifecycle(store, objects, entry, service.ApplicationOptions{
			NotifyRejectedSiblings: cfg.NotifyRejectedSiblings,
			MaxAttachmentBytes:     cfg.Storage.MaxBytes,
		}),
		RateLimit: cfg.RateLimit,
		Redis:     rdb,
		Log:       entry,
	}
	if db != nil {
		deps.DB = db
	}
	e := router.New(deps)

	var wg sync.WaitGroup
	var publisher queue.Publisher = queue.SinkPublisher{Sink: notifications}
	if cfg.AMQP.Enabled {
		amqpPub := queue.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, entry)
		defer amqpPub.Close()
		publisher = amqpPub

		consumer := &queue.Consumer{URL: cfg.AMQP.URL, Queue: cfg.AMQP.Queue, Recorder: notifications, Log: entry}
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumer.Run(ctx)
		}()
	}
	relay := &queue.OutboxRelay{
		Outbox:      store.Outbox(),
		Publisher:   publisher,
		BatchSize:   cfg.Outbox.Batch,
		MaxAttempts: cfg.Outbox.MaxAttempts,
		Interval:    cfg.Outbox.Interval,
		Log:         entry.WithField("worker", "outbox"),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		relay.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
	}
	go func() {
		entry.WithField("addr", srv.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			entry.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	entry.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		entry.WithError(err).Warn("graceful shutdown failed")
	}
	wg.Wait()
}

// openStore picks the persistence backend.  db is nil for the memory store.
func openStore(ctx context.Context, c config.DBConfig, log logrus.FieldLogger) (repository.Store, *sql.DB, error) {
	if c.Driver == "memory" {
		log.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil, nil
	}
	db, err := database.Open(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	if c.AutoMigrate {
		if err := database.Apply(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	return repository.NewSQLStore(db), db, nil
}

// openObjects returns the attachment store.  With MinIO disabled, CVs are
// kept in memory.
func openObjects(ctx context.Context, c config.StorageConfig, log logrus.FieldLogger) (storage.ObjectStore, error) {
	if !c.Enabled {
		log.Warn("object storage disabled, attachments kept in memory")
		return storage.NewMemoryStore(), nil
	}
	return storage.NewMinioStore(ctx, c)
}
