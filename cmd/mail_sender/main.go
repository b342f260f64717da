package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hackers-pub/hackerspub-sub003/internal/config"
	sl "github.com/hackers-pub/hackerspub-sub003/internal/lib/logger"
	"github.com/hackers-pub/hackerspub-sub003/internal/mailer"
	"github.com/hackers-pub/hackerspub-sub003/internal/models"
	"github.com/hackers-pub/hackerspub-sub003/internal/rabbitmq"

	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad(config.Path(flag.NewFlagSet(os.Args[0], flag.ExitOnError), os.Args[1:]))
	log := sl.Setup(cfg.Env, os.Stdout, sl.Options{MaskSecrets: cfg.Log.MaskSecrets})

	log.Info("Starting email_sender", slog.String("env", cfg.Env))

	if err := startConsumer(ctx, cfg, log); err != nil {
		log.Error("consumer stopped with error", sl.Err(err))
		os.Exit(1)
	}

	log.Info("service gracefully stopped")
}

func startConsumer(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	r, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		return err
	}
	defer r.Close()

	m := &mailer.Mailer{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.Consume(gCtx, func(_ context.Context, body []byte) error {
			var msg models.Message
			if err := json.Unmarshal(body, &msg); err != nil {
				log.Error("failed to unmarshal message", sl.Err(err))
				// a malformed message will never succeed, drop it
				return nil
			}

			if err := m.Send(msg); err != nil {
				log.Error("failed to send message", sl.Err(err), slog.String("purpose", msg.Purpose))
				return err
			}

			log.Info("message sent successfully", slog.String("purpose", msg.Purpose))

			return nil
		})
	})

	log.Info("consumer successfully started")

	return g.Wait()
}
