package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"github.com/todo-1m/todolist/internal/app/eventlog"
	"github.com/todo-1m/todolist/internal/messaging"
	"github.com/todo-1m/todolist/internal/platform/env"
	"github.com/todo-1m/todolist/internal/platform/logging"
	"github.com/todo-1m/todolist/internal/platform/natsutil"
)

const queueGroup = "todo-events"

func main() {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(runCtx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		natsURL        string
		connectTimeout time.Duration
		logLevel       string
		logFormat      string
	)
	cmd := &cobra.Command{
		Use:          "todo-events",
		Short:        "Log todo change events published by todo-api",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logging.New(os.Stderr, logLevel, logFormat, "todo-events")
			return consume(cmd.Context(), logger, natsURL, connectTimeout)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&natsURL, "nats-url", env.String("NATS_URL", nats.DefaultURL), "NATS server")
	flags.DurationVar(&connectTimeout, "connect-timeout", env.Duration("NATS_CONNECT_TIMEOUT", 20*time.Second), "how long to retry the initial connection")
	flags.StringVar(&logLevel, "log-level", env.String("TODO_LOG_LEVEL", "info"), "debug, info, warn or error")
	flags.StringVar(&logFormat, "log-format", env.String("TODO_LOG_FORMAT", "text"), "text, json or logfmt")
	return cmd
}

func consume(ctx context.Context, logger *log.Logger, natsURL string, connectTimeout time.Duration) error {
	client, err := natsutil.ConnectJetStreamWithRetry(ctx, natsURL, "todo-events", connectTimeout)
	if err != nil {
		return err
	}
	defer client.Close()

	service := eventlog.NewService(logger)
	sub, err := client.JS.QueueSubscribe(messaging.EventsSubject, queueGroup, func(msg *nats.Msg) {
		var streamSeq uint64
		if meta, metaErr := msg.Metadata(); metaErr == nil {
			streamSeq = meta.Sequence.Stream
		}
		handleMessage(logger, service, msg.Data, streamSeq, msg)
	}, nats.ManualAck())
	if err != nil {
		return err
	}
	defer func() { _ = sub.Unsubscribe() }()

	logger.Info("listening for todo events", "subject", sub.Subject, "queue", queueGroup)
	<-ctx.Done()
	return nil
}

// acker is the part of *nats.Msg used to settle a delivery.
type acker interface {
	Ack(opts ...nats.AckOpt) error
	Term(opts ...nats.AckOpt) error
}

func handleMessage(logger *log.Logger, service *eventlog.Service, payload []byte, streamSeq uint64, msg acker) {
	if _, err := service.Handle(payload, streamSeq); err != nil {
		switch {
		case errors.Is(err, eventlog.ErrInvalidEventPayload):
			logger.Warn("discarding invalid event payload", "seq", streamSeq, "err", err)
		case errors.Is(err, eventlog.ErrUnsupportedEventType):
			logger.Warn("discarding unsupported event type", "seq", streamSeq, "err", err)
		default:
			logger.Error("event handling failed", "seq", streamSeq, "err", err)
		}
		_ = msg.Term()
		return
	}
	_ = msg.Ack()
}
