package notify

import (
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/MikeMC777/ecom-checkout/internal/config"
	"github.com/MikeMC777/ecom-checkout/internal/events"
	"github.com/MikeMC777/ecom-checkout/internal/user"
)

// NewWorkerFromConfig wires a Worker to the user directory, the SMTP relay
// (or the log when SMTP is unset) and Kafka (or nothing when no brokers are
// set). The returned func releases the connections.
func NewWorkerFromConfig(cfg config.Config, q Queue, log *zap.Logger) (*Worker, func(), error) {
	// non-blocking; RPCs wait for the connection
	conn, err := grpc.NewClient(cfg.UserSvcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("dial user service: %w", err)
	}

	var sender Sender = LogSender{Log: log}
	if cfg.SMTP.Enabled() {
		sender = NewSMTPSender(SMTPConfig{
			Host: cfg.SMTP.Host, Port: cfg.SMTP.Port,
			User: cfg.SMTP.User, Pass: cfg.SMTP.Pass, From: cfg.SMTP.From,
		})
	}

	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.EventsTopic)
	}

	w := NewWorker(q, user.NewClient(conn), sender, pub, WorkerConfig{
		MaxAttempts: cfg.NotifyMaxAttempts,
		Backoff:     cfg.NotifyBackoff,
	}, log.Named("notify"))

	cleanup := func() {
		if err := pub.Close(); err != nil {
			log.Warn("close event publisher", zap.Error(err))
		}
		_ = conn.Close()
	}
	return w, cleanup, nil
}
