package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"projector-tracker/internal/email"
	"projector-tracker/internal/metrics"
)

const defaultNotifyTimeout = 30 * time.Second

// Notifier despacha correos. Dispatch es síncrono y devuelve el error;
// Go lo hace en segundo plano y solo registra fallos.
type Notifier struct {
	sender  email.Sender
	logger  *zap.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewNotifier(sender email.Sender, logger *zap.Logger, m *metrics.Metrics) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		sender:  sender,
		logger:  logger,
		metrics: m,
		timeout: defaultNotifyTimeout,
	}
}

// Dispatch envía msg y devuelve el recibo del transporte.
func (n *Notifier) Dispatch(ctx context.Context, kind string, msg email.Message) (email.Receipt, error) {
	if n == nil || n.sender == nil {
		return email.Receipt{}, nil
	}
	receipt, err := n.sender.Send(ctx, msg)
	switch {
	case err != nil:
		n.metrics.Email(kind, "error")
		n.logger.Warn("email dispatch failed",
			zap.String("kind", kind),
			zap.String("to", msg.To),
			zap.Error(err),
		)
	case !receipt.Accepted:
		n.metrics.Email(kind, "unconfirmed")
	default:
		n.metrics.Email(kind, "sent")
	}
	return receipt, err
}

// Go envía msg en una goroutine desacoplada de la cancelación de ctx.
func (n *Notifier) Go(ctx context.Context, kind string, msg email.Message) {
	if n == nil || n.sender == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		sendCtx, cancel := context.WithTimeout(detached, n.timeout)
		defer cancel()
		_, _ = n.Dispatch(sendCtx, kind, msg)
	}()
}

// Wait bloquea hasta que terminen los envíos en segundo plano.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}
