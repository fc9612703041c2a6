package email

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Message es un correo de texto plano.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Receipt describe el resultado de un envío.
// Accepted es false cuando el transporte no entregó realmente el correo
// (por ejemplo, el fallback que solo escribe en el log).
type Receipt struct {
	Accepted    bool
	TransportID string
}

// Sender define la interfaz para el envío de correos.
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

var ErrRecipientRequired = errors.New("to email is required")

// LogSender no envía nada: registra el correo con zap. Se usa cuando SMTP
// no está configurado.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) (Receipt, error) {
	if strings.TrimSpace(msg.To) == "" {
		return Receipt{}, ErrRecipientRequired
	}
	id := "log-" + uuid.NewString()
	s.logger.Info("email not sent, smtp disabled",
		zap.String("transport_id", id),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return Receipt{Accepted: false, TransportID: id}, nil
}
