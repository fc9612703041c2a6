package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nsqio/go-nsq"
	"go.uber.org/zap"

	"projector-tracker/internal/domain"
)

// ActivityRecorded es el mensaje publicado por cada entrada del registro de actividad.
type ActivityRecorded struct {
	Type        string    `json:"type"`
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	EquipmentID string    `json:"equipment_id"`
	Action      string    `json:"action"`
	Notes       string    `json:"notes,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

const TypeActivityRecorded = "activity.recorded"

func NewActivityRecorded(a domain.Activity) ActivityRecorded {
	return ActivityRecorded{
		Type:        TypeActivityRecorded,
		ID:          a.ID,
		UserID:      a.UserID,
		EquipmentID: a.EquipmentID,
		Action:      string(a.Action),
		Notes:       a.Notes,
		Timestamp:   a.CreatedAt.UTC(),
	}
}

// Publisher difunde actividades a consumidores externos.
type Publisher interface {
	PublishActivity(ctx context.Context, a domain.Activity) error
	Stop()
}

type nopPublisher struct{}

// NewNopPublisher descarta los eventos; se usa cuando NSQD_ADDR está vacío.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) PublishActivity(context.Context, domain.Activity) error {
	return nil
}

func (nopPublisher) Stop() {}

// nsqProducer aísla el cliente NSQ para poder sustituirlo en tests.
type nsqProducer interface {
	Publish(topic string, body []byte) error
	Stop()
}

type NSQPublisher struct {
	producer nsqProducer
	topic    string
	logger   *zap.Logger
}

// NewNSQPublisher conecta con nsqd y verifica la conexión con Ping.
func NewNSQPublisher(addr, topic string, logger *zap.Logger) (*NSQPublisher, error) {
	producer, err := nsq.NewProducer(addr, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create NSQ producer: %w", err)
	}
	if err := producer.Ping(); err != nil {
		producer.Stop()
		return nil, fmt.Errorf("failed to ping NSQ daemon: %w", err)
	}
	return newNSQPublisher(producer, topic, logger), nil
}

func newNSQPublisher(producer nsqProducer, topic string, logger *zap.Logger) *NSQPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NSQPublisher{producer: producer, topic: topic, logger: logger}
}

func (p *NSQPublisher) PublishActivity(ctx context.Context, a domain.Activity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(NewActivityRecorded(a))
	if err != nil {
		return fmt.Errorf("failed to marshal activity event: %w", err)
	}
	if err := p.producer.Publish(p.topic, body); err != nil {
		return fmt.Errorf("failed to publish activity event: %w", err)
	}
	p.logger.Debug("activity event published",
		zap.String("topic", p.topic),
		zap.String("activity_id", a.ID),
	)
	return nil
}

func (p *NSQPublisher) Stop() {
	p.producer.Stop()
}
