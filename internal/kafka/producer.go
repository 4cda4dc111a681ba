package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/avaldez/facturador-webhook/internal/domain"
)

type Producer struct {
	w *kafka.Writer
}

func NewProducer(brokersSTR, topic string) *Producer {
	brokers := strings.Split(brokersSTR, ",")

	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
		},
	}
}

func (p *Producer) Close() error {
	return p.w.Close()
}

// PublishOutcome emits one event per emitted invoice, keyed by order id so
// downstream consumers see per-order ordering.
func (p *Producer) PublishOutcome(ctx context.Context, n domain.OutboundNotification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}

	key := []byte(strconv.FormatInt(n.OrderID, 10))
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: b,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	})
}
