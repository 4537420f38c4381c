package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hashora/settlement-service/internal/domain"
	"github.com/segmentio/kafka-go"
)

type DefaultKafkaPublisher struct {
	writer *kafka.Writer
}

func NewDefaultKafkaPublisher(brokers []string) *DefaultKafkaPublisher {
	return &DefaultKafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (k *DefaultKafkaPublisher) Publish(topic string, msgs ...domain.Message) error {
	var km []kafka.Message
	for _, m := range msgs {
		km = append(km, kafka.Message{
			Key:   m.Key,
			Value: m.Value,
			Time:  time.Now(),
			Topic: topic,
		})
	}

	return k.writer.WriteMessages(context.Background(), km...)
}

// SettlementEvent is emitted once per confirmed order for the package and
// inventory subsystems.
type SettlementEvent struct {
	OrderID        string `json:"order_id"`
	UserID         string `json:"user_id"`
	PackageID      string `json:"package_id"`
	Chain          string `json:"chain"`
	AmountReceived string `json:"amount_received"`
	Hashrate       string `json:"hashrate"`
	ConfirmedAt    int64  `json:"confirmed_at"`
}

func PublishSettlement(p domain.PublisherPort, topic string, event SettlementEvent) error {
	v, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.Publish(topic, domain.Message{Key: []byte(event.OrderID), Value: v})
}
