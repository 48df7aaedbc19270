package notify

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"
)

// Producer publishes courier notifications to a Kafka topic, keyed by
// courier id so one courier's messages stay ordered.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer creates a Producer over an existing sarama sync producer.
func NewProducer(producer sarama.SyncProducer, topic string) *Producer {
	return &Producer{producer: producer, topic: topic}
}

// NewSyncProducer connects a sarama sync producer to the brokers.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	return sarama.NewSyncProducer(brokers, cfg)
}

// Publish sends the message to the notification topic.
func (p *Producer) Publish(courierID int64, msg Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(courierID, 10)),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// Close shuts the underlying producer down.
func (p *Producer) Close() error {
	return p.producer.Close()
}
