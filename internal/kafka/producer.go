package kafka

import (
	"encoding/json"
	"fmt"

	"helmet-safety-go/pkg/models"

	"github.com/IBM/sarama"
)

// Producer публикует нарушения в Kafka
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer создаёт продюсер с настройками
func NewProducer(brokers []string, topic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return NewProducerWith(producer, topic), nil
}

// NewProducerWith оборачивает готовый sarama.SyncProducer
func NewProducerWith(producer sarama.SyncProducer, topic string) *Producer {
	return &Producer{
		producer: producer,
		topic:    topic,
	}
}

// Close закрывает продюсер
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}

// PublishIncidents отправляет нарушения кадра, ключ сообщения - ID сессии
func (p *Producer) PublishIncidents(sessionID string, incidents []models.SafetyIncident) error {
	if len(incidents) == 0 {
		return nil
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(incidents))
	for _, incident := range incidents {
		payload, err := json.Marshal(models.IncidentEvent{
			SessionID: sessionID,
			Incident:  incident,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal incident: %w", err)
		}

		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(sessionID),
			Value: sarama.ByteEncoder(payload),
		})
	}

	if err := p.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("failed to publish incidents: %w", err)
	}
	return nil
}
