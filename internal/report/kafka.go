package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/wateruse/internal/models"
)

// MissingDataAlert is published for every point flagged missing in a
// completeness run.
type MissingDataAlert struct {
	RunID           string                    `json:"run_id"`
	Point           models.MonitoredPoint     `json:"point"`
	Site            string                    `json:"site"`
	Status          models.CompletenessStatus `json:"status"`
	WindowStart     time.Time                 `json:"window_start"`
	WindowEnd       time.Time                 `json:"window_end"`
	Expected        int                       `json:"expected"`
	Observed        int                       `json:"observed"`
	PercentComplete float64                   `json:"percent_complete"`
	LastSeen        *time.Time                `json:"last_seen,omitempty"`
}

// Kafka publishes missing-data alerts keyed by point. Statistics reports are
// not published.
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
	logger   logrus.FieldLogger
}

// NewKafkaProducer creates a synchronous producer that waits for all in-sync
// replicas.
func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	cfg.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return producer, nil
}

func NewKafka(producer sarama.SyncProducer, topic string, logger logrus.FieldLogger) *Kafka {
	return &Kafka{producer: producer, topic: topic, logger: logger}
}

func (s *Kafka) WriteCompleteness(_ context.Context, runID string, results []models.CompletenessResult) error {
	var msgs []*sarama.ProducerMessage
	for _, r := range results {
		if !r.Missing {
			continue
		}

		payload, err := json.Marshal(MissingDataAlert{
			RunID:           runID,
			Point:           r.Point,
			Site:            r.Point.SiteID(),
			Status:          r.Status,
			WindowStart:     r.WindowStart,
			WindowEnd:       r.WindowEnd,
			Expected:        r.Expected,
			Observed:        r.Observed,
			PercentComplete: r.PercentComplete,
			LastSeen:        r.LastSeen,
		})
		if err != nil {
			return fmt.Errorf("failed to encode alert for %s: %w", r.Point, err)
		}

		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: s.topic,
			Key:   sarama.StringEncoder(r.Point),
			Value: sarama.ByteEncoder(payload),
		})
	}

	if len(msgs) == 0 {
		return nil
	}
	if err := s.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("failed to publish %d missing-data alerts: %w", len(msgs), err)
	}

	s.logger.WithFields(logrus.Fields{
		"run_id": runID,
		"alerts": len(msgs),
		"topic":  s.topic,
	}).Info("Published missing-data alerts")
	return nil
}

func (s *Kafka) WriteReports(context.Context, string, []models.PointReport) error {
	return nil
}

func (s *Kafka) Close() error {
	return s.producer.Close()
}
