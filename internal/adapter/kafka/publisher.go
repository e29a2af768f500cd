package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/accident-data-etl/internal/config"
	"github.com/couchcryptid/accident-data-etl/internal/domain"
	"github.com/couchcryptid/accident-data-etl/internal/observability"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes every prepared record of a run to a Kafka topic.
type Publisher struct {
	writer    messageWriter
	batchSize int
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured topic.
func NewPublisher(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchSize:              cfg.BatchSize,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, cfg.BatchSize, metrics, logger)
}

func newPublisher(w messageWriter, batchSize int, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Publisher{writer: w, batchSize: batchSize, metrics: metrics, logger: logger}
}

// Name identifies the exporter in logs, metrics and errors.
func (p *Publisher) Name() string { return "kafka" }

// Export publishes the records in batches of batchSize, keyed by record ID.
func (p *Publisher) Export(ctx context.Context, ds *domain.Dataset) error {
	for start := 0; start < len(ds.Records); start += p.batchSize {
		end := min(start+p.batchSize, len(ds.Records))
		msgs := make([]kafkago.Message, 0, end-start)
		for i := start; i < end; i++ {
			msg, err := serializeToMessage(ds, &ds.Records[i])
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("publish records %d-%d: %w", start, end-1, err)
		}
		if p.metrics != nil {
			p.metrics.RecordsPublished.Add(float64(len(msgs)))
		}
	}
	p.logger.Info("records published", "run_id", ds.RunID, "records", len(ds.Records))
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// accidentMessage is the JSON wire shape of a prepared record. Missing values
// are null.
type accidentMessage struct {
	ID               string     `json:"id"`
	RunID            string     `json:"run_id"`
	Row              int        `json:"row"`
	Severity         *int       `json:"severity"`
	StartTime        *time.Time `json:"start_time"`
	EndTime          *time.Time `json:"end_time"`
	Hour             *int       `json:"hour"`
	DayOfWeek        *int       `json:"day_of_week"`
	Month            *int       `json:"month"`
	Year             *int       `json:"year"`
	Temperature      *float64   `json:"temperature_f"`
	Humidity         *float64   `json:"humidity_pct"`
	Pressure         *float64   `json:"pressure_in"`
	Visibility       *float64   `json:"visibility_mi"`
	WindSpeed        *float64   `json:"wind_speed_mph"`
	WeatherCondition *string    `json:"weather_condition"`
	State            *string    `json:"state"`
	StartLat         *float64   `json:"start_lat"`
	StartLng         *float64   `json:"start_lng"`
	Day              *int       `json:"day"`
	DayName          *string    `json:"day_name"`
	TrafficSignal    *bool      `json:"traffic_signal"`
	Junction         *bool      `json:"junction"`
	Stop             *bool      `json:"stop"`
	Crossing         *bool      `json:"crossing"`
}

func ptr[T any](valid bool, v T) *T {
	if !valid {
		return nil
	}
	return &v
}

func toMessage(runID string, r *domain.AccidentRecord) accidentMessage {
	return accidentMessage{
		ID:               r.ID,
		RunID:            runID,
		Row:              r.Row,
		Severity:         ptr(r.Severity.Valid, r.Severity.V),
		StartTime:        ptr(r.StartTime.Valid, r.StartTime.V),
		EndTime:          ptr(r.EndTime.Valid, r.EndTime.V),
		Hour:             ptr(r.Hour.Valid, r.Hour.V),
		DayOfWeek:        ptr(r.DayOfWeek.Valid, r.DayOfWeek.V),
		Month:            ptr(r.Month.Valid, r.Month.V),
		Year:             ptr(r.Year.Valid, r.Year.V),
		Temperature:      ptr(r.Temperature.Valid, r.Temperature.V),
		Humidity:         ptr(r.Humidity.Valid, r.Humidity.V),
		Pressure:         ptr(r.Pressure.Valid, r.Pressure.V),
		Visibility:       ptr(r.Visibility.Valid, r.Visibility.V),
		WindSpeed:        ptr(r.WindSpeed.Valid, r.WindSpeed.V),
		WeatherCondition: ptr(r.WeatherCondition.Valid, r.WeatherCondition.V),
		State:            ptr(r.State.Valid, r.State.V),
		StartLat:         ptr(r.StartLat.Valid, r.StartLat.V),
		StartLng:         ptr(r.StartLng.Valid, r.StartLng.V),
		Day:              ptr(r.Day.Valid, r.Day.V),
		DayName:          ptr(r.DayName.Valid, r.DayName.V),
		TrafficSignal:    ptr(r.TrafficSignal.Valid, r.TrafficSignal.V),
		Junction:         ptr(r.Junction.Valid, r.Junction.V),
		Stop:             ptr(r.Stop.Valid, r.Stop.V),
		Crossing:         ptr(r.Crossing.Valid, r.Crossing.V),
	}
}

// serializeToMessage marshals one record into a Kafka message.
func serializeToMessage(ds *domain.Dataset, r *domain.AccidentRecord) (kafkago.Message, error) {
	data, err := json.Marshal(toMessage(ds.RunID, r))
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record %s: %w", r.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(r.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(ds.RunID)},
			{Key: "prepared_at", Value: []byte(ds.PreparedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
