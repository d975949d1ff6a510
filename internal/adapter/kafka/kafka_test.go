package kafka

import (
	"testing"
	"time"

	"github.com/couchcryptid/geomag-nowcast-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("dscovr-1"),
		Value:     []byte(`{"timestamp":"2024-05-10T18:30:00Z","indices":{"kp":7}}`),
		Topic:     "space-weather-telemetry",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("swpc")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("dscovr-1"), raw.Key)
	assert.JSONEq(t, `{"timestamp":"2024-05-10T18:30:00Z","indices":{"kp":7}}`, string(raw.Value))
	assert.Equal(t, "space-weather-telemetry", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "swpc", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestToMessage(t *testing.T) {
	event := domain.OutputEvent{
		Key:   []byte("3f0c1f8e-5a4e-4a53-9a51-0d3c3c7b2a11"),
		Value: []byte(`{"modelVersion":"unet-baseline-v1"}`),
		Headers: map[string]string{
			"model_version": "unet-baseline-v1",
			"generated_at":  "2024-05-10T18:30:00Z",
		},
	}

	msg := toMessage(event)

	assert.Equal(t, event.Key, msg.Key)
	assert.Equal(t, event.Value, msg.Value)
	assert.Equal(t, []kafkago.Header{
		{Key: "generated_at", Value: []byte("2024-05-10T18:30:00Z")},
		{Key: "model_version", Value: []byte("unet-baseline-v1")},
	}, msg.Headers)
}

func TestToMessage_NoHeaders(t *testing.T) {
	msg := toMessage(domain.OutputEvent{Key: []byte("k"), Value: []byte("{}")})
	assert.Empty(t, msg.Headers)
}
