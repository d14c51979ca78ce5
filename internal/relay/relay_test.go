package relay_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"sante/internal/eventbus"
	"sante/internal/events"
	"sante/internal/neuron"
	"sante/internal/relay"
	"sante/internal/relay/mocks"
)

func setup(t *testing.T, types ...string) (*eventbus.Bus, *mocks.MockProducer, *relay.Neuron) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := eventbus.New(eventbus.WithLogger(logger))
	producer := mocks.NewMockProducer(gomock.NewController(t))
	n := relay.NewNeuron(producer, bus, types, neuron.WithLogger(logger))
	require.NoError(t, n.Activate(context.Background()))
	t.Cleanup(func() { _ = n.Deactivate(context.Background()) })
	return bus, producer, n
}

func TestForwardsConfiguredTypes(t *testing.T) {
	bus, producer, n := setup(t, " appointment.scheduled", "appointment.scheduled", "", events.AuthPasswordResetIssued)
	assert.Equal(t, []string{events.AppointmentScheduled, events.AuthPasswordResetIssued}, n.EventTypes())

	var record eventbus.Event
	producer.EXPECT().Produce(gomock.Any(), events.AppointmentScheduled, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, value []byte) error {
			return json.Unmarshal(value, &record)
		})

	res, err := bus.Publish(context.Background(), events.AppointmentScheduled,
		map[string]any{"appointment_id": "a-1"}, eventbus.Metadata{Source: "appointment"})
	require.NoError(t, err)
	_, err = bus.Publish(context.Background(), events.AppointmentRejected, nil, eventbus.Metadata{Source: "appointment"})
	require.NoError(t, err)

	assert.Equal(t, res.EventID, record.ID)
	assert.Equal(t, "a-1", record.String("appointment_id"))
	assert.Equal(t, "appointment", record.Metadata.Source)
	assert.EqualValues(t, 1, n.Metrics().EventsProcessed)
}

func TestRedactsSecrets(t *testing.T) {
	bus, producer, _ := setup(t, events.AuthPasswordResetIssued)

	var value []byte
	producer.EXPECT().Produce(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, v []byte) error {
			value = v
			return nil
		})

	data := map[string]any{"identifier": "awa@example.com", "reset_token": "secret"}
	_, err := bus.Publish(context.Background(), events.AuthPasswordResetIssued, data, eventbus.Metadata{Source: "auth"})
	require.NoError(t, err)

	assert.NotContains(t, string(value), "secret")
	assert.Contains(t, string(value), "awa@example.com")
	history := bus.History(eventbus.HistoryFilter{Type: events.AuthPasswordResetIssued})
	assert.Equal(t, "secret", history[0].String("reset_token"), "the bus copy is untouched")
}

func TestProducerFailureCountsAsHandlerError(t *testing.T) {
	bus, producer, n := setup(t, events.ProfessionalVerified)
	producer.EXPECT().Produce(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("broker unreachable"))

	_, err := bus.Publish(context.Background(), events.ProfessionalVerified, nil, eventbus.Metadata{Source: "professional"})
	require.NoError(t, err, "relay failures never reach the publisher")
	assert.EqualValues(t, 1, n.Metrics().Errors)
	assert.EqualValues(t, 1, bus.Metrics().HandlerErrors)
}
