package hubservice

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eval-printer/SmartHome-Demo/internal/errors"
	"github.com/eval-printer/SmartHome-Demo/internal/events"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
)

type mockReadings struct {
	mock.Mock
}

func (m *mockReadings) InsertReading(ctx context.Context, reading *models.Reading) error {
	return m.Called(ctx, reading).Error(0)
}

func (m *mockReadings) LatestBySlot(ctx context.Context, slot string, limit int) ([]models.Reading, error) {
	args := m.Called(ctx, slot, limit)
	return args.Get(0).([]models.Reading), args.Error(1)
}

func (m *mockReadings) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, update models.ObservationUpdate) error {
	return m.Called(ctx, update).Error(0)
}

func (m *mockPublisher) Close() error { return nil }

func TestRecordObservationStoresEveryAttribute(t *testing.T) {
	readings := &mockReadings{}
	readings.On("InsertReading", mock.Anything, mock.MatchedBy(func(r *models.Reading) bool {
		return r.Slot == models.SlotHeartRate && r.URI == models.URIHeartRate
	})).Return(nil).Twice()
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(u models.ObservationUpdate) bool {
		return u.StationID == "flat" && u.ObservationType == models.SlotHeartRate
	})).Return(nil).Once()

	svc := &HubService{Readings: readings, Publisher: pub, StationID: "flat"}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := svc.RecordObservation(context.Background(), models.SlotHeartRate, models.URIHeartRate,
		models.Representation{models.AttrHeartRate: 97, models.AttrAddress: "AA:BB"}, at)
	require.NoError(t, err)

	readings.AssertExpectations(t)
	pub.AssertExpectations(t)
	first := readings.Calls[0].Arguments.Get(1).(*models.Reading)
	assert.Equal(t, models.AttrAddress, first.Attribute)
	assert.Equal(t, "AA:BB", first.Value)
	second := readings.Calls[1].Arguments.Get(1).(*models.Reading)
	assert.Equal(t, "97", second.Value)
	assert.Equal(t, at, second.ObservedAt)
}

func TestRecordObservationWithoutDatabaseOnlyPublishes(t *testing.T) {
	svc := New(nil, nil, nil, nil, events.NopPublisher{}, "home")
	require.NoError(t, svc.Validate())
	assert.False(t, svc.Persistent())
	assert.Nil(t, svc.Cleanup)
	assert.NoError(t, svc.RecordObservation(context.Background(), models.SlotGas, models.URIGas,
		models.Representation{models.AttrDensity: 40}, time.Time{}))

	_, err := svc.LatestReadings(context.Background(), models.SlotGas, 10)
	assert.True(t, errors.IsNotFound(err))
	assert.NoError(t, svc.RecordCommand(context.Background(), models.Command{RequestID: "cmd_1"}))
}

func TestLatestReadingsValidatesSlot(t *testing.T) {
	svc := &HubService{Readings: &mockReadings{}, Publisher: events.NopPublisher{}}
	_, err := svc.LatestReadings(context.Background(), "toaster", 10)
	assert.True(t, errors.IsValidation(err))
}

func TestLatestReadingsClampsLimit(t *testing.T) {
	readings := &mockReadings{}
	readings.On("LatestBySlot", mock.Anything, models.SlotGas, 50).Return([]models.Reading{{Value: "1"}}, nil)
	svc := &HubService{Readings: readings, Publisher: events.NopPublisher{}}

	got, err := svc.LatestReadings(context.Background(), models.SlotGas, 10000)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestListCommandsOnlyForActuators(t *testing.T) {
	svc := &HubService{Publisher: events.NopPublisher{}}
	_, err := svc.ListCommands(context.Background(), models.SlotGas, 10)
	assert.True(t, errors.IsValidation(err))

	var apiErr *errors.APIError
	require.True(t, stderrors.As(err, &apiErr))
	assert.Equal(t, map[string][]string{"slots": {models.SlotFan, models.SlotLed}}, apiErr.Details)
}

func TestValidateRejectsPartialRepositories(t *testing.T) {
	svc := New(&mockReadings{}, nil, nil, nil, events.NopPublisher{}, "home")
	err := svc.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rules")
}

type mockSensors struct {
	mock.Mock
}

func (m *mockSensors) Upsert(ctx context.Context, name, address string, at time.Time) error {
	return m.Called(ctx, name, address, at).Error(0)
}

func (m *mockSensors) Get(ctx context.Context, name string) (*models.KnownSensor, error) {
	args := m.Called(ctx, name)
	sensor, _ := args.Get(0).(*models.KnownSensor)
	return sensor, args.Error(1)
}

func (m *mockSensors) List(ctx context.Context) ([]models.KnownSensor, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.KnownSensor), args.Error(1)
}

func (m *mockSensors) SetActive(ctx context.Context, name string, active bool, at time.Time) error {
	return m.Called(ctx, name, active, at).Error(0)
}

func TestSensorBookkeeping(t *testing.T) {
	sensors := &mockSensors{}
	sensors.On("Upsert", mock.Anything, "gas", "http://10.0.0.5/oic/res?rt=intel.gas", mock.Anything).Return(nil).Once()
	sensors.On("SetActive", mock.Anything, "gas", false, mock.Anything).Return(nil).Once()
	sensors.On("SetActive", mock.Anything, "heartRate", false, mock.Anything).
		Return(errors.NewNotFoundError("sensor not found", nil)).Once()

	svc := &HubService{Sensors: sensors, Publisher: events.NopPublisher{}}
	ctx := context.Background()
	require.NoError(t, svc.SensorRegistered(ctx, "gas", "http://10.0.0.5/oic/res?rt=intel.gas"))
	require.NoError(t, svc.SensorLiveness(ctx, "gas", false))
	assert.NoError(t, svc.SensorLiveness(ctx, "heartRate", false))
	sensors.AssertExpectations(t)
}

func TestKnownSensorsWithoutDatabase(t *testing.T) {
	svc := &HubService{Publisher: events.NopPublisher{}}
	_, err := svc.KnownSensors(context.Background())
	assert.True(t, errors.IsNotFound(err))
	assert.NoError(t, svc.SensorRegistered(context.Background(), "gas", "x"))
}
