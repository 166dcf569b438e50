package cleanup

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

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

type mockCommands struct {
	mock.Mock
}

func (m *mockCommands) SaveCommand(ctx context.Context, cmd *models.Command) error {
	return m.Called(ctx, cmd).Error(0)
}

func (m *mockCommands) ListCommands(ctx context.Context, slot string, limit int) ([]models.Command, error) {
	args := m.Called(ctx, slot, limit)
	return args.Get(0).([]models.Command), args.Error(1)
}

func (m *mockCommands) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func TestPrune(t *testing.T) {
	readings := &mockReadings{}
	commands := &mockCommands{}
	cutoff := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	readings.On("DeleteOlderThan", mock.Anything, cutoff).Return(int64(12), nil)
	commands.On("DeleteOlderThan", mock.Anything, cutoff).Return(int64(3), nil)

	svc := New(readings, commands)
	pruned := make(chan int64, 2)
	svc.OnCleanup(EventReadingsPruned, func(n int64) { pruned <- n })

	require.NoError(t, svc.Prune(context.Background(), cutoff))
	readings.AssertExpectations(t)
	commands.AssertExpectations(t)

	select {
	case n := <-pruned:
		assert.Equal(t, int64(12), n)
	case <-time.After(time.Second):
		t.Fatal("readings.pruned not emitted")
	}
}

func TestPruneStopsOnReadingError(t *testing.T) {
	readings := &mockReadings{}
	commands := &mockCommands{}
	readings.On("DeleteOlderThan", mock.Anything, mock.Anything).Return(int64(0), stderrors.New("connection reset"))

	err := New(readings, commands).Prune(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to prune readings")
	commands.AssertNotCalled(t, "DeleteOlderThan", mock.Anything, mock.Anything)
}
