package procurement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPurger struct{ mock.Mock }

func (m *mockPurger) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

func TestRetentionRunOnce(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	p := &mockPurger{}
	p.On("Purge", mock.Anything, now.Add(-30*24*time.Hour)).Return(int64(3), nil)

	var purged int64
	r, err := NewRetention(p, 30, "", zerolog.Nop(), func(n int64) { purged += n })
	require.NoError(t, err)
	r.now = func() time.Time { return now }

	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, int64(3), purged)
	p.AssertExpectations(t)
}

func TestRetentionDisabled(t *testing.T) {
	p := &mockPurger{}
	r, err := NewRetention(p, 0, "not a schedule", zerolog.Nop(), nil)
	require.NoError(t, err)
	assert.False(t, r.Enabled())

	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	r.Start()
	r.Stop()
	p.AssertNotCalled(t, "Purge", mock.Anything, mock.Anything)
}

func TestRetentionInvalidSchedule(t *testing.T) {
	_, err := NewRetention(&mockPurger{}, 7, "every tuesday", zerolog.Nop(), nil)
	assert.Error(t, err)
}

func TestRetentionPurgeError(t *testing.T) {
	p := &mockPurger{}
	p.On("Purge", mock.Anything, mock.Anything).Return(int64(0), errors.New("disk I/O error"))

	called := false
	r, err := NewRetention(p, 1, "@hourly", zerolog.Nop(), func(int64) { called = true })
	require.NoError(t, err)

	_, err = r.RunOnce(context.Background())
	assert.Error(t, err)
	assert.False(t, called)
}

func TestRetentionStartStop(t *testing.T) {
	r, err := NewRetention(&mockPurger{}, 7, "0 3 * * *", zerolog.Nop(), nil)
	require.NoError(t, err)

	r.Start()
	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retention did not stop")
	}
}

func TestRetentionWithStore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	old := time.Now().Add(-40 * 24 * time.Hour)

	s.now = func() time.Time { return old }
	_, err := s.SaveRequest(ctx, "old part", "SW1A 1AA")
	require.NoError(t, err)
	s.now = time.Now
	_, err = s.SaveRequest(ctx, "new part", "SW1A 1AA")
	require.NoError(t, err)

	r, err := NewRetention(s, 30, DefaultPurgeSchedule, zerolog.Nop(), nil)
	require.NoError(t, err)

	n, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
