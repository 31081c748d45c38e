package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnofacil/turnofacil/internal/schedule"
)

func sampleSession(phone string) *Session {
	start := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)
	return &Session{
		PatientPhone: phone,
		DoctorID:     uuid.New(),
		Step:         StepShowingSlots,
		PatientID:    uuid.New(),
		PatientName:  "María",
		CandidateSlots: []schedule.Slot{
			{Start: start, End: start.Add(30 * time.Minute), Available: true},
		},
		StartedAt:    start,
		LastActiveAt: start,
	}
}

func TestMemorySessionStoreRoundTrip(t *testing.T) {
	store := NewMemorySessionStore(30 * time.Minute)
	defer store.Close()
	ctx := context.Background()

	_, err := store.Get(ctx, "+549115555")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	session := sampleSession("+549115555")
	require.NoError(t, store.Put(ctx, session))

	got, err := store.Get(ctx, "+549115555")
	require.NoError(t, err)
	assert.Equal(t, session.DoctorID, got.DoctorID)
	assert.Equal(t, StepShowingSlots, got.Step)
	require.Len(t, got.CandidateSlots, 1)

	// Mutating the returned copy must not affect the stored session.
	got.Step = StepCompleted
	again, err := store.Get(ctx, "+549115555")
	require.NoError(t, err)
	assert.Equal(t, StepShowingSlots, again.Step)

	require.NoError(t, store.Delete(ctx, "+549115555"))
	_, err = store.Get(ctx, "+549115555")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	store := NewMemorySessionStore(30 * time.Minute)
	defer store.Close()
	ctx := context.Background()

	current := time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	require.NoError(t, store.Put(ctx, sampleSession("+549115555")))

	current = current.Add(29 * time.Minute)
	_, err := store.Get(ctx, "+549115555")
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)
	_, err = store.Get(ctx, "+549115555")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStoreJanitorEvicts(t *testing.T) {
	store := NewMemorySessionStore(30 * time.Minute)
	defer store.Close()
	ctx := context.Background()

	current := time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	require.NoError(t, store.Put(ctx, sampleSession("+549115555")))
	current = current.Add(time.Hour)
	store.evictExpired()

	store.mu.Lock()
	remaining := len(store.sessions)
	store.mu.Unlock()
	assert.Zero(t, remaining)
}

func TestRedisSessionStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisSessionStore(client, 30*time.Minute)
	ctx := context.Background()

	_, err := store.Get(ctx, "+549115555")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	session := sampleSession("+549115555")
	session.SelectedSlot = &session.CandidateSlots[0]
	require.NoError(t, store.Put(ctx, session))

	got, err := store.Get(ctx, "+549115555")
	require.NoError(t, err)
	assert.Equal(t, session.PatientID, got.PatientID)
	require.NotNil(t, got.SelectedSlot)
	assert.True(t, got.SelectedSlot.Start.Equal(session.CandidateSlots[0].Start))

	// Sessions expire after the configured TTL.
	mr.FastForward(31 * time.Minute)
	_, err = store.Get(ctx, "+549115555")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Put(ctx, session))
	require.NoError(t, store.Delete(ctx, "+549115555"))
	_, err = store.Get(ctx, "+549115555")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
