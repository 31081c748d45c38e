package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func workweek(slotMinutes int) Weekly {
	return Weekly{
		SlotMinutes: slotMinutes,
		WorkingHours: []WorkingHours{
			{Day: time.Monday, Start: "09:00", End: "18:00"},
			{Day: time.Wednesday, Start: "14:00", End: "17:30"},
		},
	}
}

// 2026-08-31 is a Monday.
var monday = time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC)

func TestComputeSlotsFullDay(t *testing.T) {
	slots, err := ComputeSlots(workweek(30), monday, nil)
	require.NoError(t, err)
	require.Len(t, slots, 18)

	assert.Equal(t, time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC), slots[0].Start)
	assert.Equal(t, time.Date(2026, time.August, 31, 17, 30, 0, 0, time.UTC), slots[17].Start)
	assert.Equal(t, time.Date(2026, time.August, 31, 18, 0, 0, 0, time.UTC), slots[17].End)
	for i, s := range slots {
		assert.True(t, s.Available, "slot %d should be available", i)
		assert.Equal(t, 30*time.Minute, s.End.Sub(s.Start))
		if i > 0 {
			assert.Equal(t, slots[i-1].End, s.Start, "slots must be contiguous")
		}
	}
}

func TestComputeSlotsBookedExclusion(t *testing.T) {
	booked := BookedSet([]time.Time{
		time.Date(2026, time.August, 31, 10, 30, 0, 0, time.UTC),
	})
	slots, err := ComputeSlots(workweek(30), monday, booked)
	require.NoError(t, err)
	require.Len(t, slots, 18)

	for _, s := range slots {
		if s.Start.Hour() == 10 && s.Start.Minute() == 30 {
			assert.False(t, s.Available, "booked slot must be unavailable")
		} else {
			assert.True(t, s.Available, "slot at %s should stay available", s.Start)
		}
	}
}

func TestComputeSlotsNoScheduleForWeekday(t *testing.T) {
	sunday := monday.AddDate(0, 0, -1)
	slots, err := ComputeSlots(workweek(30), sunday, nil)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestComputeSlotsDropsOverflowingTrailingSlot(t *testing.T) {
	// Wednesday window is 14:00-17:30; 60-minute slots fit three times,
	// the 17:00-18:00 candidate overflows and is dropped.
	wednesday := time.Date(2026, time.September, 2, 0, 0, 0, 0, time.UTC)
	slots, err := ComputeSlots(workweek(60), wednesday, nil)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, 16, slots[2].Start.Hour())
}

func TestComputeSlotsInvalidDuration(t *testing.T) {
	_, err := ComputeSlots(Weekly{SlotMinutes: 0}, monday, nil)
	assert.ErrorIs(t, err, ErrInvalidSlotDuration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		weekly  Weekly
		wantErr error
	}{
		{"valid", workweek(30), nil},
		{"zero duration", Weekly{SlotMinutes: 0}, ErrInvalidSlotDuration},
		{
			"inverted window",
			Weekly{SlotMinutes: 30, WorkingHours: []WorkingHours{{Day: time.Monday, Start: "18:00", End: "09:00"}}},
			ErrInvalidWindow,
		},
		{
			"duplicate weekday",
			Weekly{SlotMinutes: 30, WorkingHours: []WorkingHours{
				{Day: time.Monday, Start: "09:00", End: "12:00"},
				{Day: time.Monday, Start: "14:00", End: "18:00"},
			}},
			ErrDuplicateWeekday,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weekly.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestBookedSetNormalizesSeconds(t *testing.T) {
	booked := BookedSet([]time.Time{
		time.Date(2026, time.August, 31, 9, 0, 42, 0, time.UTC),
	})
	slots, err := ComputeSlots(workweek(30), monday, booked)
	require.NoError(t, err)
	assert.False(t, slots[0].Available)
}
