package doctors

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionStatusValid(t *testing.T) {
	for _, status := range []SubscriptionStatus{SubscriptionTrial, SubscriptionActive, SubscriptionInactive} {
		assert.True(t, status.Valid(), "status %q", status)
	}
	for _, status := range []SubscriptionStatus{"", "expired", "cancelled", "ACTIVE"} {
		assert.False(t, status.Valid(), "status %q", status)
	}
}

func TestServiceUpdateRejectsUnknownSubscriptionStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	svc := NewService(NewRepository(mock), nil)

	bogus := SubscriptionStatus("expired")
	_, err = svc.Update(context.Background(), uuid.New(), UpdateInput{SubscriptionStatus: &bogus})

	require.ErrorIs(t, err, ErrInvalidSubscriptionStatus)
	// The rejection happens before any SQL runs.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceUpdateAcceptsInactiveStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	doc := &Doctor{
		ID:                 uuid.New(),
		Name:               "Laura Gómez",
		PhoneNumber:        "+5491155550001",
		Schedule:           testSchedule(),
		SubscriptionStatus: SubscriptionActive,
	}
	mock.ExpectQuery("SELECT").
		WithArgs(doc.ID).
		WillReturnRows(doctorRows(t, doc))
	mock.ExpectExec("UPDATE doctors").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			"inactive", pgxmock.AnyArg(), pgxmock.AnyArg(), doc.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	svc := NewService(NewRepository(mock), nil)

	inactive := SubscriptionInactive
	updated, err := svc.Update(context.Background(), doc.ID, UpdateInput{SubscriptionStatus: &inactive})

	require.NoError(t, err)
	assert.Equal(t, SubscriptionInactive, updated.SubscriptionStatus)
}
