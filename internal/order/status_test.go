package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		actor    Actor
		ok       bool
	}{
		{StatusPending, StatusCancelled, ActorCustomer, true},
		{StatusProcessing, StatusCancelled, ActorCustomer, false},
		{StatusShipped, StatusCancelled, ActorCustomer, false},
		{StatusPending, StatusProcessing, ActorCustomer, false},

		{StatusPending, StatusProcessing, ActorAdmin, true},
		{StatusProcessing, StatusShipped, ActorAdmin, true},
		{StatusShipped, StatusDelivered, ActorAdmin, true},
		{StatusShipped, StatusCancelled, ActorAdmin, true},
		{StatusShipped, StatusPending, ActorAdmin, true},
		{StatusPending, StatusDelivered, ActorAdmin, true},

		{StatusDelivered, StatusShipped, ActorAdmin, false},
		{StatusDelivered, StatusCancelled, ActorAdmin, false},
		{StatusCancelled, StatusPending, ActorAdmin, false},
		{StatusPending, StatusPending, ActorAdmin, false},
		{StatusPending, Status("refunded"), ActorAdmin, false},
	}
	for _, tt := range tests {
		err := CheckTransition(tt.from, tt.to, tt.actor)
		if tt.ok {
			assert.NoError(t, err, "%s -> %s", tt.from, tt.to)
		} else {
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", tt.from, tt.to)
		}
	}
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus("shipped")
	assert.True(t, ok)
	assert.Equal(t, StatusShipped, st)

	_, ok = ParseStatus("canceled")
	assert.False(t, ok)
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(ErrEmptyCart))
	assert.True(t, IsValidation(&InsufficientStockError{ProductID: "p"}))
	assert.True(t, IsValidation(&ProductNotFoundError{ProductID: "p"}))
	assert.False(t, IsValidation(ErrNotFound))
	assert.False(t, IsValidation(assert.AnError))
}
