package booking

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hotel-pms/hotel-pms/internal/payments"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

func TestTransitionTable(t *testing.T) {
	allowed := map[Status]map[Command]Status{
		StatusPending:   {CommandConfirm: StatusConfirmed, CommandCancel: StatusCancelled},
		StatusConfirmed: {CommandCheckIn: StatusCheckedIn, CommandCancel: StatusCancelled},
		StatusCheckedIn: {CommandComplete: StatusCompleted, CommandCancel: StatusCancelled},
		StatusCompleted: {CommandInvoice: StatusInvoiced},
		StatusInvoiced:  {CommandInvoice: StatusInvoiced},
		StatusCancelled: {},
	}
	commands := []Command{CommandConfirm, CommandCheckIn, CommandComplete, CommandInvoice, CommandCancel}

	for from, next := range allowed {
		for _, cmd := range commands {
			decision, err := Transition(from, cmd)
			want, ok := next[cmd]
			if !ok {
				require.ErrorIs(t, err, shared.ErrState, "%s on %s", cmd, from)
				require.ErrorIs(t, err, ErrInvalidTransition)
				continue
			}
			require.NoError(t, err, "%s on %s", cmd, from)
			require.Equal(t, want, decision.Next, "%s on %s", cmd, from)
		}
	}
}

func TestTransitionEffects(t *testing.T) {
	d, err := Transition(StatusConfirmed, CommandCheckIn)
	require.NoError(t, err)
	require.True(t, d.Has(EffectAllocateInventory))

	d, err = Transition(StatusCheckedIn, CommandComplete)
	require.NoError(t, err)
	require.Equal(t, []Effect{EffectRequireSettlement}, d.Effects)

	d, err = Transition(StatusCheckedIn, CommandCancel)
	require.NoError(t, err)
	require.True(t, d.Has(EffectReleaseInventory))
	require.True(t, d.Has(EffectSoftDelete))

	d, err = Transition(StatusPending, CommandCancel)
	require.NoError(t, err)
	require.False(t, d.Has(EffectReleaseInventory))
	require.True(t, d.Has(EffectSoftDelete))

	d, err = Transition(StatusInvoiced, CommandInvoice)
	require.NoError(t, err)
	require.True(t, d.NoOp)
	require.Empty(t, d.Effects)
}

func TestTransitionUnknownCommand(t *testing.T) {
	_, err := Transition(StatusPending, Command("teleport"))
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("facturada")
	require.NoError(t, err)
	require.Equal(t, StatusInvoiced, s)
	require.True(t, s.Terminal())

	_, err = ParseStatus("archived")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestPaymentPhase(t *testing.T) {
	cases := map[string]payments.Phase{
		"pending":    payments.PhaseOpen,
		"confirmed":  payments.PhaseOpen,
		"checked-in": payments.PhaseOpen,
		"completed":  payments.PhaseSettled,
		"facturada":  payments.PhaseInvoiced,
		"cancelled":  payments.PhaseCancelled,
	}
	for status, want := range cases {
		got, err := PaymentPhase(status)
		require.NoError(t, err)
		require.Equal(t, want, got, status)
	}
	_, err := PaymentPhase("lost")
	require.Error(t, err)
}
