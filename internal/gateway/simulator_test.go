package gateway

import (
	"context"
	"testing"

	pkgerrors "github.com/moynul/taptosell-server/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestSimulator_Initiate(t *testing.T) {
	ctx := context.Background()

	t.Run("successful payment moves balance", func(t *testing.T) {
		sim := NewSimulator(0)
		sim.SetBalance("255700000001", 10000)

		res, err := sim.Initiate(ctx, "255700000001", "255700000002", 500, "p2p", "ref-1")
		assert.NoError(t, err)
		assert.Equal(t, "success", res.Status)
		assert.NotEmpty(t, res.TransactionID)

		bal, err := sim.CheckBalance(ctx, "255700000001")
		assert.NoError(t, err)
		assert.Equal(t, int64(9500), bal.Amount)

		bal, err = sim.CheckBalance(ctx, "255700000002")
		assert.NoError(t, err)
		assert.Equal(t, int64(500), bal.Amount)
	})

	t.Run("repeat with same idempotency key replays result", func(t *testing.T) {
		sim := NewSimulator(0)
		sim.SetBalance("255700000001", 10000)

		first, err := sim.Initiate(ctx, "255700000001", "255700000002", 500, "p2p", "ref-2")
		assert.NoError(t, err)
		second, err := sim.Initiate(ctx, "255700000001", "255700000002", 500, "p2p", "ref-2")
		assert.NoError(t, err)
		assert.Equal(t, first.TransactionID, second.TransactionID)

		// balance debited exactly once
		bal, err := sim.CheckBalance(ctx, "255700000001")
		assert.NoError(t, err)
		assert.Equal(t, int64(9500), bal.Amount)
	})

	t.Run("insufficient funds rejected", func(t *testing.T) {
		sim := NewSimulator(0)
		sim.SetBalance("255700000001", 100)

		_, err := sim.Initiate(ctx, "255700000001", "255700000002", 500, "p2p", "ref-3")
		assert.ErrorIs(t, err, pkgerrors.ErrGatewayRejected)
	})

	t.Run("scripted outcomes consumed in order", func(t *testing.T) {
		sim := NewSimulator(0)
		sim.SetBalance("255700000001", 10000)
		sim.ScriptOutcome("255700000001", pkgerrors.ErrGatewayUnavailable, pkgerrors.ErrGatewayUnavailable)

		_, err := sim.Initiate(ctx, "255700000001", "255700000002", 500, "p2p", "ref-4")
		assert.ErrorIs(t, err, pkgerrors.ErrGatewayUnavailable)
		_, err = sim.Initiate(ctx, "255700000001", "255700000002", 500, "p2p", "ref-4")
		assert.ErrorIs(t, err, pkgerrors.ErrGatewayUnavailable)
		res, err := sim.Initiate(ctx, "255700000001", "255700000002", 500, "p2p", "ref-4")
		assert.NoError(t, err)
		assert.Equal(t, "success", res.Status)
	})
}

func TestSimulator_Verify(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator(0)
	sim.SetBalance("255700000001", 10000)

	t.Run("unknown reference", func(t *testing.T) {
		v, err := sim.Verify(ctx, "ref-missing")
		assert.NoError(t, err)
		assert.False(t, v.Verified)
		assert.Equal(t, "unknown", v.Status)
	})

	t.Run("completed payment verifies", func(t *testing.T) {
		_, err := sim.Initiate(ctx, "255700000001", "255700000002", 500, "p2p", "ref-5")
		assert.NoError(t, err)

		v, err := sim.Verify(ctx, "ref-5")
		assert.NoError(t, err)
		assert.True(t, v.Verified)
		assert.Equal(t, "success", v.Status)
	})
}
