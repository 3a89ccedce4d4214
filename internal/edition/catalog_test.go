package edition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFixedEditions(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		code      string
		seatLimit int64
		storageTB float64
	}{
		{"M", 5, 1},
		{"L", 10, 2.5},
		{"XL", 20, 5},
		{"XXL", 30, 10},
	}
	for _, tc := range tests {
		spec, err := catalog.Resolve(tc.code, false, nil)
		require.NoError(t, err, tc.code)
		assert.Equal(t, tc.seatLimit, spec.SeatLimit)
		assert.Equal(t, tc.storageTB, spec.StorageTB)
	}
}

func TestResolveNormalizesCode(t *testing.T) {
	catalog := DefaultCatalog()

	spec, err := catalog.Resolve(" xl ", false, nil)
	require.NoError(t, err)
	assert.Equal(t, "XL", spec.Code)
}

func TestResolveTrialOverridesEdition(t *testing.T) {
	catalog := DefaultCatalog()

	spec, err := catalog.Resolve("XXL", true, nil)
	require.NoError(t, err)
	assert.Equal(t, CodeTrial, spec.Code)
	assert.Equal(t, int64(3), spec.SeatLimit)
	assert.InDelta(t, 0.1, spec.StorageTB, 1e-9)
}

func TestResolveFlexFromLineItems(t *testing.T) {
	catalog := DefaultCatalog()

	spec, err := catalog.Resolve("FLEX", false, []LineItem{
		{Unit: UnitUserPerLicense, Quantity: 12},
		{Unit: UnitGigabyte, Quantity: 2500},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), spec.SeatLimit)
	assert.InDelta(t, 2.5, spec.StorageTB, 1e-9)
}

func TestResolveFlexWithoutSeatsFails(t *testing.T) {
	catalog := DefaultCatalog()

	_, err := catalog.Resolve("FLEX", false, []LineItem{
		{Unit: UnitGigabyte, Quantity: 1000},
	})
	assert.Error(t, err)
}

func TestResolveUnknownEdition(t *testing.T) {
	catalog := DefaultCatalog()

	_, err := catalog.Resolve("MEGA", false, nil)
	assert.ErrorIs(t, err, ErrUnknownEdition)
}
