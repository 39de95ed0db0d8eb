package listing

import (
	"testing"

	"github.com/google/uuid"
	domainErrors "github.com/growshare/marketplace/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ToolsAndPlotsHaveQuantityOne(t *testing.T) {
	l, err := New(uuid.New(), TypeTool, "wheelbarrow", 5, "USD")
	require.NoError(t, err)
	assert.Equal(t, 1, l.Quantity)

	l, err = New(uuid.New(), TypeProduce, "zucchini", 5, "USD")
	require.NoError(t, err)
	assert.Equal(t, 5, l.Quantity)
}

func TestReserve(t *testing.T) {
	l, err := New(uuid.New(), TypeProduce, "eggs", 10, "USD")
	require.NoError(t, err)

	require.NoError(t, l.Reserve(4))
	assert.Equal(t, 6, l.Quantity)
	assert.Equal(t, StatusAvailable, l.Status)

	// Draining the stock flips the listing to sold.
	require.NoError(t, l.Reserve(6))
	assert.Equal(t, 0, l.Quantity)
	assert.Equal(t, StatusSold, l.Status)

	assert.ErrorIs(t, l.Reserve(1), domainErrors.ErrListingUnavailable)
}

func TestReserve_Insufficient(t *testing.T) {
	l, err := New(uuid.New(), TypeProduce, "eggs", 3, "USD")
	require.NoError(t, err)

	assert.ErrorIs(t, l.Reserve(4), domainErrors.ErrInsufficientQuantity)
	assert.Equal(t, 3, l.Quantity, "failed reservation must not decrement")

	assert.Error(t, l.Reserve(0))
}

func TestRestore_ReopensSoldListing(t *testing.T) {
	l, err := New(uuid.New(), TypeProduce, "eggs", 2, "USD")
	require.NoError(t, err)
	require.NoError(t, l.Reserve(2))
	require.Equal(t, StatusSold, l.Status)

	l.Restore(2)
	assert.Equal(t, 2, l.Quantity)
	assert.Equal(t, StatusAvailable, l.Status)
}
