package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func variant(id string, price int64) Variant {
	return Variant{ID: id, ProductID: "p-" + id, Color: ColorBlack, Size: SizeM, Price: decimal.NewFromInt(price)}
}

func assertTotalInvariant(t *testing.T, o *Order) {
	t.Helper()
	assert.True(t, o.TotalPrice.Equal(o.ComputeTotal()), "total %s != computed %s", o.TotalPrice, o.ComputeTotal())
}

func TestOrder_AddVariantAggregatesQuantity(t *testing.T) {
	now := time.Now()
	cart := NewCart("u1")
	v1 := variant("v1", 150)

	for i := 0; i < 5; i++ {
		require.NoError(t, cart.AddVariant(v1, now))
		assertTotalInvariant(t, cart)
	}

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.True(t, cart.TotalPrice.Equal(decimal.NewFromInt(750)))
	assert.Equal(t, "p-v1", cart.Items[0].ProductID)
}

func TestOrder_AddVariantKeepsCapturedPrice(t *testing.T) {
	now := time.Now()
	cart := NewCart("u1")
	v1 := variant("v1", 150)
	require.NoError(t, cart.AddVariant(v1, now))

	v1.Price = decimal.NewFromInt(999)
	require.NoError(t, cart.AddVariant(v1, now))

	require.Len(t, cart.Items, 1)
	assert.True(t, cart.Items[0].Price.Equal(decimal.NewFromInt(150)))
	assert.True(t, cart.TotalPrice.Equal(decimal.NewFromInt(300)))
}

func TestOrder_RemoveVariant(t *testing.T) {
	now := time.Now()
	cart := NewCart("u1")
	require.NoError(t, cart.AddVariant(variant("v1", 150), now))
	require.NoError(t, cart.AddVariant(variant("v1", 150), now))
	require.NoError(t, cart.AddVariant(variant("v2", 20), now))

	require.NoError(t, cart.RemoveVariant("v1", now))
	assertTotalInvariant(t, cart)
	assert.Len(t, cart.Items, 2)

	require.NoError(t, cart.RemoveVariant("v1", now))
	assertTotalInvariant(t, cart)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "v2", cart.Items[0].VariantID)

	assert.ErrorIs(t, cart.RemoveVariant("v1", now), ErrNotFound)

	require.NoError(t, cart.RemoveVariant("v2", now))
	assert.True(t, cart.IsEmpty())
	assert.True(t, cart.TotalPrice.IsZero())
	assert.ErrorIs(t, cart.RemoveVariant("v2", now), ErrEmptyCart)
}

func TestOrder_CompleteIsTerminal(t *testing.T) {
	now := time.Now()
	cart := NewCart("u1")
	require.NoError(t, cart.AddVariant(variant("v1", 10), now))
	require.NoError(t, cart.MarkPaid(now))
	total := cart.TotalPrice

	assert.ErrorIs(t, cart.AddVariant(variant("v1", 10), now), ErrInvalidState)
	assert.ErrorIs(t, cart.RemoveVariant("v1", now), ErrInvalidState)
	assert.ErrorIs(t, cart.MarkPaid(now), ErrInvalidState)
	assert.ErrorIs(t, cart.MarkPaymentFailed(now), ErrInvalidState)
	assert.ErrorIs(t, cart.Reopen(now), ErrInvalidState)
	assert.True(t, cart.TotalPrice.Equal(total))
}

func TestOrder_PaymentFailureCanBeReopened(t *testing.T) {
	now := time.Now()
	cart := NewCart("u1")
	require.NoError(t, cart.AddVariant(variant("v1", 10), now))
	require.NoError(t, cart.MarkPaymentFailed(now))
	assert.Equal(t, StatusPayment, cart.Status)

	assert.ErrorIs(t, cart.AddVariant(variant("v1", 10), now), ErrInvalidState)

	require.NoError(t, cart.Reopen(now))
	require.NoError(t, cart.AddVariant(variant("v1", 10), now))
	assert.Equal(t, 2, cart.ItemCount())
	assertTotalInvariant(t, cart)
}

func TestOrder_ColorAndSizeValidation(t *testing.T) {
	assert.True(t, ColorRed.Valid())
	assert.False(t, Color("Blue").Valid())
	assert.True(t, SizeL.Valid())
	assert.False(t, Size("XL").Valid())
}
