package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vela/domain/book"
)

func TestSubmitPayloadRoundTrip(t *testing.T) {
	o := &book.Order{
		ID:          42,
		Account:     "alice",
		Pair:        "BTC-USD",
		Side:        book.Ask,
		Kind:        book.Limit,
		Price:       10500,
		Original:    3,
		TimeInForce: book.FOK,
		Timestamp:   1700000000000,
		ExpiresAt:   1700000060000,
	}

	decoded, err := decodeSubmit(encodeSubmit(o))
	require.NoError(t, err)
	assert.Equal(t, o, decoded)
}

func TestSubmitPayloadTruncated(t *testing.T) {
	data := encodeSubmit(&book.Order{ID: 1, Account: "a", Pair: "P", Original: 1, Price: 1})
	for _, n := range []int{0, 7, len(data) - 1} {
		_, err := decodeSubmit(data[:n])
		assert.Error(t, err, "length %d", n)
	}
	_, err := decodeSubmit(append(data, 0x00))
	assert.Error(t, err, "trailing bytes must fail")
}

func TestCancelPayloadRoundTrip(t *testing.T) {
	id, account, err := decodeCancel(encodeCancel(99, "bob"))
	require.NoError(t, err)
	assert.Equal(t, uint64(99), id)
	assert.Equal(t, "bob", account)

	// Empty account means no ownership check; it must survive too.
	id, account, err = decodeCancel(encodeCancel(7, ""))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)
	assert.Empty(t, account)
}

func TestExpirePayloadRoundTrip(t *testing.T) {
	now, err := decodeExpire(encodeExpire(1700000000123))
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000123), now)
}
