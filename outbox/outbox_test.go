package outbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestOutbox(t *testing.T) *Outbox {
	t.Helper()
	ob, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { ob.Close() })
	return ob
}

func TestAppendAndScanOrder(t *testing.T) {
	ob := openTestOutbox(t)

	// Appends out of key-insertion convenience order still scan by seq.
	require.NoError(t, ob.Append(2, []byte("b")))
	require.NoError(t, ob.Append(1, []byte("a")))
	require.NoError(t, ob.Append(3, []byte("c")))

	entries, err := ob.ScanPending(10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, uint64(1), entries[0].Seq)
	assert.Equal(t, []byte("a"), entries[0].Payload)
	assert.Equal(t, uint64(3), entries[2].Seq)
	for _, e := range entries {
		assert.Equal(t, StateNew, e.State)
	}
}

func TestScanLimit(t *testing.T) {
	ob := openTestOutbox(t)
	for seq := uint64(1); seq <= 5; seq++ {
		require.NoError(t, ob.Append(seq, []byte{byte(seq)}))
	}
	entries, err := ob.ScanPending(2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDeliveryStates(t *testing.T) {
	ob := openTestOutbox(t)
	require.NoError(t, ob.Append(1, []byte("ev")))

	require.NoError(t, ob.MarkSent(1))
	entries, err := ob.ScanPending(10)
	require.NoError(t, err)
	require.Len(t, entries, 1, "sent but unacked entries stay pending")
	assert.Equal(t, StateSent, entries[0].State)
	assert.Equal(t, []byte("ev"), entries[0].Payload)

	require.NoError(t, ob.MarkAcked(1))
	entries, err = ob.ScanPending(10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTruncateAckedUpTo(t *testing.T) {
	ob := openTestOutbox(t)
	for seq := uint64(1); seq <= 4; seq++ {
		require.NoError(t, ob.Append(seq, []byte{byte(seq)}))
	}
	require.NoError(t, ob.MarkAcked(1))
	require.NoError(t, ob.MarkAcked(3))

	require.NoError(t, ob.TruncateAckedUpTo(3))

	// 2 survives because it is pending, 4 because it is past upTo.
	entries, err := ob.ScanPending(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(2), entries[0].Seq)
	assert.Equal(t, uint64(4), entries[1].Seq)
}

func TestMaxSeq(t *testing.T) {
	ob := openTestOutbox(t)

	seq, err := ob.MaxSeq()
	require.NoError(t, err)
	assert.Zero(t, seq, "empty outbox has no sequence floor")

	require.NoError(t, ob.Append(7, []byte("a")))
	require.NoError(t, ob.Append(3, []byte("b")))

	seq, err = ob.MaxSeq()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), seq)

	// Acked entries still count: the sequence must never be reissued.
	require.NoError(t, ob.MarkAcked(7))
	seq, err = ob.MaxSeq()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), seq)
}

func TestReopenKeepsEntries(t *testing.T) {
	dir := t.TempDir()
	ob, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, ob.Append(1, []byte("persisted")))
	require.NoError(t, ob.Close())

	ob, err = Open(dir)
	require.NoError(t, err)
	defer ob.Close()

	entries, err := ob.ScanPending(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []byte("persisted"), entries[0].Payload)
}
