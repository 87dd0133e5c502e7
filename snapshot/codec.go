// Package snapshot serializes order books into a deterministic byte
// representation and restores them bit-for-bit equivalent in
// structure. Component order is fixed: order storage, then the two
// side lists level by level with queue order preserved, then the L1
// cache (persisted, and cross-checked on load). A truncated or
// corrupt snapshot fails the whole restore; no partial book is ever
// produced.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"vela/domain/book"
)

var magic = [4]byte{'V', 'E', 'L', 'A'}

const version uint16 = 1

// Encode writes st into the versioned, CRC-framed snapshot layout.
// All integers are little-endian.
func Encode(st *book.State) []byte {
	var body bytes.Buffer

	writeString(&body, st.Pair)
	writeU64(&body, st.Seq)

	writeU32(&body, uint32(len(st.Orders)))
	for i := range st.Orders {
		writeOrder(&body, &st.Orders[i])
	}
	for _, side := range [][]book.LevelState{st.Bids, st.Asks} {
		writeU32(&body, uint32(len(side)))
		for _, lvl := range side {
			writeI64(&body, lvl.Price)
			writeI64(&body, lvl.Volume)
			writeU32(&body, uint32(len(lvl.IDs)))
			for _, id := range lvl.IDs {
				writeU64(&body, id)
			}
		}
	}
	writeI64(&body, st.L1.BidPrice)
	writeI64(&body, st.L1.BidVolume)
	writeI64(&body, st.L1.AskPrice)
	writeI64(&body, st.L1.AskVolume)
	writeI64(&body, st.L1.LastTrade)

	out := make([]byte, 0, len(magic)+2+body.Len()+4)
	out = append(out, magic[:]...)
	out = binary.LittleEndian.AppendUint16(out, version)
	out = append(out, body.Bytes()...)
	out = binary.LittleEndian.AppendUint32(out, crc32.ChecksumIEEE(out))
	return out
}

// Decode parses data back into a State. Magic, version, CRC, and
// structural bounds are all verified; every failure wraps
// book.ErrCorruption.
func Decode(data []byte) (*book.State, error) {
	if len(data) < len(magic)+2+4 {
		return nil, corrupt("snapshot truncated: %d bytes", len(data))
	}
	if !bytes.Equal(data[:4], magic[:]) {
		return nil, corrupt("bad magic %x", data[:4])
	}
	sum := binary.LittleEndian.Uint32(data[len(data)-4:])
	if crc32.ChecksumIEEE(data[:len(data)-4]) != sum {
		return nil, corrupt("checksum mismatch")
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != version {
		return nil, corrupt("snapshot version %d, want %d", v, version)
	}

	r := &reader{buf: data[6 : len(data)-4]}
	st := &book.State{}
	st.Pair = r.string()
	st.Seq = r.u64()

	n := r.u32()
	if r.err == nil && uint64(n) > uint64(len(r.buf)) {
		return nil, corrupt("order count %d exceeds payload", n)
	}
	st.Orders = make([]book.Order, 0, n)
	for i := uint32(0); i < n && r.err == nil; i++ {
		st.Orders = append(st.Orders, r.order())
	}
	for _, side := range []*[]book.LevelState{&st.Bids, &st.Asks} {
		levels := r.u32()
		for i := uint32(0); i < levels && r.err == nil; i++ {
			lvl := book.LevelState{Price: r.i64(), Volume: r.i64()}
			ids := r.u32()
			if r.err == nil && uint64(ids)*8 > uint64(len(r.buf)) {
				return nil, corrupt("id count %d exceeds payload", ids)
			}
			lvl.IDs = make([]uint64, 0, ids)
			for j := uint32(0); j < ids && r.err == nil; j++ {
				lvl.IDs = append(lvl.IDs, r.u64())
			}
			*side = append(*side, lvl)
		}
	}
	st.L1 = book.L1{
		BidPrice:  r.i64(),
		BidVolume: r.i64(),
		AskPrice:  r.i64(),
		AskVolume: r.i64(),
		LastTrade: r.i64(),
	}
	if r.err != nil {
		return nil, r.err
	}
	if len(r.buf) != 0 {
		return nil, corrupt("%d trailing bytes", len(r.buf))
	}
	return st, nil
}

func writeOrder(w *bytes.Buffer, o *book.Order) {
	writeU64(w, o.ID)
	writeString(w, o.Account)
	w.WriteByte(byte(o.Side))
	w.WriteByte(byte(o.Kind))
	w.WriteByte(byte(o.TimeInForce))
	w.WriteByte(byte(o.Status))
	writeI64(w, o.Price)
	writeI64(w, o.Original)
	writeI64(w, o.Remaining)
	writeI64(w, o.Timestamp)
	writeI64(w, o.ExpiresAt)
}

func writeU64(w *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.Write(b[:])
}

func writeU32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func writeI64(w *bytes.Buffer, v int64) { writeU64(w, uint64(v)) }

func writeString(w *bytes.Buffer, s string) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(len(s)))
	w.Write(b[:])
	w.WriteString(s)
}

type reader struct {
	buf []byte
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < n {
		r.err = corrupt("snapshot truncated")
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) i64() int64 { return int64(r.u64()) }

func (r *reader) byte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) string() string {
	b := r.take(2)
	if b == nil {
		return ""
	}
	return string(r.take(int(binary.LittleEndian.Uint16(b))))
}

func (r *reader) order() book.Order {
	return book.Order{
		ID:          r.u64(),
		Account:     r.string(),
		Side:        book.Side(r.byte()),
		Kind:        book.Kind(r.byte()),
		TimeInForce: book.TimeInForce(r.byte()),
		Status:      book.Status(r.byte()),
		Price:       r.i64(),
		Original:    r.i64(),
		Remaining:   r.i64(),
		Timestamp:   r.i64(),
		ExpiresAt:   r.i64(),
	}
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", book.ErrCorruption, fmt.Sprintf(format, args...))
}
