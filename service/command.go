package service

import (
	"encoding/binary"
	"fmt"

	"vela/domain/book"
)

// WAL payload codecs. Big-endian like the WAL frame itself. These
// formats are internal to the journal; changing them invalidates
// existing logs.

func putString(buf []byte, s string) []byte {
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(s)))
	buf = append(buf, l[:]...)
	return append(buf, s...)
}

func takeString(data []byte) (string, []byte, error) {
	if len(data) < 2 {
		return "", nil, fmt.Errorf("payload truncated")
	}
	n := int(binary.BigEndian.Uint16(data))
	data = data[2:]
	if len(data) < n {
		return "", nil, fmt.Errorf("payload truncated")
	}
	return string(data[:n]), data[n:], nil
}

func putU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func takeU64(data []byte) (uint64, []byte, error) {
	if len(data) < 8 {
		return 0, nil, fmt.Errorf("payload truncated")
	}
	return binary.BigEndian.Uint64(data), data[8:], nil
}

func putI64(buf []byte, v int64) []byte { return putU64(buf, uint64(v)) }

func takeI64(data []byte) (int64, []byte, error) {
	v, rest, err := takeU64(data)
	return int64(v), rest, err
}

func encodeSubmit(o *book.Order) []byte {
	buf := make([]byte, 0, 64+len(o.Account)+len(o.Pair))
	buf = putU64(buf, o.ID)
	buf = putString(buf, o.Account)
	buf = putString(buf, o.Pair)
	buf = append(buf, byte(o.Side), byte(o.Kind), byte(o.TimeInForce))
	buf = putI64(buf, o.Price)
	buf = putI64(buf, o.Original)
	buf = putI64(buf, o.Timestamp)
	buf = putI64(buf, o.ExpiresAt)
	return buf
}

func decodeSubmit(data []byte) (*book.Order, error) {
	o := &book.Order{}
	var err error

	if o.ID, data, err = takeU64(data); err != nil {
		return nil, err
	}
	if o.Account, data, err = takeString(data); err != nil {
		return nil, err
	}
	if o.Pair, data, err = takeString(data); err != nil {
		return nil, err
	}
	if len(data) < 3 {
		return nil, fmt.Errorf("payload truncated")
	}
	o.Side = book.Side(data[0])
	o.Kind = book.Kind(data[1])
	o.TimeInForce = book.TimeInForce(data[2])
	data = data[3:]

	if o.Price, data, err = takeI64(data); err != nil {
		return nil, err
	}
	if o.Original, data, err = takeI64(data); err != nil {
		return nil, err
	}
	if o.Timestamp, data, err = takeI64(data); err != nil {
		return nil, err
	}
	if o.ExpiresAt, data, err = takeI64(data); err != nil {
		return nil, err
	}
	if len(data) != 0 {
		return nil, fmt.Errorf("trailing bytes in submit payload")
	}
	return o, nil
}

func encodeCancel(id uint64, account string) []byte {
	buf := make([]byte, 0, 10+len(account))
	buf = putU64(buf, id)
	return putString(buf, account)
}

func decodeCancel(data []byte) (uint64, string, error) {
	id, data, err := takeU64(data)
	if err != nil {
		return 0, "", err
	}
	account, data, err := takeString(data)
	if err != nil {
		return 0, "", err
	}
	if len(data) != 0 {
		return 0, "", fmt.Errorf("trailing bytes in cancel payload")
	}
	return id, account, nil
}

func encodeExpire(now int64) []byte {
	return putI64(nil, now)
}

func decodeExpire(data []byte) (int64, error) {
	now, data, err := takeI64(data)
	if err != nil {
		return 0, err
	}
	if len(data) != 0 {
		return 0, fmt.Errorf("trailing bytes in expire payload")
	}
	return now, nil
}
