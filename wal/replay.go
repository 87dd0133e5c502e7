package wal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

var (
	ErrBadCRC        = errors.New("wal: crc mismatch")
	ErrSeqOutOfOrder = errors.New("wal: sequence out of order")
	ErrTornSegment   = errors.New("wal: torn frame before final segment")
)

// Replay walks every segment in seq order and hands each record to fn,
// returning the highest sequence seen. A torn frame at the tail of the
// FINAL segment is treated as end of log; anywhere else it means a
// sealed segment lost data, and replay fails rather than skip over the
// hole. Sequences must be strictly increasing across the whole log.
func Replay(dir string, fn func(*Record) error) (uint64, error) {
	files, err := filepath.Glob(filepath.Join(dir, "segment-*.wal"))
	if err != nil {
		return 0, err
	}
	sort.Strings(files)

	var lastSeq uint64
	for i, path := range files {
		final := i == len(files)-1
		if err := replaySegment(path, final, &lastSeq, fn); err != nil {
			return lastSeq, err
		}
	}
	return lastSeq, nil
}

func replaySegment(path string, final bool, lastSeq *uint64, fn func(*Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for {
		rec, err := readRecord(f)
		if err == io.EOF {
			return nil
		}
		if err == io.ErrUnexpectedEOF {
			if final {
				// Torn tail write, everything before it is intact.
				return nil
			}
			return fmt.Errorf("replay %s: %w", filepath.Base(path), ErrTornSegment)
		}
		if err != nil {
			return fmt.Errorf("replay %s: %w", filepath.Base(path), err)
		}
		if *lastSeq != 0 && rec.Seq <= *lastSeq {
			return fmt.Errorf("%w: %d after %d in %s",
				ErrSeqOutOfOrder, rec.Seq, *lastSeq, filepath.Base(path))
		}
		*lastSeq = rec.Seq
		if err := fn(rec); err != nil {
			return err
		}
	}
}

func readRecord(r io.Reader) (*Record, error) {
	header := make([]byte, 21)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	payloadLen := binary.BigEndian.Uint32(header[17:21])

	rest := make([]byte, payloadLen+4)
	if _, err := io.ReadFull(r, rest); err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	sum := binary.BigEndian.Uint32(rest[payloadLen:])
	frame := append(header, rest[:payloadLen]...)
	if !CRC32Valid(frame, sum) {
		return nil, ErrBadCRC
	}

	return &Record{
		Type: RecordType(header[0]),
		Seq:  binary.BigEndian.Uint64(header[1:9]),
		Time: int64(binary.BigEndian.Uint64(header[9:17])),
		Data: rest[:payloadLen],
	}, nil
}
