// Package wal journals every accepted command before the matching
// engine applies it. Frames are CRC-protected and segments rotate by
// size; segments fully covered by the latest snapshot are truncated.
package wal

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

type Config struct {
	Dir         string
	SegmentSize int64
}

type WAL struct {
	dir      string
	segSize  int64
	current  *segment
	segIndex int
}

func Open(cfg Config) (*WAL, error) {
	if cfg.SegmentSize <= 0 {
		cfg.SegmentSize = 2 * 1024 * 1024
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}

	// Resume appending to the highest existing segment.
	index := 0
	files, err := filepath.Glob(filepath.Join(cfg.Dir, "segment-*.wal"))
	if err != nil {
		return nil, err
	}
	if len(files) > 0 {
		sort.Strings(files)
		last := filepath.Base(files[len(files)-1])
		if _, err := fmt.Sscanf(last, "segment-%06d.wal", &index); err != nil {
			return nil, err
		}
	}

	// A crash can leave a torn frame at the tail of the active
	// segment. Cut it off before appending, or the next frame would
	// land behind garbage and misalign every later read.
	if err := repairSegment(filepath.Join(cfg.Dir, segmentName(index))); err != nil {
		return nil, err
	}

	seg, err := openSegment(cfg.Dir, index)
	if err != nil {
		return nil, err
	}
	return &WAL{
		dir:      cfg.Dir,
		segSize:  cfg.SegmentSize,
		current:  seg,
		segIndex: index,
	}, nil
}

// Append frames and writes one record:
// [type:1][seq:8][time:8][len:4][payload][crc:4], big-endian, with the
// CRC covering header and payload.
func (w *WAL) Append(r *Record) error {
	payloadLen := uint32(len(r.Data))
	buf := make([]byte, 1+8+8+4+payloadLen+4)

	buf[0] = byte(r.Type)
	binary.BigEndian.PutUint64(buf[1:9], r.Seq)
	binary.BigEndian.PutUint64(buf[9:17], uint64(r.Time))
	binary.BigEndian.PutUint32(buf[17:21], payloadLen)
	copy(buf[21:], r.Data)

	crc := CRC32(buf[:21+payloadLen])
	binary.BigEndian.PutUint32(buf[21+payloadLen:], crc)

	if err := w.current.append(buf); err != nil {
		return err
	}
	if w.current.offset >= w.segSize {
		return w.rotate()
	}
	return nil
}

func (w *WAL) Sync() error {
	return w.current.sync()
}

// repairSegment truncates path to the end of its last intact frame.
// Missing files and clean files are left alone.
func repairSegment(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var valid int64
	for {
		rec, err := readRecord(f)
		if err == io.EOF {
			f.Close()
			return nil
		}
		if err != nil {
			break
		}
		valid += int64(21 + len(rec.Data) + 4)
	}
	f.Close()
	return os.Truncate(path, valid)
}

// rotate seals the active segment and opens the next one. The seal
// must be durable; a failed sync here means records the caller already
// considers journaled are at risk, so the error propagates.
func (w *WAL) rotate() error {
	if err := w.current.sync(); err != nil {
		return err
	}
	if err := w.current.close(); err != nil {
		return err
	}
	w.segIndex++

	seg, err := openSegment(w.dir, w.segIndex)
	if err != nil {
		return err
	}
	w.current = seg
	return nil
}

// TruncateBefore removes whole segments whose records are all covered
// by the snapshot at seq. The active segment is never removed.
func (w *WAL) TruncateBefore(seq uint64) error {
	files, err := filepath.Glob(filepath.Join(w.dir, "segment-*.wal"))
	if err != nil {
		return err
	}
	active := w.current.file.Name()
	for _, path := range files {
		if path == active {
			continue
		}
		maxSeq, err := maxSeqInSegment(path)
		if err != nil {
			continue
		}
		if maxSeq <= seq {
			_ = os.Remove(path)
		}
	}
	return nil
}

func (w *WAL) Close() error {
	_ = w.current.sync()
	return w.current.close()
}
