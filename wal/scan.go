package wal

import (
	"io"
	"os"
)

// maxSeqInSegment reads a whole segment and returns its highest
// sequence. Used to decide whether a segment is safe to truncate.
func maxSeqInSegment(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var max uint64
	for {
		rec, err := readRecord(f)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return max, nil
		}
		if err != nil {
			return max, err
		}
		if rec.Seq > max {
			max = rec.Seq
		}
	}
}
