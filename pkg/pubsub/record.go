package pubsub

import (
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// Record is one stream record as delivered in a trigger event. Data carries
// the base64 text exactly as it appears on the wire; the provider SDK types
// decode it eagerly, which would hide malformed input from callers, so the
// raw form is kept.
type Record struct {
	Kinesis struct {
		Data string `json:"data"`
	} `json:"kinesis"`
}

// DecodeData base64-decodes a record payload, additionally decompressing it
// when compressed. Malformed input fails with a decode error.
func DecodeData(data string, compressed bool) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("could not decode record data: %w", err)
	}
	if !compressed {
		return string(raw), nil
	}

	zr, err := gzip.NewReader(strings.NewReader(string(raw)))
	if err != nil {
		return "", fmt.Errorf("could not decompress record data: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("could not decompress record data: %w", err)
	}
	return string(out), nil
}

// DecodeRecord decodes one record's payload.
func DecodeRecord(r Record, compressed bool) (string, error) {
	return DecodeData(r.Kinesis.Data, compressed)
}

// DecodeRecords decodes every record, applying transform to each decoded
// payload when given. The first failure aborts.
func DecodeRecords(records []Record, compressed bool, transform func(string) string) ([]string, error) {
	out := make([]string, 0, len(records))
	for i, r := range records {
		s, err := DecodeRecord(r, compressed)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if transform != nil {
			s = transform(s)
		}
		out = append(out, s)
	}
	return out, nil
}
