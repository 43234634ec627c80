package cache

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

const keyPrefix = "embedding:"

func storeKey(sampleID string) string {
	return keyPrefix + sampleID
}

// record is the durable representation of a cache entry.
type record struct {
	Vector   []float64 `msgpack:"v,omitempty"`
	Negative bool      `msgpack:"n,omitempty"`
}

func encodeRecord(r record) ([]byte, error) {
	b, err := msgpack.Marshal(&r)
	if err != nil {
		return nil, fmt.Errorf("encode cache record: %w", err)
	}
	return b, nil
}

func decodeRecord(b []byte) (record, error) {
	var r record
	if err := msgpack.Unmarshal(b, &r); err != nil {
		return record{}, fmt.Errorf("decode cache record: %w", err)
	}
	return r, nil
}
