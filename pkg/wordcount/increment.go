package wordcount

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// ErrInvalidCount is returned when a stored count is not a UTF-8 decimal number.
var ErrInvalidCount = errors.New("invalid stored count")

// KV is the remote store as seen by a chunk reader.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
}

// Increment adds one to the count stored for word and returns the new count.
//
// It is a plain Get followed by a Set. Two readers that complete the same
// word between each other's Get and Set lose one of the increments; the
// store only makes each call atomic, not the pair.
func Increment(kv KV, word string) (uint64, error) {
	value, ok, err := kv.Get(word)
	if err != nil {
		return 0, fmt.Errorf("get %q: %w", word, err)
	}

	next := uint64(1)
	if ok {
		count, err := ParseCount(value)
		if err != nil {
			return 0, fmt.Errorf("word %q: %w", word, err)
		}
		next = count + 1
	}

	if err := kv.Set(word, FormatCount(next)); err != nil {
		return 0, fmt.Errorf("set %q: %w", word, err)
	}
	return next, nil
}

// ParseCount decodes a stored count.
func ParseCount(value []byte) (uint64, error) {
	if !utf8.Valid(value) {
		return 0, fmt.Errorf("%w: not UTF-8: %x", ErrInvalidCount, value)
	}
	n, err := strconv.ParseUint(string(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCount, value)
	}
	return n, nil
}

// FormatCount encodes a count for storage.
func FormatCount(n uint64) []byte {
	return strconv.AppendUint(nil, n, 10)
}
