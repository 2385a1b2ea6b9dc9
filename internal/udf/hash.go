// Package udf implements the engine's scalar utility functions: value
// hashing, type naming, session introspection, sleep and UUID generation.
// A nil argument yields a nil result.
package udf

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/apache/arrow-go/v18/arrow/decimal128"

	"colbridge/internal/domain"
)

// FNV-1a with the engine's seed. The seed is the 32-bit offset basis, not
// the 64-bit one, so hash/fnv cannot produce the same values.
const (
	fnvSeed    uint64 = 0x811C9DC5
	fnv64Prime uint64 = 1099511628211
)

// julianUnixEpoch is the Julian day number of 1970-01-01.
const julianUnixEpoch = 2440588

func fnvHash64(data []byte, hash uint64) uint64 {
	for _, b := range data {
		hash = (uint64(b) ^ hash) * fnv64Prime
	}
	return hash
}

func hashed(data []byte) *int64 {
	h := int64(fnvHash64(data, fnvSeed))
	return &h
}

// Fixed is the set of fixed-width values FnvHash accepts.
type Fixed interface {
	~bool | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// FnvHash hashes the little-endian bytes of a fixed-width value.
func FnvHash[T Fixed](v *T) *int64 {
	if v == nil {
		return nil
	}
	var buf []byte
	switch x := any(*v).(type) {
	case bool:
		if x {
			buf = []byte{1}
		} else {
			buf = []byte{0}
		}
	case int8:
		buf = []byte{byte(x)}
	case int16:
		buf = binary.LittleEndian.AppendUint16(nil, uint16(x))
	case int32:
		buf = binary.LittleEndian.AppendUint32(nil, uint32(x))
	case int64:
		buf = binary.LittleEndian.AppendUint64(nil, uint64(x))
	case float32:
		buf = binary.LittleEndian.AppendUint32(nil, math.Float32bits(x))
	case float64:
		buf = binary.LittleEndian.AppendUint64(nil, math.Float64bits(x))
	default:
		// Named types fall back to reflection-based encoding.
		var err error
		buf, err = binary.Append(nil, binary.LittleEndian, *v)
		if err != nil {
			return nil
		}
	}
	return hashed(buf)
}

// FnvHashString hashes the bytes of s.
func FnvHashString(s *string) *int64 {
	if s == nil {
		return nil
	}
	return hashed([]byte(*s))
}

// FnvHashTimestamp hashes a timestamp in the engine's 12-byte layout:
// nanoseconds since midnight followed by the Julian day number, both
// little-endian. The timestamp is taken in UTC.
func FnvHashTimestamp(ts *time.Time) *int64 {
	if ts == nil {
		return nil
	}
	t := ts.UTC()
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	day := uint32(midnight.Unix()/86400 + julianUnixEpoch)

	buf := make([]byte, 0, 12)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(t.Sub(midnight).Nanoseconds()))
	buf = binary.LittleEndian.AppendUint32(buf, day)
	return hashed(buf)
}

// Decimal is a decimal value with its declared type.
type Decimal struct {
	Unscaled  decimal128.Num
	Precision int
	Scale     int
}

// FnvHashDecimal hashes only the unscaled value, over the storage width
// implied by the precision. Values of different decimal types are not
// comparable by hash.
func FnvHashDecimal(v *Decimal) *int64 {
	if v == nil {
		return nil
	}
	buf := make([]byte, 0, 16)
	buf = binary.LittleEndian.AppendUint64(buf, v.Unscaled.LowBits())
	buf = binary.LittleEndian.AppendUint64(buf, uint64(v.Unscaled.HighBits()))
	return hashed(buf[:DecimalByteSize(v.Precision)])
}

// DecimalByteSize is the storage width of a decimal of the given precision.
func DecimalByteSize(precision int) int {
	switch {
	case precision <= 9:
		return 4
	case precision <= 18:
		return 8
	default:
		return 16
	}
}

// TypeOf names a column type the way the engine prints it.
func TypeOf(t domain.ColumnType) string {
	return t.String()
}
