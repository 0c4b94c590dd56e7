package firmware

import (
	"encoding/binary"
	"fmt"
)

// OutOfRangeError reports a read span that does not fit in the image.
type OutOfRangeError struct {
	Offset int64
	Length int
	Size   int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("firmware: span 0x%X+%d out of range (image size 0x%X)",
		e.Offset, e.Length, e.Size)
}

// WidthError reports an unsupported element width.
type WidthError struct {
	Width int
}

func (e *WidthError) Error() string {
	return fmt.Sprintf("firmware: unsupported width %d bits (want 8, 16 or 32)", e.Width)
}

func byteOrder(littleEndian bool) binary.ByteOrder {
	if littleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Decode decodes a width-bit integer from the start of b.
// Signed values use two's-complement.
func Decode(b []byte, width int, signed, littleEndian bool) (int64, error) {
	switch width {
	case 8, 16, 32:
	default:
		return 0, &WidthError{Width: width}
	}
	n := width / 8
	if len(b) < n {
		return 0, &OutOfRangeError{Offset: 0, Length: n, Size: len(b)}
	}

	order := byteOrder(littleEndian)
	switch width {
	case 8:
		if signed {
			return int64(int8(b[0])), nil
		}
		return int64(b[0]), nil
	case 16:
		v := order.Uint16(b)
		if signed {
			return int64(int16(v)), nil
		}
		return int64(v), nil
	default:
		v := order.Uint32(b)
		if signed {
			return int64(int32(v)), nil
		}
		return int64(v), nil
	}
}

// Encode is the inverse of Decode: it encodes v as a width-bit integer.
// Values are truncated to width bits, so any signed or unsigned value in
// range round-trips through Decode.
func Encode(v int64, width int, littleEndian bool) ([]byte, error) {
	order := byteOrder(littleEndian)
	switch width {
	case 8:
		return []byte{byte(v)}, nil
	case 16:
		b := make([]byte, 2)
		order.PutUint16(b, uint16(v))
		return b, nil
	case 32:
		b := make([]byte, 4)
		order.PutUint32(b, uint32(v))
		return b, nil
	default:
		return nil, &WidthError{Width: width}
	}
}
