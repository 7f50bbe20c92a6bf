// Copyright © 2018 One Concern

package eris

const padMarker = 0x80

// Pad appends a 0x80 marker to buf, then zeros up to the next multiple of blockSize.
//
// At least one byte is always added: a buffer which length is already a multiple of
// blockSize gains a full block of padding.
func Pad(buf []byte, blockSize int) []byte {
	n := (len(buf)/blockSize + 1) * blockSize
	padded := make([]byte, n)
	copy(padded, buf)
	padded[len(buf)] = padMarker
	return padded
}

// Unpad removes the trailing zeros and the 0x80 marker added by Pad.
//
// The returned slice shares its underlying array with buf.
func Unpad(buf []byte, blockSize int) ([]byte, error) {
	if len(buf) == 0 || len(buf)%blockSize != 0 {
		return nil, &FormatError{Reason: "padded content is not a multiple of the block size"}
	}
	for i := len(buf) - 1; i >= 0; i-- {
		switch buf[i] {
		case 0:
			continue
		case padMarker:
			return buf[:i], nil
		default:
			return nil, &FormatError{Reason: "unknown padding marker"}
		}
	}
	return nil, &FormatError{Reason: "padding marker not found"}
}
