// Copyright © 2018 One Concern

package eris

import (
	"fmt"
	"strings"
)

const (
	// BlockSize1KiB is the small block size, for content of a few kilobytes
	BlockSize1KiB = 1024

	// BlockSize32KiB is the large block size
	BlockSize32KiB = 32 * 1024

	// URNPrefix prefixes the text representation of read capabilities
	URNPrefix = "urn:erisx2:"

	// CapabilitySize is the size of the binary representation of a read capability
	CapabilitySize = 2 + ReferenceSize + KeySize

	// MaxLevel is the highest level that fits in a read capability
	MaxLevel = 255
)

const (
	class1KiB  byte = 0
	class32KiB byte = 1
)

// Arity yields the number of (reference, key) pairs held by an internal node of this block size
func Arity(blockSize int) (int, error) {
	switch blockSize {
	case BlockSize1KiB, BlockSize32KiB:
		return blockSize / PairSize, nil
	default:
		return 0, &InvalidArityError{BlockSize: blockSize}
	}
}

// ReadCapability holds everything needed to fetch and decrypt some encoded content:
// the block size, the level of the root node and the reference and key of the root node.
type ReadCapability struct {
	BlockSize int
	Level     int
	Root      ReferenceKeyPair
}

// Arity of the internal nodes of the tree
func (c ReadCapability) Arity() int {
	return c.BlockSize / PairSize
}

// MarshalBinary lays out the capability as class | level | root reference | root key
func (c ReadCapability) MarshalBinary() ([]byte, error) {
	var class byte
	switch c.BlockSize {
	case BlockSize1KiB:
		class = class1KiB
	case BlockSize32KiB:
		class = class32KiB
	default:
		return nil, &InvalidArityError{BlockSize: c.BlockSize}
	}
	if c.Level < 0 || c.Level > MaxLevel {
		return nil, &FormatError{Reason: fmt.Sprintf("level %d out of range", c.Level)}
	}

	buf := make([]byte, 0, CapabilitySize)
	buf = append(buf, class, byte(c.Level))
	return c.Root.appendTo(buf), nil
}

// UnmarshalBinary reads the binary layout of a read capability
func (c *ReadCapability) UnmarshalBinary(data []byte) error {
	if len(data) != CapabilitySize {
		return &FormatError{Reason: fmt.Sprintf("read capability has invalid size of %d, expected %d", len(data), CapabilitySize)}
	}

	var blockSize int
	switch data[0] {
	case class1KiB:
		blockSize = BlockSize1KiB
	case class32KiB:
		blockSize = BlockSize32KiB
	default:
		return &FormatError{Reason: fmt.Sprintf("unknown block size class %d", data[0])}
	}

	*c = ReadCapability{
		BlockSize: blockSize,
		Level:     int(data[1]),
		Root:      pairFromSlot(data[2:]),
	}
	return nil
}

// MarshalText renders the capability as a URN
func (c ReadCapability) MarshalText() ([]byte, error) {
	b, err := c.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return []byte(URNPrefix + encoding.EncodeToString(b)), nil
}

// UnmarshalText reads a read capability URN
func (c *ReadCapability) UnmarshalText(text []byte) error {
	s := string(text)
	if !strings.HasPrefix(s, URNPrefix) {
		return &FormatError{Reason: "read capability must start with " + URNPrefix}
	}
	payload := strings.ToLower(strings.TrimPrefix(s, URNPrefix))
	b, err := encoding.DecodeString(payload)
	if err != nil {
		return &FormatError{Reason: "invalid read capability encoding", Err: err}
	}
	if encoding.EncodeToString(b) != payload {
		return &FormatError{Reason: "non-canonical read capability encoding"}
	}
	return c.UnmarshalBinary(b)
}

// String renders the capability as a URN, or as an empty string if it is not valid
func (c ReadCapability) String() string {
	text, err := c.MarshalText()
	if err != nil {
		return ""
	}
	return string(text)
}

// EncodeCapability renders the root of a tree as a read capability URN
func EncodeCapability(arity, level int, ref Reference, key Key) (string, error) {
	c := ReadCapability{
		BlockSize: arity * PairSize,
		Level:     level,
		Root:      ReferenceKeyPair{Reference: ref, Key: key},
	}
	text, err := c.MarshalText()
	if err != nil {
		return "", err
	}
	return string(text), nil
}

// ParseCapability reads a read capability URN
func ParseCapability(urn string) (ReadCapability, error) {
	var c ReadCapability
	if err := c.UnmarshalText([]byte(urn)); err != nil {
		return ReadCapability{}, err
	}
	return c, nil
}
