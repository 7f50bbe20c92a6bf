// Copyright © 2018 One Concern

package eris

import (
	"encoding/base32"
	"fmt"
	"strings"
)

const (
	// ReferenceSize is the size of a block reference
	ReferenceSize = 32

	// KeySize is the size of a block key
	KeySize = 32

	// PairSize is the serialized size of a (reference, key) pair in an internal node
	PairSize = ReferenceSize + KeySize

	// SecretSize is the size of a convergence secret
	SecretSize = 32
)

// encoding is unpadded RFC 4648 base32, with a lower case alphabet
var encoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// Reference is the hash of an encrypted block, used to address it in a store
type Reference [ReferenceSize]byte

// ParseReference reads a base32 encoded reference
func ParseReference(s string) (Reference, error) {
	var ref Reference
	b, err := encoding.DecodeString(strings.ToLower(s))
	if err != nil {
		return ref, &FormatError{Reason: "invalid reference encoding", Err: err}
	}
	if len(b) != ReferenceSize {
		return ref, &FormatError{Reason: fmt.Sprintf("reference has invalid size of %d, expected %d", len(b), ReferenceSize)}
	}
	copy(ref[:], b)
	return ref, nil
}

func (r Reference) String() string {
	return encoding.EncodeToString(r[:])
}

// IsZero tells if this reference is the all-zero sentinel
func (r Reference) IsZero() bool {
	return isAllZero(r[:])
}

// MarshalText renders the reference as base32
func (r Reference) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText reads a base32 reference
func (r *Reference) UnmarshalText(text []byte) error {
	ref, err := ParseReference(string(text))
	if err != nil {
		return err
	}
	*r = ref
	return nil
}

// Key decrypts the block whose reference was derived from its ciphertext.
//
// Keys are secret material: they don't have a text representation and should not be logged.
type Key [KeySize]byte

// ReferenceKeyPair is the unit stored in internal nodes
type ReferenceKeyPair struct {
	Reference Reference
	Key       Key
}

// appendTo serializes the pair as reference followed by key
func (p ReferenceKeyPair) appendTo(buf []byte) []byte {
	buf = append(buf, p.Reference[:]...)
	return append(buf, p.Key[:]...)
}

func pairFromSlot(slot []byte) ReferenceKeyPair {
	var p ReferenceKeyPair
	copy(p.Reference[:], slot[:ReferenceSize])
	copy(p.Key[:], slot[ReferenceSize:PairSize])
	return p
}

// Secret is the convergence secret mixed into the derivation of every block key.
//
// Encoding the same content with different secrets produces unlinkable blocks.
// The zero value is the default, public secret.
type Secret [SecretSize]byte

// ParseSecret reads a base32 encoded convergence secret. An empty string yields the zero secret.
func ParseSecret(s string) (Secret, error) {
	var secret Secret
	if s == "" {
		return secret, nil
	}
	b, err := encoding.DecodeString(strings.ToLower(s))
	if err != nil {
		return secret, &FormatError{Reason: "invalid convergence secret encoding", Err: err}
	}
	if len(b) != SecretSize {
		return secret, &FormatError{Reason: fmt.Sprintf("convergence secret has invalid size of %d, expected %d", len(b), SecretSize)}
	}
	copy(secret[:], b)
	return secret, nil
}

// Encode renders the secret as base32
func (s Secret) Encode() string {
	return encoding.EncodeToString(s[:])
}
