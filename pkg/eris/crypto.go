// Copyright © 2018 One Concern

package eris

import (
	"crypto/subtle"
	"hash"

	blake2b "github.com/minio/blake2b-simd"
	"golang.org/x/crypto/chacha20"
)

// zeroNonce is used for every block: keys are derived from the plaintext, so a key is never reused
// with a different plaintext
var zeroNonce [chacha20.NonceSize]byte

// zeroPair is an empty slot in an internal node
var zeroPair [PairSize]byte

func newHasher(key []byte) hash.Hash {
	h, err := blake2b.New(&blake2b.Config{
		Size: ReferenceSize,
		Key:  key,
	})
	if err != nil {
		// New only fails when the configuration is wrong
		panic(err)
	}
	return h
}

// keyedHash derives the key of a block from its plaintext and the convergence secret
func keyedHash(message []byte, secret Secret) Key {
	h := newHasher(secret[:])
	_, _ = h.Write(message)

	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// Hash computes the reference of a block, i.e. the unkeyed blake2b-256 hash of its ciphertext
func Hash(block []byte) Reference {
	h := newHasher(nil)
	_, _ = h.Write(block)

	var r Reference
	copy(r[:], h.Sum(nil))
	return r
}

// streamCipher XORs src with the chacha20 keystream for this key into dst.
//
// The transform is its own inverse.
func streamCipher(dst, src []byte, key Key) {
	c, err := chacha20.NewUnauthenticatedCipher(key[:], zeroNonce[:])
	if err != nil {
		// only fails on invalid key or nonce sizes
		panic(err)
	}
	c.XORKeyStream(dst, src)
}

func constantTimeEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

func isAllZero(buf []byte) bool {
	var acc byte
	for _, b := range buf {
		acc |= b
	}
	return acc == 0
}
