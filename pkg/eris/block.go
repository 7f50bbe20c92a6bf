// Copyright © 2018 One Concern

package eris

// Block is an encrypted block produced by an Encoder.
//
// Level 0 blocks are leaves holding content. Blocks at a higher level are internal nodes.
type Block struct {
	Reference Reference
	Data      []byte
	Level     int
}

// EncryptBlock performs the convergent encryption of a plaintext block.
//
// The key is derived from the plaintext and the convergence secret, and the reference is the hash
// of the resulting ciphertext. The same plaintext and secret always yield the same ciphertext,
// reference and key.
func EncryptBlock(plaintext []byte, secret Secret) ([]byte, ReferenceKeyPair) {
	key := keyedHash(plaintext, secret)
	ciphertext := make([]byte, len(plaintext))
	streamCipher(ciphertext, plaintext, key)
	return ciphertext, ReferenceKeyPair{Reference: Hash(ciphertext), Key: key}
}

// DecryptBlock reverses EncryptBlock. It does not check that the ciphertext matches its reference.
func DecryptBlock(ciphertext []byte, key Key) []byte {
	plaintext := make([]byte, len(ciphertext))
	streamCipher(plaintext, ciphertext, key)
	return plaintext
}

// VerifyBlock checks that a block hashes to the expected reference
func VerifyBlock(ref Reference, block []byte) bool {
	computed := Hash(block)
	return constantTimeEqual(computed[:], ref[:])
}
