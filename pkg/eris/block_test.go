// Copyright © 2018 One Concern

package eris

import (
	"testing"

	"github.com/oneconcern/eris/internal/rand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptBlock(t *testing.T) {
	t.Parallel()
	plaintext := rand.Bytes(BlockSize1KiB)

	ciphertext, pair := EncryptBlock(plaintext, Secret{})
	require.Len(t, ciphertext, BlockSize1KiB)
	assert.NotEqual(t, plaintext, ciphertext)
	assert.Equal(t, Hash(ciphertext), pair.Reference)
	assert.True(t, VerifyBlock(pair.Reference, ciphertext))

	again, pairAgain := EncryptBlock(plaintext, Secret{})
	assert.Equal(t, ciphertext, again, "encryption must be deterministic")
	assert.Equal(t, pair, pairAgain)

	assert.Equal(t, plaintext, DecryptBlock(ciphertext, pair.Key))
}

func TestEncryptBlockSecrets(t *testing.T) {
	t.Parallel()
	plaintext := rand.Bytes(BlockSize1KiB)

	var other Secret
	other[0] = 1

	c1, p1 := EncryptBlock(plaintext, Secret{})
	c2, p2 := EncryptBlock(plaintext, other)
	assert.NotEqual(t, p1.Key, p2.Key)
	assert.NotEqual(t, p1.Reference, p2.Reference)
	assert.NotEqual(t, c1, c2)
	assert.Equal(t, plaintext, DecryptBlock(c2, p2.Key))
}

func TestVerifyBlock(t *testing.T) {
	t.Parallel()
	ciphertext, pair := EncryptBlock(rand.Bytes(BlockSize1KiB), Secret{})
	ciphertext[100] ^= 0x01
	assert.False(t, VerifyBlock(pair.Reference, ciphertext))
}

func TestIsAllZero(t *testing.T) {
	assert.True(t, isAllZero(nil))
	assert.True(t, isAllZero(zeroPair[:]))
	assert.False(t, isAllZero([]byte{0, 0, 1}))
}
