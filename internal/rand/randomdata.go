// Copyright © 2018 One Concern

// Package rand produces random payloads for tests and benchmarks.
//
// It is not suitable for key material: use crypto/rand for that.
package rand

import (
	"bytes"
	"math/rand"
	"sync"
	"time"
)

// Bytes returns a random slice of bytes
func Bytes(n int) []byte {
	return randBytes(n)
}

// String returns a random string
func String(n int) string {
	return string(randBytes(n))
}

// LetterBytes returns a random slice of bytes picked in the [0-9]|[a-z] range
func LetterBytes(n int) []byte {
	return randLetterBytes(n)
}

// LetterString returns a random string picked in the [0-9]|[a-z] range
func LetterString(n int) string {
	return string(randLetterBytes(n))
}

// Seeded returns a reproducible random slice of bytes
func Seeded(seed int64, n int) []byte {
	buf := make([]byte, n)
	_, _ = rand.New(rand.NewSource(seed)).Read(buf) // #nosec
	return buf
}

var (
	onceSource  sync.Once
	rgen        *rand.Rand
	onceLetters sync.Once
	randMutex   sync.Mutex
	letters     []byte
)

func seed() {
	rgen = rand.New(rand.NewSource(time.Now().UnixNano())) // #nosec
}

func randBytes(n int) []byte {
	onceSource.Do(seed)
	buf := make([]byte, n)
	randMutex.Lock()
	_, _ = rgen.Read(buf)
	randMutex.Unlock()
	return buf
}

func makeLetters() {
	// "a" pads the alphabet over the 256 values of a byte, and is slightly more frequent than other letters
	letters = bytes.Repeat([]byte("abcdefghijklmnopqrstuvwxyz0123456789a"), 7)
}

func randLetterBytes(n int) []byte {
	onceLetters.Do(makeLetters)
	buf := randBytes(n)
	for i, b := range buf {
		buf[i] = letters[b]
	}
	return buf
}
