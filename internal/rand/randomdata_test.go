// Copyright © 2018 One Concern

package rand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLetterBytes(t *testing.T) {
	name := LetterBytes(20)
	require.Len(t, name, 20)
	for _, b := range name {
		assert.True(t, (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9'), "unexpected letter %q", b)
	}
}

func TestSeeded(t *testing.T) {
	assert.Equal(t, Seeded(42, 100), Seeded(42, 100))
	assert.NotEqual(t, Seeded(42, 100), Seeded(43, 100))
}

func benchmarkBytes(b *testing.B, size int) {
	for n := 0; n < b.N; n++ {
		_ = Bytes(size)
	}
}

func BenchmarkBytes1024(b *testing.B)    { benchmarkBytes(b, 1024) }
func BenchmarkBytes32768(b *testing.B)   { benchmarkBytes(b, 32768) }
func BenchmarkBytes1000000(b *testing.B) { benchmarkBytes(b, 1000000) }
