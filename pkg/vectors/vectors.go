// Copyright © 2018 One Concern

// Package vectors generates and verifies JSON test vectors for the block encoding.
//
// A vector holds some content, the parameters used to encode it, the expected read capability and
// every expected block. Binary fields use unpadded upper case base32.
package vectors

import (
	"bytes"
	"context"
	"encoding/base32"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/oneconcern/eris/internal/rand"
	"github.com/oneconcern/eris/pkg/errors"
	"github.com/oneconcern/eris/pkg/eris"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// ErrMismatch is returned when an encoding does not reproduce a vector
var ErrMismatch = errors.New("vector mismatch")

// Vector is a test vector
type Vector struct {
	ID                int               `json:"id"`
	Description       string            `json:"description"`
	Content           string            `json:"content"`
	ConvergenceSecret string            `json:"convergence-secret"`
	BlockSize         int               `json:"block-size"`
	ReadCapability    Capability        `json:"read-capability"`
	URN               string            `json:"urn"`
	Blocks            map[string]string `json:"blocks"`
}

// Capability is the expanded read capability of a vector
type Capability struct {
	BlockSize     int    `json:"block-size"`
	Level         int    `json:"level"`
	RootReference string `json:"root-reference"`
	RootKey       string `json:"root-key"`
}

func encode(b []byte) string {
	return b32.EncodeToString(b)
}

func decode(s string) ([]byte, error) {
	return b32.DecodeString(strings.ToUpper(s))
}

// Generate a vector by encoding content
func Generate(ctx context.Context, id int, description string, content []byte, secret eris.Secret, blockSize int) (Vector, error) {
	c, blocks, err := eris.EncodeToMap(ctx, eris.Bytes(content), eris.WithBlockSize(blockSize), eris.WithConvergenceSecret(secret))
	if err != nil {
		return Vector{}, err
	}

	v := Vector{
		ID:                id,
		Description:       description,
		Content:           encode(content),
		ConvergenceSecret: encode(secret[:]),
		BlockSize:         blockSize,
		ReadCapability: Capability{
			BlockSize:     c.BlockSize,
			Level:         c.Level,
			RootReference: encode(c.Root.Reference[:]),
			RootKey:       encode(c.Root.Key[:]),
		},
		URN:    c.String(),
		Blocks: make(map[string]string, len(blocks)),
	}
	for ref, block := range blocks {
		v.Blocks[encode(ref[:])] = encode(block)
	}
	return v, nil
}

// Standard generates the reference suite of vectors. The content is pseudo-random but reproducible.
func Standard(ctx context.Context) ([]Vector, error) {
	var secret eris.Secret
	copy(secret[:], rand.Seeded(42, eris.SecretSize))

	fixtures := []struct {
		description string
		content     []byte
		secret      eris.Secret
		blockSize   int
	}{
		{"empty content", nil, eris.Secret{}, eris.BlockSize1KiB},
		{"short text", []byte("Hello world!"), eris.Secret{}, eris.BlockSize1KiB},
		{"one byte short of a 1KiB block", rand.Seeded(1, eris.BlockSize1KiB-1), eris.Secret{}, eris.BlockSize1KiB},
		{"exactly one 1KiB block, padded into two", rand.Seeded(2, eris.BlockSize1KiB), eris.Secret{}, eris.BlockSize1KiB},
		{"full level 1 node of 1KiB blocks", rand.Seeded(3, 16*eris.BlockSize1KiB-1), eris.Secret{}, eris.BlockSize1KiB},
		{"two levels of 1KiB blocks", rand.Seeded(4, 20*eris.BlockSize1KiB), eris.Secret{}, eris.BlockSize1KiB},
		{"short text with a convergence secret", []byte("Hello world!"), secret, eris.BlockSize1KiB},
		{"100KiB in 32KiB blocks", rand.Seeded(5, 100*1024), eris.Secret{}, eris.BlockSize32KiB},
		{"100KiB in 32KiB blocks with a convergence secret", rand.Seeded(5, 100*1024), secret, eris.BlockSize32KiB},
	}

	vectors := make([]Vector, 0, len(fixtures))
	for i, fixture := range fixtures {
		v, err := Generate(ctx, i, fixture.description, fixture.content, fixture.secret, fixture.blockSize)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}

// Verify re-encodes the content of a vector and checks the read capability and every block,
// then decodes the content back from the vector's blocks.
func Verify(ctx context.Context, v Vector) error {
	content, err := decode(v.Content)
	if err != nil {
		return ErrMismatch.Wrap(fmt.Errorf("vector %d: content: %w", v.ID, err))
	}
	rawSecret, err := decode(v.ConvergenceSecret)
	if err != nil || (len(rawSecret) != 0 && len(rawSecret) != eris.SecretSize) {
		return ErrMismatch.WrapMessage(fmt.Sprintf("vector %d: invalid convergence secret", v.ID))
	}
	var secret eris.Secret
	copy(secret[:], rawSecret)

	actual, err := Generate(ctx, v.ID, v.Description, content, secret, v.BlockSize)
	if err != nil {
		return err
	}
	if actual.URN != v.URN {
		return ErrMismatch.WrapMessage(fmt.Sprintf("vector %d: expected urn %s, got %s", v.ID, v.URN, actual.URN))
	}
	if actual.ReadCapability != v.ReadCapability {
		return ErrMismatch.WrapMessage(fmt.Sprintf("vector %d: read capability differs", v.ID))
	}
	if len(actual.Blocks) != len(v.Blocks) {
		return ErrMismatch.WrapMessage(fmt.Sprintf("vector %d: expected %d blocks, got %d", v.ID, len(v.Blocks), len(actual.Blocks)))
	}

	store := make(eris.BlockMap, len(v.Blocks))
	for _, ref := range sortedKeys(v.Blocks) {
		if actual.Blocks[ref] != v.Blocks[ref] {
			return ErrMismatch.WrapMessage(fmt.Sprintf("vector %d: block %s differs", v.ID, ref))
		}
		parsed, err := eris.ParseReference(ref)
		if err != nil {
			return ErrMismatch.Wrap(err)
		}
		block, err := decode(v.Blocks[ref])
		if err != nil {
			return ErrMismatch.Wrap(err)
		}
		_ = store.Put(ctx, parsed, block)
	}

	decoded, err := eris.DecodeToBytes(ctx, v.URN, store)
	if err != nil {
		return err
	}
	if !bytes.Equal(decoded, content) {
		return ErrMismatch.WrapMessage(fmt.Sprintf("vector %d: decoded content differs", v.ID))
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Write a vector as indented JSON
func Write(w io.Writer, v Vector) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Read a JSON vector
func Read(r io.Reader) (Vector, error) {
	var v Vector
	err := json.NewDecoder(r).Decode(&v)
	return v, err
}

// ReadFile reads a JSON vector from a file
func ReadFile(path string) (Vector, error) {
	f, err := os.Open(path)
	if err != nil {
		return Vector{}, err
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}

// WriteFile writes a JSON vector to a file
func WriteFile(path string, v Vector) error {
	var buf bytes.Buffer
	if err := Write(&buf, v); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}
