// Copyright © 2018 One Concern

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/oneconcern/eris/internal/rand"
	"github.com/oneconcern/eris/pkg/errors"
	"github.com/oneconcern/eris/pkg/eris"
	"github.com/oneconcern/eris/pkg/storage"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"
)

const sample = `
log:
  level: debug
  format: json
encoding:
  blockSize: 1KiB
store:
  type: memory
mirrors:
  - type: local
    local:
      path: %s
    tolerateFailure: true
dedup:
  enabled: true
  expected: 1000
gateway:
  port: 9090
`

func writeSample(t *testing.T) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "eris.yaml")
	content := []byte(fmt.Sprintf(sample, filepath.Join(dir, "mirror")))
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(viper.New(), writeSample(t))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, StoreMemory, cfg.Store.Type)
	require.Len(t, cfg.Mirrors, 1)
	assert.Equal(t, StoreLocal, cfg.Mirrors[0].Type)
	assert.True(t, cfg.Mirrors[0].TolerateFailure)
	assert.True(t, cfg.Dedup.Enabled)
	assert.Equal(t, uint(1000), cfg.Dedup.Expected)
	assert.Equal(t, 9090, cfg.Gateway.Port)
	assert.Equal(t, "localhost", cfg.Gateway.Host, "defaults fill the gaps")

	size, err := cfg.BlockSize()
	require.NoError(t, err)
	assert.Equal(t, eris.BlockSize1KiB, size)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ERIS_STORE_TYPE", "badger")
	t.Setenv("ERIS_STORE_BADGER_PATH", "/tmp/blocks")
	t.Setenv("ERIS_ENCODING_BLOCKSIZE", "32k")

	cfg, err := Load(viper.New(), writeSample(t))
	require.NoError(t, err)
	assert.Equal(t, StoreBadger, cfg.Store.Type)
	assert.Equal(t, "/tmp/blocks", cfg.Store.Badger.Path)
	size, err := cfg.BlockSize()
	require.NoError(t, err)
	assert.Equal(t, eris.BlockSize32KiB, size)
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, Default().Store, cfg.Store)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Encoding.BlockSize = "4KiB"
	cfg.Encoding.Secret = "not base32!"
	cfg.Store.Type = "floppy"
	cfg.Mirrors = []StoreConfig{{Type: StoreS3}, {Type: StoreAzure, Azure: AzureConfig{Container: "c"}}}
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 6)
	for _, e := range multierr.Errors(err) {
		assert.True(t, errors.Is(e, ErrInvalid), "%v", e)
	}
}

func TestSecret(t *testing.T) {
	var secret eris.Secret
	copy(secret[:], rand.Bytes(eris.SecretSize))

	cfg := Default()
	cfg.Encoding.Secret = secret.Encode()
	parsed, err := cfg.Secret()
	require.NoError(t, err)
	assert.Equal(t, secret, parsed)
}

func TestYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Mirrors = []StoreConfig{{Type: StoreHTTP, HTTP: HTTPConfig{URL: "http://localhost:8080"}}}
	path := filepath.Join(t.TempDir(), "sub", "eris.yaml")
	require.NoError(t, cfg.Write(path))

	loaded, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	cfg, err := Load(viper.New(), writeSample(t))
	require.NoError(t, err)

	s, err := OpenStore(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, s.Close()) }()
	require.NotNil(t, s.Dedup)
	assert.IsType(t, &storage.Multi{}, s.BlockStore)

	opts, err := cfg.EncodeOptions(zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	data := rand.Bytes(5000)
	c, err := eris.Encode(ctx, eris.Bytes(data), s, opts...)
	require.NoError(t, err)
	assert.Equal(t, eris.BlockSize1KiB, c.BlockSize)

	decoded, err := eris.DecodeToBytes(ctx, c.String(), s)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)

	mirrored, err := filepath.Glob(filepath.Join(cfg.Mirrors[0].Local.Path, "*"))
	require.NoError(t, err)
	assert.NotEmpty(t, mirrored, "blocks are mirrored on disk")

	has, err := s.Has(ctx, c.Root.Reference)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestOpenStoreBadger(t *testing.T) {
	cfg := Default()
	cfg.Store.Type = StoreBadger
	cfg.Store.Badger.Path = t.TempDir()
	cfg.Trace = true

	s, err := OpenStore(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.Len(t, s.closers, 1)
	assert.NoError(t, s.Close())
}

func TestOpenStoreInvalid(t *testing.T) {
	cfg := Default()
	cfg.Store.Type = StoreGCS
	_, err := OpenStore(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
}
