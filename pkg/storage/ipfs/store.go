// Copyright © 2018 One Concern

// Package ipfs stores encrypted blocks as raw blocks of an IPFS node.
//
// Blocks are addressed by a CIDv1 with the raw codec and a blake2b-256 multihash, which
// is the block reference. Any IPFS node holding the block can serve it.
package ipfs

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	shell "github.com/ipfs/go-ipfs-api"
	"github.com/multiformats/go-multiaddr"
	"github.com/multiformats/go-multihash"
	"github.com/oneconcern/eris/pkg/errors"
	"github.com/oneconcern/eris/pkg/eris"
	"github.com/oneconcern/eris/pkg/storage"
	"github.com/oneconcern/eris/pkg/storage/status"
	"go.uber.org/zap"
)

// Blake2b256 is the multihash code of blake2b with a 32 bytes digest
const Blake2b256 = multihash.BLAKE2B_MIN + 31

// DefaultEndpoint is the default address of the IPFS HTTP API
const DefaultEndpoint = "/ip4/127.0.0.1/tcp/5001"

var (
	_ eris.BlockStore    = &Store{}
	_ storage.BlockHaser = &Store{}
)

// CID returns the content identifier of a block on IPFS
func CID(ref eris.Reference) (cid.Cid, error) {
	mh, err := multihash.Encode(ref[:], Blake2b256)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// ReferenceFromCID extracts a block reference from a raw blake2b-256 CID
func ReferenceFromCID(c cid.Cid) (eris.Reference, error) {
	var ref eris.Reference
	if c.Type() != cid.Raw {
		return ref, status.ErrInvalidResource.WrapMessage("not a raw block cid: " + c.String())
	}
	decoded, err := multihash.Decode(c.Hash())
	if err != nil {
		return ref, status.ErrInvalidResource.Wrap(err)
	}
	if decoded.Code != Blake2b256 || len(decoded.Digest) != eris.ReferenceSize {
		return ref, status.ErrInvalidResource.WrapMessage("not a blake2b-256 cid: " + c.String())
	}
	copy(ref[:], decoded.Digest)
	return ref, nil
}

// Option configures the IPFS store
type Option func(*Store)

// Logger specifies a logger for this store
func Logger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.l = l
		}
	}
}

// Timeout bounds every call to the IPFS API
func Timeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

// Offline only looks up blocks held by the node, without querying the network
func Offline(enabled bool) Option {
	return func(s *Store) {
		s.offline = enabled
	}
}

// Store talks to the HTTP API of an IPFS node
type Store struct {
	endpoint string
	timeout  time.Duration
	offline  bool
	sh       *shell.Shell
	l        *zap.Logger
}

// New builds a block store on an IPFS node. The endpoint is either a multiaddr or a host:port / URL.
func New(endpoint string, opts ...Option) (*Store, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if strings.HasPrefix(endpoint, "/") {
		if _, err := multiaddr.NewMultiaddr(endpoint); err != nil {
			return nil, status.ErrInvalidResource.Wrap(err)
		}
	}

	s := &Store{
		endpoint: endpoint,
		timeout:  time.Minute,
		l:        zap.NewNop(),
	}
	for _, apply := range opts {
		apply(s)
	}
	s.sh = shell.NewShellWithClient(endpoint, &http.Client{Timeout: s.timeout})
	return s, nil
}

func (s *Store) String() string {
	return "ipfs:" + s.endpoint
}

// Put a block on the node, then check the CID it was stored under
func (s *Store) Put(ctx context.Context, ref eris.Reference, block []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	expected, err := CID(ref)
	if err != nil {
		return err
	}

	key, err := s.sh.BlockPut(block, "raw", "blake2b-256", eris.ReferenceSize)
	if err != nil {
		return toSentinelErrors(err)
	}
	actual, err := cid.Decode(key)
	if err != nil {
		return status.ErrStorageAPI.Wrap(err)
	}
	if !actual.Equals(expected) {
		s.l.Warn("ipfs stored block under an unexpected cid",
			zap.Stringer("expected", expected), zap.Stringer("actual", actual))
		return status.ErrCorrupted.WrapMessage(ref.String())
	}
	return nil
}

// Get a block from the node
func (s *Store) Get(ctx context.Context, ref eris.Reference) ([]byte, error) {
	c, err := CID(ref)
	if err != nil {
		return nil, err
	}
	req := s.sh.Request("block/get", c.String())
	if s.offline {
		req = req.Option("offline", true)
	}
	resp, err := req.Send(ctx)
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	defer func() { _ = resp.Close() }()
	if resp.Error != nil {
		return nil, toSentinelErrors(resp.Error)
	}

	block, err := io.ReadAll(io.LimitReader(resp.Output, storage.MaxBlockSize+1))
	if err != nil {
		return nil, err
	}
	if len(block) > storage.MaxBlockSize {
		return nil, status.ErrObjectTooBig.WrapMessage(ref.String())
	}
	return block, nil
}

// Has tells if the node holds a block
func (s *Store) Has(ctx context.Context, ref eris.Reference) (bool, error) {
	c, err := CID(ref)
	if err != nil {
		return false, err
	}
	var stat struct {
		Key  string
		Size int
	}
	err = s.sh.Request("block/stat", c.String()).Option("offline", true).Exec(ctx, &stat)
	if err != nil {
		err = toSentinelErrors(err)
		if errors.Is(err, status.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func toSentinelErrors(err error) error {
	var shellErr *shell.Error
	if errors.As(err, &shellErr) {
		msg := strings.ToLower(shellErr.Message)
		if strings.Contains(msg, "not found") {
			return status.ErrNotFound.Wrap(err)
		}
		return status.ErrStorageAPI.Wrap(err)
	}
	return err
}
