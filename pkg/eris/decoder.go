// Copyright © 2018 One Concern

package eris

import (
	"context"
	"fmt"
	"io"

	"github.com/oneconcern/eris/pkg/errors"
	"github.com/oneconcern/eris/pkg/storage/status"
	"go.uber.org/zap"
)

// Decoder walks the tree of a read capability and yields the decrypted content.
//
// Blocks are fetched depth-first: the children of a node are fetched only once the node itself
// has been fetched, verified against its reference and decrypted. The decoder keeps one node per
// level of the tree, plus one leaf held back until the next one is known, because only the last
// leaf is padded.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	opts       options
	capability ReadCapability
	store      BlockGetter

	stack   []frame
	started bool
	pending []byte
	out     []byte
	done    bool
	err     error
}

type frame struct {
	level int
	node  []byte
	slot  int
}

// NewDecoder prepares the decoding of a read capability, fetching blocks from store
func NewDecoder(c ReadCapability, store BlockGetter, opts ...Option) (*Decoder, error) {
	if _, err := Arity(c.BlockSize); err != nil {
		return nil, err
	}
	if c.Level < 0 || c.Level > MaxLevel {
		return nil, &FormatError{Reason: "level out of range"}
	}

	o := applyOptions(opts)
	o.blockSize = c.BlockSize
	return &Decoder{
		opts:       o,
		capability: c,
		store:      store,
		stack:      make([]frame, 0, c.Level),
	}, nil
}

// Next decodes the next chunk of content. It returns false at the end of the content, or on error.
func (d *Decoder) Next(ctx context.Context) bool {
	for {
		if d.done || d.err != nil {
			return false
		}

		leaf, ok := d.nextLeaf(ctx)
		if d.err != nil {
			return false
		}

		if !ok {
			d.done = true
			return d.unpadLast()
		}

		previous := d.pending
		d.pending = leaf
		if previous != nil {
			d.out = previous
			return true
		}
	}
}

// Bytes returns the content decoded by the last call to Next.
//
// The slice is only valid until the next call to Next.
func (d *Decoder) Bytes() []byte {
	return d.out
}

// Err returns the error which stopped the decoding, if any
func (d *Decoder) Err() error {
	return d.err
}

// Reader exposes the decoded content as an io.Reader
func (d *Decoder) Reader(ctx context.Context) io.Reader {
	return &decoderReader{ctx: ctx, d: d}
}

func (d *Decoder) unpadLast() bool {
	if d.pending == nil {
		d.err = &FormatError{Reason: "tree holds no content"}
		return false
	}
	content, err := Unpad(d.pending, d.capability.BlockSize)
	d.pending = nil
	if err != nil {
		d.err = err
		return false
	}
	d.opts.m.capability(opDecode)
	if len(content) == 0 {
		return false
	}
	d.out = content
	return true
}

// nextLeaf yields the next decrypted leaf, or false when the walk is complete
func (d *Decoder) nextLeaf(ctx context.Context) ([]byte, bool) {
	if !d.started {
		d.started = true
		root, err := d.fetch(ctx, d.capability.Root, d.capability.Level)
		if err != nil {
			d.err = err
			return nil, false
		}
		if d.capability.Level == 0 {
			return root, true
		}
		d.stack = append(d.stack, frame{level: d.capability.Level, node: root})
	}

	arity := d.capability.Arity()
	for len(d.stack) > 0 {
		top := &d.stack[len(d.stack)-1]
		if top.slot >= arity {
			d.stack = d.stack[:len(d.stack)-1]
			continue
		}

		slot := top.node[top.slot*PairSize : (top.slot+1)*PairSize]
		if isAllZero(slot[:ReferenceSize]) {
			// no more children in this node
			d.stack = d.stack[:len(d.stack)-1]
			continue
		}
		top.slot++

		level := top.level - 1
		block, err := d.fetch(ctx, pairFromSlot(slot), level)
		if err != nil {
			d.err = err
			return nil, false
		}
		if level == 0 {
			return block, true
		}
		d.stack = append(d.stack, frame{level: level, node: block})
	}
	return nil, false
}

// fetch retrieves a block, verifies it against its reference and decrypts it
func (d *Decoder) fetch(ctx context.Context, pair ReferenceKeyPair, level int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	block, err := d.store.Get(ctx, pair.Reference)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return nil, &NotFoundError{Reference: pair.Reference, Err: err}
		}
		return nil, err
	}
	if block == nil {
		return nil, &NotFoundError{Reference: pair.Reference}
	}

	verified := VerifyBlock(pair.Reference, block)
	if len(block) != d.capability.BlockSize {
		if verified {
			// an authentic block of another size: the capability names the wrong block class
			return nil, &FormatError{Reason: fmt.Sprintf(
				"block of %d bytes does not match the block size %d of the read capability",
				len(block), d.capability.BlockSize)}
		}
		d.corrupted(pair.Reference)
		return nil, &IntegrityError{Reference: pair.Reference, Reason: "unexpected block size"}
	}
	if !verified {
		d.corrupted(pair.Reference)
		return nil, &IntegrityError{Reference: pair.Reference, Reason: "hash mismatch"}
	}

	d.opts.m.block(opDecode, level, len(block))
	return DecryptBlock(block, pair.Key), nil
}

func (d *Decoder) corrupted(ref Reference) {
	d.opts.m.corruptedBlock()
	d.opts.l.Warn("corrupted block", zap.Stringer("reference", ref))
}

type decoderReader struct {
	ctx context.Context
	d   *Decoder
	buf []byte
}

func (r *decoderReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if !r.d.Next(r.ctx) {
			if err := r.d.Err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		r.buf = r.d.Bytes()
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
