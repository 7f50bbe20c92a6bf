// Copyright © 2018 One Concern

package eris

import (
	"context"
	"io"

	"go.uber.org/zap"
)

// Encoder splits content in encrypted blocks and builds the tree of their references.
//
// Blocks are pulled one at a time with Next, in the order they must be stored: leaves as the content is
// read, and each internal node as soon as it is full. Once Next returns false, and if Err is nil, Capability
// yields the read capability of the content.
//
// The encoder holds at most one pending node per level, so memory usage does not depend on the size of
// the content. An Encoder is not safe for concurrent use.
type Encoder struct {
	opts  options
	arity int

	chunks *chunker
	stop   func()

	// pending (reference, key) pairs, by level
	levels [][]ReferenceKeyPair
	node   []byte

	queue      []Block
	current    Block
	capability ReadCapability
	done       bool
	err        error

	leaves int
}

// NewEncoder prepares the encoding of some content.
//
// An InvalidArityError is returned if the block size is not supported.
func NewEncoder(content Content, opts ...Option) (*Encoder, error) {
	o := applyOptions(opts)
	arity, err := Arity(o.blockSize)
	if err != nil {
		return nil, err
	}

	r, stop := content.source()
	return &Encoder{
		opts:   o,
		arity:  arity,
		chunks: newChunker(r, o.blockSize),
		stop:   stop,
		levels: [][]ReferenceKeyPair{make([]ReferenceKeyPair, 0, arity)},
		node:   make([]byte, 0, o.blockSize),
	}, nil
}

// Next produces the next block. It returns false when all blocks have been produced, or on error.
func (e *Encoder) Next(ctx context.Context) bool {
	for len(e.queue) == 0 {
		if e.done || e.err != nil {
			return false
		}
		if err := ctx.Err(); err != nil {
			e.fail(err)
			return false
		}
		e.step()
	}

	e.current = e.queue[0]
	e.queue[0] = Block{}
	e.queue = e.queue[1:]
	e.opts.m.block(opEncode, e.current.Level, len(e.current.Data))
	return true
}

// Block returns the block produced by the last call to Next
func (e *Encoder) Block() Block {
	return e.current
}

// Err returns the error which stopped the encoding, if any
func (e *Encoder) Err() error {
	return e.err
}

// Capability returns the read capability of the content, once all blocks have been produced
func (e *Encoder) Capability() ReadCapability {
	return e.capability
}

// Close releases the content source when the encoder is abandoned before completion
func (e *Encoder) Close() error {
	if e.stop != nil {
		e.stop()
		e.stop = nil
	}
	return nil
}

func (e *Encoder) fail(err error) {
	e.err = err
	_ = e.Close()
}

func (e *Encoder) step() {
	plaintext, err := e.chunks.next()
	if err == io.EOF {
		e.finalize()
		return
	}
	if err != nil {
		e.fail(err)
		return
	}
	e.addLeaf(plaintext)
}

func (e *Encoder) addLeaf(plaintext []byte) {
	ciphertext, pair := EncryptBlock(plaintext, e.opts.secret)
	e.queue = append(e.queue, Block{Reference: pair.Reference, Data: ciphertext})
	e.levels[0] = append(e.levels[0], pair)
	e.leaves++
	e.collect(0)
}

// collect closes full nodes, from level up
func (e *Encoder) collect(level int) {
	for ; len(e.levels[level]) == e.arity; level++ {
		e.closeNode(level)
	}
}

// closeNode builds an internal node from the pairs pending at level, filling the unused slots with zeros.
// The resulting pair is pushed one level up.
func (e *Encoder) closeNode(level int) {
	node := e.node[:0]
	for _, pair := range e.levels[level] {
		node = pair.appendTo(node)
	}
	for len(node) < e.opts.blockSize {
		node = append(node, zeroPair[:]...)
	}
	e.levels[level] = e.levels[level][:0]

	ciphertext, pair := EncryptBlock(node, e.opts.secret)
	e.queue = append(e.queue, Block{Reference: pair.Reference, Data: ciphertext, Level: level + 1})

	if level+1 == len(e.levels) {
		e.levels = append(e.levels, make([]ReferenceKeyPair, 0, e.arity))
	}
	e.levels[level+1] = append(e.levels[level+1], pair)
}

// top is the highest level holding pending pairs
func (e *Encoder) top() int {
	for level := len(e.levels) - 1; level > 0; level-- {
		if len(e.levels[level]) > 0 {
			return level
		}
	}
	return 0
}

// finalize closes the partially filled nodes left once the content is exhausted, until a single root remains
func (e *Encoder) finalize() {
	defer func() { _ = e.Close() }()

	for level := 0; ; level++ {
		pending := e.levels[level]
		if level == e.top() && len(pending) == 1 {
			if level > MaxLevel {
				e.err = &FormatError{Reason: "content too large for a read capability"}
				return
			}
			e.capability = ReadCapability{
				BlockSize: e.opts.blockSize,
				Level:     level,
				Root:      pending[0],
			}
			e.done = true
			e.opts.m.capability(opEncode)
			e.opts.l.Debug("content encoded",
				zap.Stringer("root", e.capability.Root.Reference),
				zap.Int("level", level),
				zap.Int("leaves", e.leaves),
				zap.Int("block_size", e.opts.blockSize),
			)
			return
		}
		if len(pending) > 0 {
			e.closeNode(level)
		}
	}
}
