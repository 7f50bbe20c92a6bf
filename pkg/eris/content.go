// Copyright © 2018 One Concern

package eris

import (
	"bytes"
	"io"
	"iter"
	"strings"

	"github.com/oneconcern/eris/pkg/errors"
)

type contentKind uint8

const (
	kindBytes contentKind = iota
	kindText
	kindReader
	kindSequence
)

// Content is the input of an encoding: a byte slice, a string, a reader or a lazy sequence of byte chunks.
//
// The zero value is empty content.
type Content struct {
	kind contentKind
	data []byte
	text string
	r    io.Reader
	seq  iter.Seq2[[]byte, error]
}

// Bytes content
func Bytes(data []byte) Content {
	return Content{kind: kindBytes, data: data}
}

// Text content, encoded as UTF-8
func Text(text string) Content {
	return Content{kind: kindText, text: text}
}

// Reader content, consumed until io.EOF
func Reader(r io.Reader) Content {
	return Content{kind: kindReader, r: r}
}

// Sequence content, made of chunks of any size. The sequence stops at the first error.
func Sequence(seq iter.Seq2[[]byte, error]) Content {
	return Content{kind: kindSequence, seq: seq}
}

// source resolves the content as a reader. The returned function releases the source.
func (c Content) source() (io.Reader, func()) {
	switch c.kind {
	case kindText:
		return strings.NewReader(c.text), func() {}
	case kindReader:
		if c.r == nil {
			return bytes.NewReader(nil), func() {}
		}
		return c.r, func() {}
	case kindSequence:
		if c.seq == nil {
			return bytes.NewReader(nil), func() {}
		}
		next, stop := iter.Pull2(c.seq)
		return &sequenceReader{next: next}, stop
	default:
		return bytes.NewReader(c.data), func() {}
	}
}

type sequenceReader struct {
	next  func() ([]byte, error, bool)
	chunk []byte
	err   error
}

func (r *sequenceReader) Read(p []byte) (int, error) {
	for len(r.chunk) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		chunk, err, ok := r.next()
		switch {
		case !ok:
			r.err = io.EOF
		case err != nil:
			r.err = err
		default:
			r.chunk = chunk
		}
	}
	n := copy(p, r.chunk)
	r.chunk = r.chunk[n:]
	return n, nil
}

// chunker splits a source in blocks of a fixed size. Only the final block is padded.
type chunker struct {
	r         io.Reader
	blockSize int
	buf       []byte
	done      bool
}

func newChunker(r io.Reader, blockSize int) *chunker {
	return &chunker{
		r:         r,
		blockSize: blockSize,
		buf:       make([]byte, blockSize),
	}
}

// next yields the next plaintext block, or io.EOF once the padded block has been returned.
//
// The returned slice is only valid until the next call.
func (c *chunker) next() ([]byte, error) {
	if c.done {
		return nil, io.EOF
	}
	n, err := io.ReadFull(c.r, c.buf)
	switch {
	case err == nil:
		return c.buf, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		c.done = true
		return Pad(c.buf[:n], c.blockSize), nil
	default:
		return nil, err
	}
}
