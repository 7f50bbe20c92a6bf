// Copyright © 2018 One Concern

// Package eris encodes content into fixed-size encrypted blocks and decodes it back.
//
// Content is split in blocks of a fixed size (1KiB or 32KiB). The last block is padded
// with a 0x80 marker followed by zeros, so that the padding is always reversible.
//
// Each block is encrypted with a key derived from its own plaintext (convergent encryption):
// identical content encoded with the same convergence secret yields identical blocks, which
// deduplicate in any content-addressable store. A block is addressed by the hash of its
// ciphertext, its reference.
//
// The (reference, key) pairs of the blocks are collected in internal nodes of a Merkle tree,
// which are themselves encrypted and stored as blocks. The root of this tree is rendered as
// a read capability:
//
//	urn:erisx2:<base32(class | level | root reference | root key)>
//
// Anyone holding the read capability may fetch the blocks from an untrusted store, verify them
// against their references and decrypt the content.
//
// Encoding and decoding are pull-based: an Encoder yields blocks one at a time as the content
// is read, and a Decoder yields plaintext as blocks are fetched. Memory usage during encoding
// does not depend on the size of the content.
package eris
