// Copyright © 2018 One Concern

// Package storage provides the stores of encrypted blocks.
//
// Object stores implement the Store interface, a simple key/value model. NewBlocks adapts any Store to
// the eris.BlockStore interface, naming objects after the base32 reference of the blocks.
//
// This package supports the following object stores:
//   - in memory (memory)
//   - local file system (localfs)
//   - S3 (sthree)
//   - GCS (gcs)
//   - Azure blob storage (azure)
//   - badger embedded database (bdgr)
//
// Some backends address blocks directly and implement eris.BlockStore:
//   - PostgreSQL (postgres)
//   - IPFS (ipfs)
//   - HTTP block gateway (httpstore)
//
// Block stores may be combined: mirrored writes (Multi), skipping duplicate writes (Dedup),
// copying the blocks of some content to another store (Replicate).
package storage
