// Copyright © 2018 One Concern

// Package gateway serves encrypted blocks over HTTP.
//
// Routes:
//
//	GET  /blocks/{ref}               fetch a block
//	PUT  /blocks/{ref}               store a block, which must hash to ref
//	GET  /uri-res/N2R?urn:blake2b:{ref}  fetch a block by URN (RFC 2169)
//	GET  /healthz
//	GET  /metrics
//
// References are the base32 encoding used in read capabilities. The gateway never sees keys:
// it stores and serves ciphertext only.
package gateway
