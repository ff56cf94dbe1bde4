// Copyright 2026 The statetrace Authors
// This file is part of the statetrace library.
//
// The statetrace library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The statetrace library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the statetrace library. If not, see <http://www.gnu.org/licenses/>.

package mpt

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode is returned when raw node bytes cannot be decoded into a
	// well-formed trie node.
	ErrDecode = errors.New("malformed trie node")

	// ErrBadPrefix is returned when the hex-prefix byte of a short node
	// does not describe a valid extension or leaf encoding. It wraps
	// ErrDecode so callers can match either.
	ErrBadPrefix = fmt.Errorf("%w: invalid hex prefix", ErrDecode)

	// ErrConflict is returned when two distinct byte encodings are supplied
	// for the same node hash. This indicates a corrupted input snapshot,
	// not a recoverable condition.
	ErrConflict = errors.New("conflicting encodings for node hash")

	// ErrInconsistentClaim is returned when two independently supplied
	// proofs disagree about the value claimed for the same account or
	// storage slot, or when a verified leaf does not carry the claimed
	// value.
	ErrInconsistentClaim = errors.New("inconsistent claim")

	// ErrIncompleteAccountLeaf is returned when an account leaf payload
	// does not carry all four mandatory fields (nonce, balance, storage
	// root, code hash).
	ErrIncompleteAccountLeaf = errors.New("incomplete account leaf")

	// ErrPathMismatch is returned when a claimed path cannot be walked to a
	// well-formed terminal: the path ends inside an extension, or a leaf
	// consumes a different number of nibbles than remain. A clean
	// divergence is not a mismatch, it is a proof of absence.
	ErrPathMismatch = errors.New("path mismatch")

	// ErrRootMismatch is returned when the recomputed hash of a proof node
	// does not tie the walked paths to the expected root. All claims share
	// one root, so this invalidates the whole proof.
	ErrRootMismatch = errors.New("root mismatch")

	// ErrMissingNode is returned when a node referenced by hash along a
	// claimed path is absent from the store, breaking path completeness.
	ErrMissingNode = errors.New("missing proof node")

	// ErrDanglingNode is returned by Finalize when the store contains a
	// node that is unreachable from every registered claim.
	ErrDanglingNode = errors.New("dangling proof node")

	// ErrFrozen is returned when inserting into a store that has already
	// been frozen for the read phase.
	ErrFrozen = errors.New("store is frozen")
)
