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

// Package stateless packages proven state for re-executing one historical
// block without a node: the multiproof over every touched account and slot,
// the contract codes, and the block hashes the BLOCKHASH opcode may ask for,
// all bound to the parent state root.
package stateless

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/statetrace/statetrace/trie/mpt"
)

// blockHashWindow is the protocol lookback limit of the BLOCKHASH opcode.
const blockHashWindow = 256

// Witness is everything needed to re-execute one block: the finalized
// multiproof against the parent state root, and the hashes of recent
// ancestor blocks. It is immutable.
type Witness struct {
	number      uint64
	proof       *mpt.Multiproof
	blockHashes map[uint64]common.Hash
}

// NewWitness binds a finalized multiproof and a set of ancestor block hashes
// to the block they back. Hash entries outside the protocol lookback window
// of that block are rejected; they could never be served and therefore
// indicate a corrupted builder.
func NewWitness(number uint64, proof *mpt.Multiproof, blockHashes map[uint64]common.Hash) (*Witness, error) {
	hashes := make(map[uint64]common.Hash, len(blockHashes))
	for n, h := range blockHashes {
		if n >= number || number-n > blockHashWindow {
			return nil, fmt.Errorf("%w: hash for block %d in witness for block %d", ErrBlockHashWindow, n, number)
		}
		hashes[n] = h
	}
	return &Witness{number: number, proof: proof, blockHashes: hashes}, nil
}

// Number returns the block this witness backs.
func (w *Witness) Number() uint64 {
	return w.number
}

// Root returns the parent state root every claim commits to.
func (w *Witness) Root() common.Hash {
	return w.proof.Root()
}

// Proof returns the multiproof carried by the witness.
func (w *Witness) Proof() *mpt.Multiproof {
	return w.proof
}

// BlockHash returns the carried hash for an ancestor block, if any.
func (w *Witness) BlockHash(number uint64) (common.Hash, bool) {
	h, ok := w.blockHashes[number]
	return h, ok
}

// Verify checks every claim in the witness against its state root and
// returns the proven snapshot.
func (w *Witness) Verify() (*mpt.VerifyResult, error) {
	return w.proof.Verify(w.proof.Root())
}
