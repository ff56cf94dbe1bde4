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

// Package inventory defines the seam to whatever gathers raw proof material:
// an archive node, a proof-serving peer, or recorded fixtures. The types
// mirror the eth_getProof response shape field for field so an RPC
// implementation is a thin adapter, but nothing in this module performs
// network access itself.
package inventory

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// AccountResult is the raw proof material for one account at one state
// root, as eth_getProof returns it.
type AccountResult struct {
	Address      common.Address  `json:"address"`
	AccountProof [][]byte        `json:"accountProof"`
	Nonce        uint64          `json:"nonce"`
	Balance      *uint256.Int    `json:"balance"`
	StorageHash  common.Hash     `json:"storageHash"`
	CodeHash     common.Hash     `json:"codeHash"`
	StorageProof []StorageResult `json:"storageProof"`
}

// StorageResult is the raw proof material for one storage slot.
type StorageResult struct {
	Key   common.Hash  `json:"key"`
	Value *uint256.Int `json:"value"`
	Proof [][]byte     `json:"proof"`
}

// Access names one account and the storage keys touched under it.
type Access struct {
	Address common.Address
	Keys    []common.Hash
}

// ProofSource serves per-account proofs against the state root of a given
// block.
type ProofSource interface {
	// Proof returns the proof for an address and a set of its storage
	// keys at the state committed by the given block.
	Proof(ctx context.Context, block uint64, addr common.Address, keys []common.Hash) (*AccountResult, error)

	// Code returns the bytecode for a code hash.
	Code(ctx context.Context, codeHash common.Hash) ([]byte, error)
}

// AccessLister reports which state a block's execution touches. A tracing
// archive node can answer this exactly; an over-approximation is legal and
// only costs witness size.
type AccessLister interface {
	AccessList(ctx context.Context, block uint64) ([]Access, error)

	// BlockHashAccesses returns the ancestor block numbers the block reads
	// through the BLOCKHASH opcode.
	BlockHashAccesses(ctx context.Context, block uint64) ([]uint64, error)
}

// BlockHashSource serves ancestor block hashes for the BLOCKHASH window.
type BlockHashSource interface {
	BlockHash(ctx context.Context, number uint64) (common.Hash, error)
}
