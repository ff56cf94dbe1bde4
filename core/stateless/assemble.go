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

package stateless

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/statetrace/statetrace/inventory"
	"github.com/statetrace/statetrace/trie/mpt"
)

// claimFromResult converts a raw eth_getProof response into a builder claim.
func claimFromResult(res *inventory.AccountResult) mpt.AccountClaim {
	claim := mpt.AccountClaim{
		Address:     res.Address,
		Nonce:       res.Nonce,
		Balance:     res.Balance,
		StorageRoot: res.StorageHash,
		CodeHash:    res.CodeHash,
		Proof:       res.AccountProof,
	}
	for _, s := range res.StorageProof {
		claim.Slots = append(claim.Slots, mpt.SlotClaim{Key: s.Key, Value: s.Value, Proof: s.Proof})
	}
	return claim
}

// Assemble gathers proof material for every access of one block and packages
// it into a witness bound to the given parent state root. Proofs are fetched
// concurrently; merging into the builder is serialized, so duplicate or
// disagreeing responses surface as the usual builder errors.
func Assemble(ctx context.Context, block uint64, parentRoot common.Hash,
	proofs inventory.ProofSource, accesses inventory.AccessLister, hashes inventory.BlockHashSource) (*Witness, error) {

	list, err := accesses.AccessList(ctx, block)
	if err != nil {
		return nil, fmt.Errorf("access list for block %d: %w", block, err)
	}
	log.Info("Assembling witness", "block", block, "root", parentRoot, "accounts", len(list))

	results := make([]*inventory.AccountResult, len(list))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, access := range list {
		i, access := i, access
		g.Go(func() error {
			res, err := proofs.Proof(gctx, block, access.Address, access.Keys)
			if err != nil {
				return fmt.Errorf("proof for account %x: %w", access.Address, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := mpt.NewBuilder(parentRoot)
	for _, res := range results {
		if err := b.AddAccount(claimFromResult(res)); err != nil {
			return nil, err
		}
		if res.CodeHash != types.EmptyCodeHash && res.CodeHash != (common.Hash{}) {
			code, err := proofs.Code(ctx, res.CodeHash)
			if err != nil {
				return nil, fmt.Errorf("code for account %x: %w", res.Address, err)
			}
			if got := b.AddCode(code); got != res.CodeHash {
				return nil, fmt.Errorf("code for account %x hashes to %x, account claims %x", res.Address, got, res.CodeHash)
			}
		}
	}
	proof, err := b.Finalize()
	if err != nil {
		return nil, err
	}

	numbers, err := accesses.BlockHashAccesses(ctx, block)
	if err != nil {
		return nil, fmt.Errorf("blockhash accesses for block %d: %w", block, err)
	}
	ancestors := make(map[uint64]common.Hash, len(numbers))
	for _, n := range numbers {
		h, err := hashes.BlockHash(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("hash of block %d: %w", n, err)
		}
		ancestors[n] = h
	}

	w, err := NewWitness(block, proof, ancestors)
	if err != nil {
		return nil, err
	}
	log.Info("Assembled witness", "block", block,
		"nodes", proof.NodeCount(), "codes", len(proof.Codes()), "blockhashes", len(ancestors))
	return w, nil
}
