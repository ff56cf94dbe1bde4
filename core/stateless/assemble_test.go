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
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/statetrace/statetrace/inventory"
	"github.com/statetrace/statetrace/trie/mpt"
)

// recordedSource replays proof material captured from a finished witness,
// standing in for an archive node.
type recordedSource struct {
	results map[common.Address]*inventory.AccountResult
	codes   map[common.Hash][]byte

	accesses    []inventory.Access
	hashReads   []uint64
	blockHashes map[uint64]common.Hash
}

func (s *recordedSource) Proof(_ context.Context, _ uint64, addr common.Address, _ []common.Hash) (*inventory.AccountResult, error) {
	res, ok := s.results[addr]
	if !ok {
		return nil, fmt.Errorf("no recorded proof for %x", addr)
	}
	return res, nil
}

func (s *recordedSource) Code(_ context.Context, codeHash common.Hash) ([]byte, error) {
	code, ok := s.codes[codeHash]
	if !ok {
		return nil, fmt.Errorf("no recorded code for %x", codeHash)
	}
	return code, nil
}

func (s *recordedSource) AccessList(context.Context, uint64) ([]inventory.Access, error) {
	return s.accesses, nil
}

func (s *recordedSource) BlockHashAccesses(context.Context, uint64) ([]uint64, error) {
	return s.hashReads, nil
}

func (s *recordedSource) BlockHash(_ context.Context, number uint64) (common.Hash, error) {
	h, ok := s.blockHashes[number]
	if !ok {
		return common.Hash{}, fmt.Errorf("no recorded hash for block %d", number)
	}
	return h, nil
}

func TestAssembleEndToEnd(t *testing.T) {
	f, w := newFixture(t)

	// Replay the fixture's proof material through the acquisition seam.
	src := &recordedSource{
		results: make(map[common.Address]*inventory.AccountResult),
		codes:   map[common.Hash][]byte{f.codeHash: f.code},
		accesses: []inventory.Access{
			{Address: f.contract, Keys: []common.Hash{f.slotKey, f.absentSlot}},
			{Address: f.eoa},
			{Address: f.absent},
		},
		hashReads:   []uint64{f.parentNumber},
		blockHashes: map[uint64]common.Hash{f.parentNumber: f.parentHash},
	}
	for _, claim := range w.Proof().Claims() {
		res := &inventory.AccountResult{
			Address:      claim.Address,
			AccountProof: proofFor(t, w.Proof(), f.root, claim.Address),
			Nonce:        claim.Nonce,
			Balance:      claim.Balance,
			StorageHash:  claim.StorageRoot,
			CodeHash:     claim.CodeHash,
		}
		for _, slot := range claim.Slots {
			res.StorageProof = append(res.StorageProof, inventory.StorageResult{
				Key:   slot.Key,
				Value: slot.Value,
				Proof: storageProofFor(t, w.Proof(), claim.StorageRoot, slot.Key),
			})
		}
		src.results[claim.Address] = res
	}

	assembled, err := Assemble(context.Background(), f.number, f.root, src, src, src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if assembled.Number() != f.number || assembled.Root() != f.root {
		t.Fatalf("witness bound to (%d, %x), want (%d, %x)",
			assembled.Number(), assembled.Root(), f.number, f.root)
	}
	if assembled.Proof().NodeCount() != w.Proof().NodeCount() {
		t.Fatalf("node count = %d, want %d", assembled.Proof().NodeCount(), w.Proof().NodeCount())
	}
	if _, err := NewReader(assembled); err != nil {
		t.Fatalf("reader over assembled witness: %v", err)
	}
}

// proofFor extracts the ordered account-path node list for an address from a
// finished multiproof.
func proofFor(t *testing.T, mp *mpt.Multiproof, root common.Hash, addr common.Address) [][]byte {
	t.Helper()
	path, err := mp.PathNodes(root, mpt.AccountPath(addr))
	if err != nil {
		t.Fatalf("account path nodes for %x: %v", addr, err)
	}
	return path
}

func storageProofFor(t *testing.T, mp *mpt.Multiproof, storageRoot common.Hash, key common.Hash) [][]byte {
	t.Helper()
	if storageRoot == (common.Hash{}) {
		return nil
	}
	path, err := mp.PathNodes(storageRoot, mpt.StoragePath(key))
	if err != nil {
		t.Fatalf("storage path nodes for %x: %v", key, err)
	}
	return path
}
