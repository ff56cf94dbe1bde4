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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/holiman/uint256"
)

// proofList collects trie proof nodes in root-to-leaf order.
type proofList [][]byte

func (p *proofList) Put(key []byte, value []byte) error {
	*p = append(*p, common.CopyBytes(value))
	return nil
}

func (p *proofList) Delete(key []byte) error {
	return errors.New("delete not supported")
}

func newTestTrie(t *testing.T) *gethtrie.Trie {
	t.Helper()
	return gethtrie.NewEmpty(triedb.NewDatabase(rawdb.NewMemoryDatabase(), nil))
}

func prove(t *testing.T, tr *gethtrie.Trie, key []byte) [][]byte {
	t.Helper()
	var pl proofList
	if err := tr.Prove(key, &pl); err != nil {
		t.Fatalf("prove %x: %v", key, err)
	}
	return pl
}

// testChain is a small world state assembled with the reference trie
// implementation: one contract account with populated storage, one plain
// account, and an address that was never touched.
type testChain struct {
	root common.Hash
	tr   *gethtrie.Trie

	contract    common.Address
	contractAcc types.StateAccount
	storageTr   *gethtrie.Trie
	slots       map[common.Hash]*uint256.Int

	eoa    common.Address
	eoaAcc types.StateAccount

	absent common.Address

	code     []byte
	codeHash common.Hash
}

func newTestChain(t *testing.T) *testChain {
	t.Helper()
	c := &testChain{
		contract: common.HexToAddress("0xc0ffee254729296a45a3885639ac7e10f9d54979"),
		eoa:      common.HexToAddress("0x9965507d1a55bcc2695c58ba16fb37d819b0a4dc"),
		absent:   common.HexToAddress("0x000000000000000000000000000000000000dead"),
		slots: map[common.Hash]*uint256.Int{
			common.HexToHash("0x01"): uint256.NewInt(0x42),
			common.HexToHash("0x02"): uint256.MustFromHex("0xdeadbeef"),
			common.HexToHash("0x03"): uint256.NewInt(7),
		},
		code: []byte{0x60, 0x01, 0x60, 0x00, 0x55, 0x00},
	}
	c.codeHash = crypto.Keccak256Hash(c.code)

	c.storageTr = newTestTrie(t)
	for key, value := range c.slots {
		enc, err := rlp.EncodeToBytes(value.Bytes())
		if err != nil {
			t.Fatalf("encode slot value: %v", err)
		}
		c.storageTr.MustUpdate(crypto.Keccak256(key.Bytes()), enc)
	}

	c.contractAcc = types.StateAccount{
		Nonce:    1,
		Balance:  uint256.NewInt(1e18),
		Root:     c.storageTr.Hash(),
		CodeHash: c.codeHash.Bytes(),
	}
	c.eoaAcc = types.StateAccount{
		Nonce:    9,
		Balance:  uint256.MustFromHex("0x56bc75e2d63100000"),
		Root:     types.EmptyRootHash,
		CodeHash: types.EmptyCodeHash.Bytes(),
	}

	c.tr = newTestTrie(t)
	for _, acc := range []struct {
		addr common.Address
		rec  types.StateAccount
	}{
		{c.contract, c.contractAcc},
		{c.eoa, c.eoaAcc},
	} {
		rec := acc.rec
		enc, err := rlp.EncodeToBytes(&rec)
		if err != nil {
			t.Fatalf("encode account: %v", err)
		}
		c.tr.MustUpdate(crypto.Keccak256(acc.addr.Bytes()), enc)
	}
	c.root = c.tr.Hash()
	return c
}

// accountProof returns the claim for an address, with storage claims for
// the given keys when the address is the contract.
func (c *testChain) accountProof(t *testing.T, addr common.Address, keys ...common.Hash) AccountClaim {
	t.Helper()
	claim := AccountClaim{
		Address: addr,
		Proof:   prove(t, c.tr, crypto.Keccak256(addr.Bytes())),
	}
	switch addr {
	case c.contract:
		claim.Nonce = c.contractAcc.Nonce
		claim.Balance = c.contractAcc.Balance.Clone()
		claim.StorageRoot = c.contractAcc.Root
		claim.CodeHash = c.codeHash
	case c.eoa:
		claim.Nonce = c.eoaAcc.Nonce
		claim.Balance = c.eoaAcc.Balance.Clone()
		claim.StorageRoot = types.EmptyRootHash
		claim.CodeHash = types.EmptyCodeHash
	default:
		claim.StorageRoot = types.EmptyRootHash
		claim.CodeHash = types.EmptyCodeHash
	}
	for _, key := range keys {
		slot := SlotClaim{Key: key}
		if value, ok := c.slots[key]; ok && addr == c.contract {
			slot.Value = value.Clone()
		} else {
			slot.Value = uint256.NewInt(0)
		}
		if addr == c.contract {
			slot.Proof = prove(t, c.storageTr, crypto.Keccak256(key.Bytes()))
		}
		claim.Slots = append(claim.Slots, slot)
	}
	return claim
}

// buildMultiproof assembles and finalizes a multiproof covering the whole
// test chain: the contract with all slots plus one absent slot, the plain
// account, and the untouched address.
func (c *testChain) buildMultiproof(t *testing.T) *Multiproof {
	t.Helper()
	b := NewBuilder(c.root)
	keys := []common.Hash{
		common.HexToHash("0x01"),
		common.HexToHash("0x02"),
		common.HexToHash("0x03"),
		common.HexToHash("0xff"), // never written
	}
	if err := b.AddAccount(c.accountProof(t, c.contract, keys...)); err != nil {
		t.Fatalf("add contract: %v", err)
	}
	if err := b.AddAccount(c.accountProof(t, c.eoa)); err != nil {
		t.Fatalf("add eoa: %v", err)
	}
	if err := b.AddAccount(c.accountProof(t, c.absent)); err != nil {
		t.Fatalf("add absent: %v", err)
	}
	b.AddCode(c.code)
	mp, err := b.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return mp
}
