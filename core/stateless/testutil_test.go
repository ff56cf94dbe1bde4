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

	"github.com/statetrace/statetrace/trie/mpt"
)

type proofList [][]byte

func (p *proofList) Put(key []byte, value []byte) error {
	*p = append(*p, common.CopyBytes(value))
	return nil
}

func (p *proofList) Delete(key []byte) error {
	return errors.New("delete not supported")
}

// fixture is a minimal block context: a contract with two live slots, a
// plain account, an untouched address, and one ancestor hash, all proven
// against a trie built with the reference implementation.
type fixture struct {
	number uint64
	root   common.Hash

	contract common.Address
	eoa      common.Address
	absent   common.Address

	slotKey    common.Hash
	slotValue  *uint256.Int
	absentSlot common.Hash

	code     []byte
	codeHash common.Hash

	parentNumber uint64
	parentHash   common.Hash
}

func newFixture(t *testing.T) (*fixture, *Witness) {
	t.Helper()
	f := &fixture{
		number:       1_000_000,
		contract:     common.HexToAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3"),
		eoa:          common.HexToAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8"),
		absent:       common.HexToAddress("0x00000000000000000000000000000000000000ff"),
		slotKey:      common.HexToHash("0x01"),
		slotValue:    uint256.NewInt(0xbeef),
		absentSlot:   common.HexToHash("0x7777"),
		code:         []byte{0x60, 0x00, 0x40, 0x00},
		parentNumber: 1_000_000 - 1,
		parentHash:   common.HexToHash("0xabcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789"),
	}
	f.codeHash = crypto.Keccak256Hash(f.code)

	newTrie := func() *gethtrie.Trie {
		return gethtrie.NewEmpty(triedb.NewDatabase(rawdb.NewMemoryDatabase(), nil))
	}
	prove := func(tr *gethtrie.Trie, key []byte) [][]byte {
		var pl proofList
		if err := tr.Prove(key, &pl); err != nil {
			t.Fatalf("prove %x: %v", key, err)
		}
		return pl
	}

	storageTr := newTrie()
	slotEnc, err := rlp.EncodeToBytes(f.slotValue.Bytes())
	if err != nil {
		t.Fatalf("encode slot: %v", err)
	}
	storageTr.MustUpdate(crypto.Keccak256(f.slotKey.Bytes()), slotEnc)

	contractAcc := types.StateAccount{
		Nonce:    1,
		Balance:  uint256.NewInt(5),
		Root:     storageTr.Hash(),
		CodeHash: f.codeHash.Bytes(),
	}
	eoaAcc := types.StateAccount{
		Nonce:    42,
		Balance:  uint256.NewInt(1e9),
		Root:     types.EmptyRootHash,
		CodeHash: types.EmptyCodeHash.Bytes(),
	}

	stateTr := newTrie()
	for _, a := range []struct {
		addr common.Address
		rec  types.StateAccount
	}{
		{f.contract, contractAcc},
		{f.eoa, eoaAcc},
	} {
		rec := a.rec
		enc, err := rlp.EncodeToBytes(&rec)
		if err != nil {
			t.Fatalf("encode account: %v", err)
		}
		stateTr.MustUpdate(crypto.Keccak256(a.addr.Bytes()), enc)
	}
	f.root = stateTr.Hash()

	b := mpt.NewBuilder(f.root)
	if err := b.AddAccount(mpt.AccountClaim{
		Address:     f.contract,
		Nonce:       contractAcc.Nonce,
		Balance:     contractAcc.Balance.Clone(),
		StorageRoot: contractAcc.Root,
		CodeHash:    f.codeHash,
		Proof:       prove(stateTr, crypto.Keccak256(f.contract.Bytes())),
		Slots: []mpt.SlotClaim{
			{
				Key:   f.slotKey,
				Value: f.slotValue.Clone(),
				Proof: prove(storageTr, crypto.Keccak256(f.slotKey.Bytes())),
			},
			{
				Key:   f.absentSlot,
				Value: uint256.NewInt(0),
				Proof: prove(storageTr, crypto.Keccak256(f.absentSlot.Bytes())),
			},
		},
	}); err != nil {
		t.Fatalf("add contract: %v", err)
	}
	if err := b.AddAccount(mpt.AccountClaim{
		Address:     f.eoa,
		Nonce:       eoaAcc.Nonce,
		Balance:     eoaAcc.Balance.Clone(),
		StorageRoot: types.EmptyRootHash,
		CodeHash:    types.EmptyCodeHash,
		Proof:       prove(stateTr, crypto.Keccak256(f.eoa.Bytes())),
	}); err != nil {
		t.Fatalf("add eoa: %v", err)
	}
	if err := b.AddAccount(mpt.AccountClaim{
		Address:     f.absent,
		StorageRoot: types.EmptyRootHash,
		CodeHash:    types.EmptyCodeHash,
		Proof:       prove(stateTr, crypto.Keccak256(f.absent.Bytes())),
	}); err != nil {
		t.Fatalf("add absent: %v", err)
	}
	b.AddCode(f.code)

	proof, err := b.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	w, err := NewWitness(f.number, proof, map[uint64]common.Hash{
		f.parentNumber: f.parentHash,
	})
	if err != nil {
		t.Fatalf("new witness: %v", err)
	}
	return f, w
}
