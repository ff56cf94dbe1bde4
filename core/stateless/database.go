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
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb"

	"github.com/statetrace/statetrace/trie/mpt"
)

// Reader serves state reads for re-execution of one block out of a verified
// witness. Every answer is either backed by a proof or fails with
// ErrUnprovenAccess; the reader never guesses. All methods are pure and safe
// for concurrent use.
type Reader struct {
	number   uint64
	witness  *Witness
	snapshot *mpt.VerifyResult
}

// NewReader verifies the witness and wraps the proven snapshot. A witness
// that fails verification yields no reader at all.
func NewReader(w *Witness) (*Reader, error) {
	snapshot, err := w.Verify()
	if err != nil {
		return nil, fmt.Errorf("verify witness for block %d: %w", w.Number(), err)
	}
	return &Reader{number: w.Number(), witness: w, snapshot: snapshot}, nil
}

// Account returns the proven account record for the address. A nil record
// with nil error means the account is proven absent. Addresses the witness
// carries no claim for fail with ErrUnprovenAccess.
func (r *Reader) Account(addr common.Address) (*types.StateAccount, error) {
	acct, ok := r.snapshot.Accounts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: account %x", ErrUnprovenAccess, addr)
	}
	if !acct.Exists() {
		return nil, nil
	}
	return acct.Account, nil
}

// Storage returns the proven value of a slot. Slots of proven-absent
// accounts, and unclaimed slots under a proven-empty storage trie, read as
// zero; any other unclaimed slot fails with ErrUnprovenAccess.
func (r *Reader) Storage(addr common.Address, key common.Hash) (common.Hash, error) {
	acct, ok := r.snapshot.Accounts[addr]
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: storage of account %x", ErrUnprovenAccess, addr)
	}
	if value, ok := acct.Storage[key]; ok {
		return value.Bytes32(), nil
	}
	if !acct.Exists() || acct.Account.Root == types.EmptyRootHash {
		// The whole storage trie is proven empty, so every slot is zero.
		return common.Hash{}, nil
	}
	return common.Hash{}, fmt.Errorf("%w: slot %x of account %x", ErrUnprovenAccess, key, addr)
}

// Code returns the bytecode for a code hash. The canonical empty code hash
// reads as empty code without a table entry.
func (r *Reader) Code(codeHash common.Hash) ([]byte, error) {
	if codeHash == types.EmptyCodeHash || codeHash == (common.Hash{}) {
		return nil, nil
	}
	code, ok := r.witness.Proof().Code(codeHash)
	if !ok {
		return nil, fmt.Errorf("%w: code %x", ErrUnprovenAccess, codeHash)
	}
	return code, nil
}

// BlockHash serves the BLOCKHASH opcode. Only blocks strictly before the
// witness block and at most the lookback window behind it can be answered;
// anything else, and window blocks the witness does not carry, fail with
// ErrBlockHashUnavailable. The EVM collaborator decides whether that maps to
// a zero push or an aborted trace.
func (r *Reader) BlockHash(number uint64) (common.Hash, error) {
	if number >= r.number || r.number-number > blockHashWindow {
		return common.Hash{}, fmt.Errorf("%w: block %d outside window of block %d", ErrBlockHashUnavailable, number, r.number)
	}
	hash, ok := r.witness.BlockHash(number)
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: block %d not carried for block %d", ErrBlockHashUnavailable, number, r.number)
	}
	return hash, nil
}

// MakeHashDB exports the witness contents into a hash-keyed memory database
// so reference trie code can expand the proven state directly. Codes and
// trie nodes are persisted under their keccak hashes, which keeps the
// database self-validating: junk entries are unreachable by honest lookups.
func (w *Witness) MakeHashDB() ethdb.Database {
	memdb := rawdb.NewMemoryDatabase()
	for _, code := range w.proof.Codes() {
		rawdb.WriteCode(memdb, crypto.Keccak256Hash(code), code)
	}
	for _, node := range w.proof.Nodes() {
		rawdb.WriteLegacyTrieNode(memdb, crypto.Keccak256Hash(node), node)
	}
	return memdb
}
