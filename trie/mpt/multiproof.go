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
	"bytes"
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// SlotClaim states the value expected for one storage key of an account. A
// zero Value claims the slot's absence from the storage trie.
type SlotClaim struct {
	Key   common.Hash
	Value *uint256.Int
	// Proof holds the root-to-leaf storage-trie nodes backing the claim.
	// It may be empty when the owning account's storage root is the empty
	// root.
	Proof [][]byte
}

// AccountClaim states the account record expected for one address, together
// with the account-trie path backing it and any storage claims under it. The
// shape mirrors an eth_getProof response.
type AccountClaim struct {
	Address     common.Address
	Nonce       uint64
	Balance     *uint256.Int
	StorageRoot common.Hash
	CodeHash    common.Hash
	// Proof holds the root-to-leaf account-trie nodes backing the claim.
	Proof [][]byte
	Slots []SlotClaim
}

// empty reports whether the claim describes a non-existent account. Such
// claims are backed by exclusion proofs.
func (c *AccountClaim) empty() bool {
	return c.Nonce == 0 &&
		(c.Balance == nil || c.Balance.IsZero()) &&
		(c.StorageRoot == types.EmptyRootHash || c.StorageRoot == common.Hash{}) &&
		(c.CodeHash == types.EmptyCodeHash || c.CodeHash == common.Hash{})
}

// equalClaim reports whether two claims about the same address agree on the
// account fields. Disagreement means the inputs are not a consistent
// snapshot of one state root.
func (c *AccountClaim) equalClaim(o *AccountClaim) bool {
	return c.Nonce == o.Nonce &&
		balanceOrZero(c.Balance).Eq(balanceOrZero(o.Balance)) &&
		c.StorageRoot == o.StorageRoot &&
		c.CodeHash == o.CodeHash
}

func balanceOrZero(b *uint256.Int) *uint256.Int {
	if b == nil {
		return uint256.NewInt(0)
	}
	return b
}

// accountEntry is the registered form of an account claim: the claimed
// fields plus the claimed storage slots, without the raw proof node lists
// (those live in the shared store once inserted).
type accountEntry struct {
	claim     AccountClaim
	slots     map[common.Hash]*uint256.Int
	slotOrder []common.Hash
}

// Multiproof is one combined two-level trie proof: a shared node store, the
// registry of claimed accounts and slots, and the code blobs referenced by
// claimed code hashes. It is immutable once built.
type Multiproof struct {
	root     common.Hash
	store    *Store
	accounts map[common.Address]*accountEntry
	order    []common.Address
	codes    map[common.Hash][]byte
}

// Builder merges independently obtained single-key proofs into one
// multiproof. It is not safe for concurrent use; callers merging in parallel
// feed one builder through their own serialization.
type Builder struct {
	root     common.Hash
	store    *Store
	accounts map[common.Address]*accountEntry
	order    []common.Address
	codes    map[common.Hash][]byte
}

// NewBuilder starts an empty multiproof bound to the given state root. Every
// inserted account proof must commit to this root.
func NewBuilder(stateRoot common.Hash) *Builder {
	return &Builder{
		root:     stateRoot,
		store:    NewStore(),
		accounts: make(map[common.Address]*accountEntry),
		codes:    make(map[common.Hash][]byte),
	}
}

// AddAccount merges one account proof, and any storage proofs it carries,
// into the multiproof under construction. Nodes already present are
// deduplicated; a hash held with different bytes fails with ErrConflict. A
// second claim for the same address or slot must agree with the first, else
// the merge fails with ErrInconsistentClaim.
func (b *Builder) AddAccount(claim AccountClaim) error {
	if err := b.insertPath(claim.Proof, b.root, "account"); err != nil {
		return fmt.Errorf("account %x: %w", claim.Address, err)
	}
	for _, slot := range claim.Slots {
		if len(slot.Proof) == 0 {
			if claim.StorageRoot != types.EmptyRootHash && claim.StorageRoot != (common.Hash{}) {
				return fmt.Errorf("account %x slot %x: %w: no proof for non-empty storage root", claim.Address, slot.Key, ErrMissingNode)
			}
			continue
		}
		if err := b.insertPath(slot.Proof, claim.StorageRoot, "storage"); err != nil {
			return fmt.Errorf("account %x slot %x: %w", claim.Address, slot.Key, err)
		}
	}
	return b.register(claim)
}

// insertPath inserts an ordered root-to-leaf node list and checks that its
// first element commits to the expected (sub)trie root.
func (b *Builder) insertPath(proof [][]byte, root common.Hash, kind string) error {
	if len(proof) == 0 {
		return fmt.Errorf("%w: empty %s proof", ErrMissingNode, kind)
	}
	for i, enc := range proof {
		hash, err := b.store.Insert(enc)
		if err != nil {
			return fmt.Errorf("%s proof node %d: %w", kind, i, err)
		}
		if i == 0 && hash != root {
			return fmt.Errorf("%w: %s proof head %x does not commit to root %x", ErrRootMismatch, kind, hash, root)
		}
	}
	return nil
}

// register records the claim, merging it with any earlier claim for the same
// address.
func (b *Builder) register(claim AccountClaim) error {
	entry, ok := b.accounts[claim.Address]
	if !ok {
		entry = &accountEntry{
			claim: AccountClaim{
				Address:     claim.Address,
				Nonce:       claim.Nonce,
				Balance:     balanceOrZero(claim.Balance).Clone(),
				StorageRoot: claim.StorageRoot,
				CodeHash:    claim.CodeHash,
			},
			slots: make(map[common.Hash]*uint256.Int),
		}
		b.accounts[claim.Address] = entry
		b.order = append(b.order, claim.Address)
	} else if !entry.claim.equalClaim(&claim) {
		return fmt.Errorf("%w: account %x claimed twice with different records", ErrInconsistentClaim, claim.Address)
	}
	for _, slot := range claim.Slots {
		value := balanceOrZero(slot.Value)
		if prev, ok := entry.slots[slot.Key]; ok {
			if !prev.Eq(value) {
				return fmt.Errorf("%w: slot %x of account %x claimed twice with different values", ErrInconsistentClaim, slot.Key, claim.Address)
			}
			continue
		}
		entry.slots[slot.Key] = value.Clone()
		entry.slotOrder = append(entry.slotOrder, slot.Key)
	}
	return nil
}

// AddCode stores a contract bytecode blob, keyed by its code hash. The same
// code shared by many accounts is stored once.
func (b *Builder) AddCode(code []byte) common.Hash {
	hash := crypto.Keccak256Hash(code)
	if _, ok := b.codes[hash]; !ok {
		cp := make([]byte, len(code))
		copy(cp, code)
		b.codes[hash] = cp
	}
	return hash
}

// Finalize freezes the store and checks structural completeness: every
// claimed path must resolve through stored nodes, every account leaf payload
// must decode into a full four-field record, and every stored node must be
// reachable from some claim. The result is the immutable multiproof.
func (b *Builder) Finalize() (*Multiproof, error) {
	mp := &Multiproof{
		root:     b.root,
		store:    b.store,
		accounts: b.accounts,
		order:    b.order,
		codes:    b.codes,
	}
	b.store.Freeze()
	if err := mp.finalize(); err != nil {
		return nil, err
	}
	return mp, nil
}

// FromParts reassembles a multiproof from its serialized parts: the
// deduplicated node encodings, the code blobs, and the claim registry. The
// same structural checks as Finalize apply, so a decoded parcel is rejected
// here rather than half-trusted.
func FromParts(stateRoot common.Hash, nodes [][]byte, codes [][]byte, claims []AccountClaim) (*Multiproof, error) {
	b := NewBuilder(stateRoot)
	for i, enc := range nodes {
		if _, err := b.store.Insert(enc); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
	}
	for _, code := range codes {
		b.AddCode(code)
	}
	for _, claim := range claims {
		// Proof node lists are not part of the serialized form; the
		// shared store already holds every node and the claims are
		// re-walked from the roots below. The slot slice is copied so
		// clearing the lists never touches the caller's claims.
		claim.Proof = nil
		slots := make([]SlotClaim, len(claim.Slots))
		copy(slots, claim.Slots)
		for i := range slots {
			slots[i].Proof = nil
		}
		claim.Slots = slots
		if err := b.register(claim); err != nil {
			return nil, err
		}
	}
	return b.Finalize()
}

// finalize walks every registered claim without hash rechecking, extracting
// and validating account leaf payloads and collecting the reachable node
// set for the dangling-node check.
func (mp *Multiproof) finalize() error {
	visited := mapset.NewThreadUnsafeSet[common.Hash]()
	w := &walker{store: mp.store, visited: func(h common.Hash) { visited.Add(h) }}

	for _, addr := range mp.order {
		entry := mp.accounts[addr]
		payload, err := w.walk(mp.root, AccountPath(addr))
		if err != nil {
			return fmt.Errorf("account %x: %w", addr, err)
		}
		if payload != nil {
			var acct types.StateAccount
			if err := decodeAccountLeaf(payload, &acct); err != nil {
				return fmt.Errorf("account %x: %w", addr, err)
			}
			for _, key := range entry.slotOrder {
				if _, err := w.walk(acct.Root, StoragePath(key)); err != nil {
					return fmt.Errorf("account %x slot %x: %w", addr, key, err)
				}
			}
		}
	}
	for _, hash := range mp.store.hashes() {
		if !visited.Contains(hash) {
			return fmt.Errorf("%w: %x not reachable from any claim", ErrDanglingNode, hash)
		}
	}
	return nil
}

// decodeAccountLeaf decodes an account leaf payload, requiring all four
// mandatory fields even when the caller only cares about some of them.
func decodeAccountLeaf(payload []byte, into *types.StateAccount) error {
	if err := rlp.DecodeBytes(payload, into); err != nil {
		return fmt.Errorf("%w: %v", ErrIncompleteAccountLeaf, err)
	}
	return nil
}

// AccountPath returns the hex nibble path of an address in the account trie.
func AccountPath(addr common.Address) []byte {
	return keybytesToHex(crypto.Keccak256(addr.Bytes()))
}

// StoragePath returns the hex nibble path of a key in a storage trie.
func StoragePath(key common.Hash) []byte {
	return keybytesToHex(crypto.Keccak256(key.Bytes()))
}

// PathNodes returns the ordered root-to-termination node encodings along a
// nibble path, reproducing the single-key proof the path was merged from.
// Paths under the empty root yield no nodes.
func (mp *Multiproof) PathNodes(root common.Hash, path []byte) ([][]byte, error) {
	var nodes [][]byte
	w := &walker{store: mp.store, visited: func(h common.Hash) {
		if enc, ok := mp.store.Encoded(h); ok {
			nodes = append(nodes, enc)
		}
	}}
	if _, err := w.walk(root, path); err != nil {
		return nil, err
	}
	return nodes, nil
}

// Root returns the state root the multiproof was built against.
func (mp *Multiproof) Root() common.Hash {
	return mp.root
}

// NodeCount returns the number of distinct trie nodes held.
func (mp *Multiproof) NodeCount() int {
	return mp.store.Len()
}

// Nodes returns the deduplicated node encodings in hash order.
func (mp *Multiproof) Nodes() [][]byte {
	return mp.store.SortedEncodings()
}

// Claims returns the registered account claims, insertion-ordered, with the
// slot claims of each account in insertion order. Proof node lists are not
// reproduced; the store carries the nodes.
func (mp *Multiproof) Claims() []AccountClaim {
	out := make([]AccountClaim, 0, len(mp.order))
	for _, addr := range mp.order {
		entry := mp.accounts[addr]
		claim := entry.claim
		claim.Slots = make([]SlotClaim, 0, len(entry.slotOrder))
		for _, key := range entry.slotOrder {
			claim.Slots = append(claim.Slots, SlotClaim{Key: key, Value: entry.slots[key].Clone()})
		}
		out = append(out, claim)
	}
	return out
}

// Code returns the bytecode stored for the code hash.
func (mp *Multiproof) Code(hash common.Hash) ([]byte, bool) {
	code, ok := mp.codes[hash]
	return code, ok
}

// Codes returns the stored code blobs ordered by code hash.
func (mp *Multiproof) Codes() [][]byte {
	hashes := make([]common.Hash, 0, len(mp.codes))
	for h := range mp.codes {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})
	out := make([][]byte, len(hashes))
	for i, h := range hashes {
		out[i] = mp.codes[h]
	}
	return out
}
