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
	"fmt"
	"runtime"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"
)

// walker resolves nibble paths against the node store. With rehash set it
// recomputes the keccak of every node it resolves and checks it against the
// store key, memoizing nodes already checked this run. Shared nodes are
// therefore hashed once no matter how many paths cross them.
type walker struct {
	store   *Store
	rehash  bool
	checked mapset.Set[common.Hash]
	visited func(common.Hash)
}

// resolveHash looks up a hash reference and, when rehashing, confirms the
// stored bytes still hash to the key they are filed under.
func (w *walker) resolveHash(hash common.Hash) (node, bool, error) {
	entry, ok := w.store.entry(hash)
	if !ok {
		return nil, false, nil
	}
	if w.rehash && !w.checked.Contains(hash) {
		if hashData(entry.enc) != hash {
			return nil, false, fmt.Errorf("%w: node %x does not hash to its key", ErrRootMismatch, hash)
		}
		w.checked.Add(hash)
	}
	if w.visited != nil {
		w.visited(hash)
	}
	return entry.dec, true, nil
}

// walk follows the hex nibble path from the given (sub)trie root and returns
// the leaf payload it proves. A nil payload with nil error is a proof of
// absence: the path diverged from every stored branch before reaching a
// leaf. The empty root proves everything absent with no nodes at all.
func (w *walker) walk(root common.Hash, path []byte) ([]byte, error) {
	if root == types.EmptyRootHash || root == (common.Hash{}) {
		return nil, nil
	}
	cur, ok, err := w.resolveHash(root)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no node for root %x", ErrRootMismatch, root)
	}
	for {
		switch n := cur.(type) {
		case *shortNode:
			if prefixLen(path, n.Key) < len(n.Key) {
				return nil, nil
			}
			path = path[len(n.Key):]
			cur = n.Val
		case *fullNode:
			if len(path) == 0 {
				return nil, fmt.Errorf("%w: path exhausted inside branch", ErrPathMismatch)
			}
			cur = n.Children[path[0]]
			path = path[1:]
		case valueNode:
			if len(path) != 0 {
				return nil, fmt.Errorf("%w: value reached with %d nibbles left", ErrPathMismatch, len(path))
			}
			return n, nil
		case hashNode:
			child, ok, err := w.resolveHash(common.BytesToHash(n))
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("%w: %x", ErrMissingNode, n)
			}
			cur = child
		case nil:
			return nil, nil
		default:
			return nil, fmt.Errorf("%w: unexpected node %T", ErrDecode, cur)
		}
	}
}

// VerifiedAccount is the outcome of verifying one account claim. Account is
// nil when the proof shows the account does not exist. Storage holds the
// proven value for every claimed slot; absent slots prove as zero.
type VerifiedAccount struct {
	Address common.Address
	Account *types.StateAccount
	Storage map[common.Hash]*uint256.Int
}

// Exists reports whether the account was proven present in the trie.
func (a *VerifiedAccount) Exists() bool {
	return a.Account != nil
}

// VerifyResult holds the proven state snapshot after a successful
// verification.
type VerifyResult struct {
	Root     common.Hash
	Accounts map[common.Address]*VerifiedAccount
}

// Verify checks every registered claim against the given state root and
// returns the proven snapshot. Node hashes are recomputed lazily as paths
// resolve them, each distinct node at most once, so a single flipped byte
// anywhere on a claimed path surfaces as ErrRootMismatch. Accounts verify
// concurrently; the first failure aborts the run.
func (mp *Multiproof) Verify(stateRoot common.Hash) (*VerifyResult, error) {
	if stateRoot != mp.root {
		return nil, fmt.Errorf("%w: proof commits to %x, verifying against %x", ErrRootMismatch, mp.root, stateRoot)
	}
	result := &VerifyResult{
		Root:     mp.root,
		Accounts: make(map[common.Address]*VerifiedAccount, len(mp.order)),
	}
	for _, addr := range mp.order {
		result.Accounts[addr] = &VerifiedAccount{
			Address: addr,
			Storage: make(map[common.Hash]*uint256.Int, len(mp.accounts[addr].slots)),
		}
	}

	w := &walker{store: mp.store, rehash: true, checked: mapset.NewSet[common.Hash]()}
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, addr := range mp.order {
		addr := addr
		g.Go(func() error {
			return mp.verifyAccount(w, addr, result.Accounts[addr])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// verifyAccount proves one account claim and all its slot claims.
func (mp *Multiproof) verifyAccount(w *walker, addr common.Address, out *VerifiedAccount) error {
	entry := mp.accounts[addr]
	payload, err := w.walk(mp.root, AccountPath(addr))
	if err != nil {
		return fmt.Errorf("account %x: %w", addr, err)
	}
	if payload == nil {
		// Proven absent. The claim must describe the empty account and
		// every slot claim must be zero.
		if !entry.claim.empty() {
			return fmt.Errorf("%w: account %x proven absent but claimed present", ErrInconsistentClaim, addr)
		}
		for _, key := range entry.slotOrder {
			if !entry.slots[key].IsZero() {
				return fmt.Errorf("%w: slot %x of absent account %x claimed nonzero", ErrInconsistentClaim, key, addr)
			}
			out.Storage[key] = uint256.NewInt(0)
		}
		return nil
	}

	var acct types.StateAccount
	if err := decodeAccountLeaf(payload, &acct); err != nil {
		return fmt.Errorf("account %x: %w", addr, err)
	}
	if entry.claim.empty() {
		// Tries never store the empty account; a leaf here means the
		// claim and the proof disagree.
		return fmt.Errorf("%w: account %x proven present but claimed empty", ErrInconsistentClaim, addr)
	}
	if err := checkAccountFields(&entry.claim, &acct); err != nil {
		return fmt.Errorf("account %x: %w", addr, err)
	}
	out.Account = &acct

	for _, key := range entry.slotOrder {
		value, err := mp.verifySlot(w, acct.Root, key, entry.slots[key])
		if err != nil {
			return fmt.Errorf("account %x slot %x: %w", addr, key, err)
		}
		out.Storage[key] = value
	}
	return nil
}

// verifySlot proves one slot claim under the account's proven storage root.
func (mp *Multiproof) verifySlot(w *walker, storageRoot common.Hash, key common.Hash, claimed *uint256.Int) (*uint256.Int, error) {
	payload, err := w.walk(storageRoot, StoragePath(key))
	if err != nil {
		return nil, err
	}
	if payload == nil {
		if !claimed.IsZero() {
			return nil, fmt.Errorf("%w: proven absent but claimed %v", ErrInconsistentClaim, claimed)
		}
		return uint256.NewInt(0), nil
	}
	content, _, err := rlp.SplitString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: slot leaf payload: %v", ErrDecode, err)
	}
	value := new(uint256.Int).SetBytes(content)
	if value.IsZero() {
		// Zero values are deleted from the trie, never stored.
		return nil, fmt.Errorf("%w: trie stores an explicit zero", ErrInconsistentClaim)
	}
	if !value.Eq(claimed) {
		return nil, fmt.Errorf("%w: proven %v, claimed %v", ErrInconsistentClaim, value, claimed)
	}
	return value, nil
}

// checkAccountFields compares a claim against the decoded leaf record. Zero
// hashes in the claim stand for the canonical empty root and empty code
// hash.
func checkAccountFields(claim *AccountClaim, acct *types.StateAccount) error {
	if acct.Nonce != claim.Nonce {
		return fmt.Errorf("%w: nonce proven %d, claimed %d", ErrInconsistentClaim, acct.Nonce, claim.Nonce)
	}
	if !acct.Balance.Eq(balanceOrZero(claim.Balance)) {
		return fmt.Errorf("%w: balance proven %v, claimed %v", ErrInconsistentClaim, acct.Balance, claim.Balance)
	}
	claimedRoot := claim.StorageRoot
	if claimedRoot == (common.Hash{}) {
		claimedRoot = types.EmptyRootHash
	}
	if acct.Root != claimedRoot {
		return fmt.Errorf("%w: storage root proven %x, claimed %x", ErrInconsistentClaim, acct.Root, claimedRoot)
	}
	claimedCode := claim.CodeHash
	if claimedCode == (common.Hash{}) {
		claimedCode = types.EmptyCodeHash
	}
	if common.BytesToHash(acct.CodeHash) != claimedCode {
		return fmt.Errorf("%w: code hash proven %x, claimed %x", ErrInconsistentClaim, acct.CodeHash, claimedCode)
	}
	return nil
}
