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
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// storeEntry pairs a node's canonical encoding with its decoded form. Nodes
// are decoded once on insert; a node that fails to decode is rejected there,
// never silently retained.
type storeEntry struct {
	enc []byte
	dec node
}

// Store is a content-addressed arena mapping node hash to node. The account
// trie and every storage trie share one store, which is what deduplicates
// nodes referenced by more than one path. Writes are serialized; after
// Freeze the store is immutable and may be read from any goroutine without
// synchronization.
type Store struct {
	mu     sync.Mutex
	nodes  map[common.Hash]storeEntry
	frozen bool
}

// NewStore returns an empty node store.
func NewStore() *Store {
	return &Store{nodes: make(map[common.Hash]storeEntry)}
}

// Insert adds the encoded node to the store under the hash of its encoding
// and returns that hash. Re-inserting identical bytes is a no-op. Inserting
// different bytes that collide on one hash fails with ErrConflict: that is a
// corrupted snapshot, not a state that can occur in an honest trie.
func (s *Store) Insert(enc []byte) (common.Hash, error) {
	hash := hashData(enc)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return common.Hash{}, ErrFrozen
	}
	if prev, ok := s.nodes[hash]; ok {
		if !bytes.Equal(prev.enc, enc) {
			return common.Hash{}, fmt.Errorf("%w: %x", ErrConflict, hash)
		}
		return hash, nil
	}
	// Copy before decoding so the decoded node never aliases the caller's
	// buffer; callers may reuse it.
	cp := make([]byte, len(enc))
	copy(cp, enc)
	dec, err := decodeNode(cp)
	if err != nil {
		return common.Hash{}, err
	}
	s.nodes[hash] = storeEntry{enc: cp, dec: dec}
	return hash, nil
}

// Freeze ends the write phase. All later reads see an immutable store.
func (s *Store) Freeze() {
	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
}

// node returns the decoded node for the hash, if present. Only safe without
// the lock once the store is frozen; the build phase serializes through
// Insert and the walk helpers run after Freeze.
func (s *Store) node(hash common.Hash) (node, bool) {
	entry, ok := s.nodes[hash]
	return entry.dec, ok
}

// entry returns the stored encoding and decoded form for the hash.
func (s *Store) entry(hash common.Hash) (storeEntry, bool) {
	entry, ok := s.nodes[hash]
	return entry, ok
}

// Encoded returns the canonical encoding stored for the hash.
func (s *Store) Encoded(hash common.Hash) ([]byte, bool) {
	entry, ok := s.nodes[hash]
	return entry.enc, ok
}

// Has reports whether the store holds a node for the hash.
func (s *Store) Has(hash common.Hash) bool {
	_, ok := s.nodes[hash]
	return ok
}

// Len returns the number of distinct nodes held.
func (s *Store) Len() int {
	return len(s.nodes)
}

// SortedEncodings returns every stored encoding ordered by node hash. The
// deterministic order makes the wire encoding reproducible.
func (s *Store) SortedEncodings() [][]byte {
	hashes := make([]common.Hash, 0, len(s.nodes))
	for h := range s.nodes {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})
	encs := make([][]byte, len(hashes))
	for i, h := range hashes {
		encs[i] = s.nodes[h].enc
	}
	return encs
}

// hashes returns the set of stored hashes. Used by the dangling-node check.
func (s *Store) hashes() []common.Hash {
	out := make([]common.Hash, 0, len(s.nodes))
	for h := range s.nodes {
		out = append(out, h)
	}
	return out
}
