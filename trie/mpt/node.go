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

// Package mpt models hexary Merkle Patricia trie nodes and implements the
// multiproof: one deduplicated, content-addressed collection of proof nodes
// covering many account and storage claims against a single state root.
package mpt

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// node is the closed set of trie node kinds. The protocol fixes this set, so
// walk and codec logic switch over it exhaustively.
type node interface {
	encode(w rlp.EncoderBuffer)
}

type (
	// fullNode is a branch with one child slot per nibble plus the value
	// slot historically carried as the 17th item.
	fullNode struct {
		Children [17]node
	}
	// shortNode is an extension or leaf, depending on whether Key carries
	// the terminator. Key is held in hex form.
	shortNode struct {
		Key []byte
		Val node
	}
	// hashNode references another node by the hash of its encoding.
	hashNode []byte
	// valueNode holds an opaque RLP payload whose interpretation depends
	// on the trie it belongs to.
	valueNode []byte
)

func (n *fullNode) encode(w rlp.EncoderBuffer) {
	offset := w.List()
	for _, c := range n.Children {
		if c != nil {
			c.encode(w)
		} else {
			w.Write(rlp.EmptyString)
		}
	}
	w.ListEnd(offset)
}

func (n *shortNode) encode(w rlp.EncoderBuffer) {
	offset := w.List()
	w.WriteBytes(hexToCompact(n.Key))
	if n.Val != nil {
		n.Val.encode(w)
	} else {
		w.Write(rlp.EmptyString)
	}
	w.ListEnd(offset)
}

func (n hashNode) encode(w rlp.EncoderBuffer)  { w.WriteBytes(n) }
func (n valueNode) encode(w rlp.EncoderBuffer) { w.WriteBytes(n) }

// nodeToBytes returns the canonical RLP encoding of n. Decoding followed by
// re-encoding is byte-identical, which is what makes the node hash a stable
// identity.
func nodeToBytes(n node) []byte {
	w := rlp.NewEncoderBuffer(nil)
	n.encode(w)
	result := w.ToBytes()
	w.Flush()
	return result
}

// decodeNode parses an RLP encoded trie node. Children shorter than 32 bytes
// are decoded in place; larger children stay hash references.
func decodeNode(buf []byte) (node, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}
	elems, _, err := rlp.SplitList(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	switch c, _ := rlp.CountValues(elems); c {
	case 2:
		return decodeShort(elems)
	case 17:
		return decodeFull(elems)
	default:
		return nil, fmt.Errorf("%w: invalid item count %d", ErrDecode, c)
	}
}

func decodeShort(elems []byte) (node, error) {
	kbuf, rest, err := rlp.SplitString(elems)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	key, err := compactToHex(kbuf)
	if err != nil {
		return nil, err
	}
	if hasTerm(key) {
		// Leaf node, value is the last path element.
		val, _, err := rlp.SplitString(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: leaf value: %v", ErrDecode, err)
		}
		return &shortNode{Key: key, Val: valueNode(val)}, nil
	}
	child, _, err := decodeRef(rest)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, fmt.Errorf("%w: extension without child", ErrDecode)
	}
	return &shortNode{Key: key, Val: child}, nil
}

func decodeFull(elems []byte) (node, error) {
	n := &fullNode{}
	for i := 0; i < 16; i++ {
		child, rest, err := decodeRef(elems)
		if err != nil {
			return nil, fmt.Errorf("child %d of branch: %w", i, err)
		}
		n.Children[i], elems = child, rest
	}
	val, _, err := rlp.SplitString(elems)
	if err != nil {
		return nil, fmt.Errorf("%w: branch value: %v", ErrDecode, err)
	}
	if len(val) > 0 {
		n.Children[16] = valueNode(val)
	}
	return n, nil
}

const hashLen = 32

// decodeRef parses one child reference: an empty string (absent child), a
// 32-byte hash reference, or an embedded node whose full encoding is shorter
// than a hash.
func decodeRef(buf []byte) (node, []byte, error) {
	kind, val, rest, err := rlp.Split(buf)
	if err != nil {
		return nil, buf, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	switch {
	case kind == rlp.List:
		// Embedded node. The yellow paper only allows this when the
		// encoding is shorter than a hash.
		if size := len(buf) - len(rest); size > hashLen {
			return nil, buf, fmt.Errorf("%w: oversized embedded node (size %d)", ErrDecode, size)
		}
		n, err := decodeNode(buf[:len(buf)-len(rest)])
		return n, rest, err
	case kind == rlp.String && len(val) == 0:
		return nil, rest, nil
	case kind == rlp.String && len(val) == hashLen:
		return hashNode(val), rest, nil
	default:
		return nil, buf, fmt.Errorf("%w: invalid reference (string of length %d)", ErrDecode, len(val))
	}
}
