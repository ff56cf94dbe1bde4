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
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/holiman/uint256"

	"github.com/statetrace/statetrace/trie/mpt"
)

// The wire format is a small outer envelope around a snappy-compressed RLP
// payload:
//
//	frame := magic (4 bytes) || version (1 byte) || snappy(rlp(extWitness))
//
// The magic tag rejects arbitrary files early, the version byte keeps the
// payload schema evolvable, and compression pays for itself on node
// encodings, which share long hash strings.
var frameMagic = [4]byte{'s', 't', 'w', 0x00}

// codecVersion is the only payload schema this build reads and writes.
const codecVersion = 1

// extWitness is the wire form of a witness. Nodes and codes appear once
// each, in hash order; claims reference them implicitly through the shared
// store after decode.
type extWitness struct {
	Number      uint64
	Root        common.Hash
	Nodes       [][]byte
	Codes       [][]byte
	Accounts    []extAccount
	BlockHashes []extBlockHash
}

type extAccount struct {
	Address     common.Address
	Nonce       uint64
	Balance     *uint256.Int
	StorageRoot common.Hash
	CodeHash    common.Hash
	Slots       []extSlot
}

type extSlot struct {
	Key   common.Hash
	Value *uint256.Int
}

type extBlockHash struct {
	Number uint64
	Hash   common.Hash
}

// EncodeFrame serializes the witness. The output is deterministic: nodes and
// codes in hash order, block hashes in number order, claims in registration
// order.
func (w *Witness) EncodeFrame() ([]byte, error) {
	ext := extWitness{
		Number: w.number,
		Root:   w.proof.Root(),
		Nodes:  w.proof.Nodes(),
		Codes:  w.proof.Codes(),
	}
	for _, claim := range w.proof.Claims() {
		acc := extAccount{
			Address:     claim.Address,
			Nonce:       claim.Nonce,
			Balance:     claim.Balance,
			StorageRoot: claim.StorageRoot,
			CodeHash:    claim.CodeHash,
		}
		for _, slot := range claim.Slots {
			acc.Slots = append(acc.Slots, extSlot{Key: slot.Key, Value: slot.Value})
		}
		ext.Accounts = append(ext.Accounts, acc)
	}
	for n, h := range w.blockHashes {
		ext.BlockHashes = append(ext.BlockHashes, extBlockHash{Number: n, Hash: h})
	}
	sort.Slice(ext.BlockHashes, func(i, j int) bool {
		return ext.BlockHashes[i].Number < ext.BlockHashes[j].Number
	})

	payload, err := rlp.EncodeToBytes(&ext)
	if err != nil {
		return nil, fmt.Errorf("encode witness payload: %w", err)
	}
	compressed := snappy.Encode(nil, payload)
	out := make([]byte, 0, len(frameMagic)+1+len(compressed))
	out = append(out, frameMagic[:]...)
	out = append(out, codecVersion)
	return append(out, compressed...), nil
}

// DecodeFrame parses a serialized witness and rebuilds it through the same
// structural checks the builder applies, so a frame that decodes is already
// internally consistent. Claim verification against the root is still the
// caller's move.
func DecodeFrame(data []byte) (*Witness, error) {
	if len(data) < len(frameMagic)+1 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncatedFrame, len(data))
	}
	if !bytes.Equal(data[:len(frameMagic)], frameMagic[:]) {
		return nil, ErrBadMagic
	}
	if v := data[len(frameMagic)]; v != codecVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	payload, err := snappy.Decode(nil, data[len(frameMagic)+1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	var ext extWitness
	if err := rlp.DecodeBytes(payload, &ext); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	claims := make([]mpt.AccountClaim, 0, len(ext.Accounts))
	for _, acc := range ext.Accounts {
		claim := mpt.AccountClaim{
			Address:     acc.Address,
			Nonce:       acc.Nonce,
			Balance:     acc.Balance,
			StorageRoot: acc.StorageRoot,
			CodeHash:    acc.CodeHash,
		}
		for _, slot := range acc.Slots {
			claim.Slots = append(claim.Slots, mpt.SlotClaim{Key: slot.Key, Value: slot.Value})
		}
		claims = append(claims, claim)
	}
	proof, err := mpt.FromParts(ext.Root, ext.Nodes, ext.Codes, claims)
	if err != nil {
		return nil, err
	}
	hashes := make(map[uint64]common.Hash, len(ext.BlockHashes))
	for _, bh := range ext.BlockHashes {
		hashes[bh.Number] = bh.Hash
	}
	return NewWitness(ext.Number, proof, hashes)
}
