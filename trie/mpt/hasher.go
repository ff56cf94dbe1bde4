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
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// hasherPool holds reusable keccak states. Proof building and verification
// hash every node once, so allocation here shows up quickly.
var hasherPool = sync.Pool{
	New: func() any { return crypto.NewKeccakState() },
}

// hashData returns the keccak256 hash of the given bytes.
func hashData(data []byte) common.Hash {
	h := hasherPool.Get().(crypto.KeccakState)
	defer hasherPool.Put(h)

	var out common.Hash
	h.Reset()
	h.Write(data)
	h.Read(out[:])
	return out
}
