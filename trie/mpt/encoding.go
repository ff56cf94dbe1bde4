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

import "fmt"

// Trie keys are used in three encodings:
//
// KEYBYTES encoding contains the actual key and nothing else. This is the
// input to hashing, e.g. keccak256(address).
//
// HEX encoding contains one byte for each nibble of the key and an optional
// trailing terminator byte 0x10 which flags whether or not the node at the
// key contains a value. Hex encoding is used for paths walked in memory.
//
// COMPACT encoding ("hex prefix encoding" in the yellow paper) contains the
// nibbles of the key packed into bytes behind a prefix nibble pair that
// disambiguates node kind and odd/even path length. It is used for the key
// item of short nodes on the wire.

const terminator = 16

// keybytesToHex expands a key into one-nibble-per-byte hex form with a
// trailing terminator.
func keybytesToHex(key []byte) []byte {
	length := len(key)*2 + 1
	nibbles := make([]byte, length)
	for i, b := range key {
		nibbles[i*2] = b / 16
		nibbles[i*2+1] = b % 16
	}
	nibbles[length-1] = terminator
	return nibbles
}

// hexToCompact packs a hex path into compact form. The terminator, if
// present, is folded into the prefix nibble.
func hexToCompact(hex []byte) []byte {
	tm := byte(0)
	if hasTerm(hex) {
		tm = 1
		hex = hex[:len(hex)-1]
	}
	buf := make([]byte, len(hex)/2+1)
	buf[0] = tm << 5 // flag 0b0010_0000 for leaves
	if len(hex)&1 == 1 {
		buf[0] |= 1 << 4 // odd flag
		buf[0] |= hex[0] // first nibble rides in the prefix byte
		hex = hex[1:]
	}
	decodeNibbles(hex, buf[1:])
	return buf
}

// compactToHex unpacks compact form into hex form. It rejects prefixes whose
// flag nibble is out of range or whose odd flag disagrees with the padding
// nibble.
func compactToHex(compact []byte) ([]byte, error) {
	if len(compact) == 0 {
		return nil, fmt.Errorf("%w: empty key", ErrBadPrefix)
	}
	if compact[0]>>6 != 0 {
		// Only prefix nibbles 0-3 are defined.
		return nil, fmt.Errorf("%w: flag nibble %#x", ErrBadPrefix, compact[0]>>4)
	}
	base := keybytesToHex(compact)
	// Delete terminator flag unless the prefix marks a leaf.
	if base[0] < 2 {
		base = base[:len(base)-1]
	}
	// Apply odd flag: skip the whole prefix byte for even paths, only the
	// flag nibble for odd ones.
	chop := 2 - base[0]&1
	if base[0]&1 == 0 && base[1] != 0 {
		return nil, fmt.Errorf("%w: nonzero padding nibble", ErrBadPrefix)
	}
	return base[chop:], nil
}

func decodeNibbles(nibbles []byte, bytes []byte) {
	for bi, ni := 0, 0; ni < len(nibbles); bi, ni = bi+1, ni+2 {
		bytes[bi] = nibbles[ni]<<4 | nibbles[ni+1]
	}
}

// prefixLen returns the length of the common prefix of a and b.
func prefixLen(a, b []byte) int {
	var i, length = 0, len(a)
	if len(b) < length {
		length = len(b)
	}
	for ; i < length; i++ {
		if a[i] != b[i] {
			break
		}
	}
	return i
}

// hasTerm reports whether a hex path ends with the value terminator.
func hasTerm(s []byte) bool {
	return len(s) > 0 && s[len(s)-1] == terminator
}
