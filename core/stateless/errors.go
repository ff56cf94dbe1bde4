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

import "errors"

var (
	// ErrUnprovenAccess is returned when execution reads state the witness
	// carries no claim for. The witness is incomplete for the block it is
	// meant to back, which is a build-side bug, not a verification failure.
	ErrUnprovenAccess = errors.New("access to unproven state")

	// ErrBlockHashUnavailable is returned when a block hash inside the
	// protocol lookback window is not carried by the witness.
	ErrBlockHashUnavailable = errors.New("block hash not in witness")

	// ErrBlockHashWindow is returned when a witness carries a block hash
	// entry outside the protocol lookback window relative to its block.
	ErrBlockHashWindow = errors.New("block hash outside lookback window")

	// ErrBadMagic is returned when a frame does not start with the witness
	// magic tag.
	ErrBadMagic = errors.New("not a witness frame")

	// ErrUnsupportedVersion is returned when a frame carries a codec
	// version this build does not speak.
	ErrUnsupportedVersion = errors.New("unsupported witness version")

	// ErrTruncatedFrame is returned when a frame ends before the outer
	// envelope is complete.
	ErrTruncatedFrame = errors.New("truncated witness frame")

	// ErrMalformedFrame is returned when the envelope is intact but the
	// compressed payload does not decode.
	ErrMalformedFrame = errors.New("malformed witness frame")
)
