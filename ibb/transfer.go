// Copyright 2020 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ibb

import (
	"encoding/base64"
	"io"
	"strconv"

	"quicksilver.im/xmpp/file"
)

// transfer is an active in-band bytestream reception, keyed by the sid its
// owning Jingle content negotiated.
type transfer struct {
	sid          string
	file         file.Info
	started      bool
	expectedSeq  uint16
	sink         io.WriteCloser
	bytesWritten uint64
}

// acceptSeq reports whether seq is the next sequence number this transfer
// may accept, advancing its internal counter if so. Counting wraps modulo
// 65536 as permitted by the XEP, which falls out of plain uint16 overflow.
func (x *transfer) acceptSeq(seq uint16) bool {
	if !x.started {
		if seq != 0 {
			return false
		}
		x.started = true
		return true
	}
	if seq != x.expectedSeq+1 {
		return false
	}
	x.expectedSeq = seq
	return true
}

func parseSeq(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(n), nil
}

// decodeBlock decodes a base64 data block. A decoded length of zero is a
// valid, empty block; only a malformed encoding is an error.
func decodeBlock(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// blockSizeMatches compares the wire block-size attribute against the
// negotiated block size as decimal integers, not as raw strings.
func blockSizeMatches(wire string, want uint16) bool {
	n, err := strconv.ParseUint(wire, 10, 16)
	if err != nil {
		return false
	}
	return uint16(n) == want
}
