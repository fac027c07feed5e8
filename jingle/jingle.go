// Copyright 2024 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package jingle implements the session-negotiation layer of XEP-0166:
// Jingle, restricted to the content types this module understands: a
// XEP-0234 file-transfer description carried over a XEP-0047 in-band
// bytestream transport.
//
// A Jingle session is a multi-content negotiation between two peers. This
// package parses session-initiate offers, tracks the resulting sessions in a
// Registry, emits session-accept and session-terminate, and resolves the
// transport sid a content negotiated so the ibb package can open, sequence,
// and close the bytes it carries. It does not implement any other Jingle
// application (RTP) or transport (SOCKS5); unsupported content is rejected
// during parsing rather than causing a protocol error.
package jingle // import "quicksilver.im/xmpp/jingle"

// NS is the namespace of the Jingle session envelope (XEP-0166).
const NS = "urn:xmpp:jingle:1"

// NSFileTransfer is the namespace of a XEP-0234 file-transfer description.
const NSFileTransfer = "urn:xmpp:jingle:apps:file-transfer:5"

// NSIBB is the namespace of a Jingle in-band-bytestream transport (XEP-0261).
const NSIBB = "urn:xmpp:jingle:transports:ibb:1"

// NSMessage is the namespace of XEP-0353: Jingle Message Initiation ring
// proposals.
const NSMessage = "urn:xmpp:jingle-message:0"

// NSRTP is the namespace of a Jingle RTP description (XEP-0167). This
// package only uses it to recognize, and decline to handle, an RTP session
// proposal; audio/video content is otherwise out of scope.
const NSRTP = "urn:xmpp:jingle:apps:rtp:1"
