// Copyright 2024 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jingle

import (
	"quicksilver.im/xmpp/file"
	"quicksilver.im/xmpp/jid"
)

// State is the lifecycle state of a Session.
type State int

// The states a Session may be in. A Session only ever moves forward through
// this list; it is removed from its Registry rather than regressing.
const (
	Initiated State = iota
	Accepted
	Terminated
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Initiated:
		return "initiated"
	case Accepted:
		return "accepted"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Creator identifies which peer created a Content.
type Creator int

// The valid values of Creator. CreatorUnknown is never produced by a
// successful parse; encountering it on the wire is a parse error that causes
// the content to be rejected.
const (
	CreatorUnknown Creator = iota
	CreatorInitiator
	CreatorResponder
)

// String returns the wire representation of c.
func (c Creator) String() string {
	switch c {
	case CreatorInitiator:
		return "initiator"
	case CreatorResponder:
		return "responder"
	default:
		return "unknown"
	}
}

func parseCreator(s string) (Creator, bool) {
	switch s {
	case "initiator":
		return CreatorInitiator, true
	case "responder":
		return CreatorResponder, true
	default:
		return CreatorUnknown, false
	}
}

// Senders identifies which peer or peers may send over a Content.
type Senders int

// The valid values of Senders. Unlike Creator, an unrecognized senders
// attribute is tolerated and parses to SendersUnknown rather than rejecting
// the content.
const (
	SendersUnknown Senders = iota
	SendersBoth
	SendersInitiator
	SendersResponder
	SendersNone
)

// String returns the wire representation of s.
func (s Senders) String() string {
	switch s {
	case SendersBoth:
		return "both"
	case SendersInitiator:
		return "initiator"
	case SendersResponder:
		return "responder"
	case SendersNone:
		return "none"
	default:
		return "unknown"
	}
}

func parseSenders(s string) Senders {
	switch s {
	case "both":
		return SendersBoth
	case "initiator":
		return SendersInitiator
	case "responder":
		return SendersResponder
	case "none":
		return SendersNone
	default:
		return SendersUnknown
	}
}

// ContentState is the lifecycle state of a Content.
type ContentState int

// The states a Content may be in, monotonically: a Content never regresses
// from TransferFinished back to Active.
const (
	ContentPending ContentState = iota
	ContentActive
	ContentFinished
)

// InBandTransport is the only Transport variant this package understands:
// XEP-0261's binding of an in-band bytestream (XEP-0047) to a Jingle
// content.
type InBandTransport struct {
	SID       string
	BlockSize uint16
}

// Content is one negotiated file-transfer slot within a Session. Only the
// file-transfer description and in-band-bytestream transport variants are
// represented; any other combination is rejected while parsing the
// session-initiate that offered it and never becomes a Content.
type Content struct {
	Name      string
	Creator   Creator
	Senders   Senders
	File      file.Info
	Transport InBandTransport
	State     ContentState
}

// Session is one Jingle negotiation with a remote peer, identified by its
// sid. A Session exists in a Registry for exactly as long as its State is
// Initiated or Accepted.
type Session struct {
	SID       string
	Initiator *jid.JID
	State     State
	Contents  map[string]*Content
}

// allFinished reports whether every content in the session has reached
// ContentFinished. An empty content map never occurs for a live session: a
// session-initiate that parses to zero contents is terminated before it is
// ever inserted into a Registry.
func (s *Session) allFinished() bool {
	for _, c := range s.Contents {
		if c.State != ContentFinished {
			return false
		}
	}
	return true
}
