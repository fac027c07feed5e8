// Copyright 2024 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package filetransfer wires the Jingle session-negotiation layer together
// with the in-band-bytestream transfer layer and exposes the result as a
// set of mux.IQOptions an XMPP client can register on its dispatcher.
//
// The ibb package never depends on jingle: it sees the session layer only
// through its SessionResolver interface, which jingle.Registry satisfies,
// and ibb.Handler in turn satisfies jingle.TransferCanceler structurally.
// This package is simply where the two concrete types meet, plus the small
// amount of glue needed to route an inbound message to the Jingle handler.
package filetransfer // import "quicksilver.im/xmpp/filetransfer"

import (
	"encoding/xml"

	"mellium.im/xmlstream"
	"quicksilver.im/xmpp/ibb"
	"quicksilver.im/xmpp/jingle"
	"quicksilver.im/xmpp/mux"
	"quicksilver.im/xmpp/stanza"
)

// Transport bundles the session and transfer handlers for a single local
// user, along with accessors a client can use to drive file-transfer UI.
type Transport struct {
	Registry *jingle.Registry
	Sessions *jingle.Handler
	Transfer *ibb.Handler
}

// New constructs a Transport backed by store for received file bytes,
// notifier for progress and session events, and local for resolving the
// user's own address in outbound session-accept stanzas.
func New(store ibb.Store, notifier Notifier, local jingle.Identity) *Transport {
	registry := jingle.NewRegistry()
	transfer := ibb.NewHandler(registry, store, notifier)
	sessions := jingle.NewHandler(registry, transfer, notifier, local)
	return &Transport{
		Registry: registry,
		Sessions: sessions,
		Transfer: transfer,
	}
}

// Notifier is the union of the event-reporting interfaces the session and
// transfer layers each require, so a single implementation can back both.
type Notifier interface {
	ibb.Notifier
	jingle.Notifier
}

// IQOptions returns the mux.IQOptions that register t's handlers for every
// IQ payload namespace this package understands: the Jingle session
// envelope and the in-band-bytestream open/data/close verbs.
func (t *Transport) IQOptions() []mux.IQOption {
	return []mux.IQOption{
		mux.SetIQ(xml.Name{Space: jingle.NS, Local: "jingle"}, t.Sessions),
		mux.SetIQ(xml.Name{Space: ibb.NS}, t.Transfer),
	}
}

// HandleMessage implements mux.MessageHandler, delegating to the session
// layer so that XEP-0353 ring proposals are recognized alongside ordinary
// Jingle session negotiation.
func (t *Transport) HandleMessage(msg stanza.Message, tok xmlstream.TokenReadEncoder) error {
	return t.Sessions.HandleMessage(msg, tok)
}
