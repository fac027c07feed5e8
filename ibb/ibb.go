// Copyright 2020 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ibb implements the receiving side of XEP-0047: In-Band
// Bytestreams.
//
// In-band bytestreams (IBB) carry opaque, base64-encoded data blocks inside
// the normal request/response IQ channel rather than over a separate
// connection. Because of this it is extremely inefficient and is normally
// only used as a fallback transport for a file-transfer session negotiated by
// Jingle; this package implements only the receive side of that transfer,
// keyed by the transport sid a Jingle content negotiated.
package ibb // import "quicksilver.im/xmpp/ibb"

import (
	"encoding/xml"
	"io"
	"strconv"
	"sync"

	"mellium.im/xmlstream"
	"quicksilver.im/xmpp/file"
	"quicksilver.im/xmpp/internal/attr"
	"quicksilver.im/xmpp/jid"
	"quicksilver.im/xmpp/stanza"
)

// NS is the namespace used by in-band bytestream elements.
const NS = "http://jabber.org/protocol/ibb"

// ContentInfo is the information the session layer holds about a negotiated
// file-transfer content that a Transfer needs in order to open, sequence, and
// close one in-band bytestream.
type ContentInfo struct {
	BlockSize uint16
	File      file.Info
}

// SessionResolver is the narrow view of the session layer the transfer state
// machine requires. It is satisfied by the Jingle session registry.
type SessionResolver interface {
	// ResolveTransport looks up the content that negotiated the in-band
	// bytestream identified by sid.
	ResolveTransport(sid string) (ContentInfo, bool)
	// FinishTransport marks the content that owns sid as finished. If this
	// was the last unfinished content in its session, the session layer may
	// use t to emit a session-terminate before the call returns.
	FinishTransport(t xmlstream.TokenReadEncoder, sid string)
	// MarkActive marks the content that owns sid as actively transferring,
	// called once a Transfer is created for it.
	MarkActive(sid string)
}

// Store opens the local destination for a received file. Implementations are
// responsible for resolving a download directory and choosing a unique
// filename; name is the file name offered by the peer and is an input to
// that decision, not a path.
type Store interface {
	Create(name string) (io.WriteCloser, error)
}

// Notifier reports transfer progress and failures to the user.
type Notifier interface {
	Info(msg string)
	Error(msg string)
}

// Handler multiplexes in-band bytestream IQs across the active transfers of a
// process. A Handler is not thread-safe for concurrent registration, but
// HandleIQ may be called from the dispatch goroutine the XMPP engine drives
// envelopes from.
type Handler struct {
	Resolver SessionResolver
	Store    Store
	Notifier Notifier

	mu        sync.Mutex
	transfers map[string]*transfer
}

// NewHandler creates a Handler ready to accept in-band bytestreams for
// contents known to resolver.
func NewHandler(resolver SessionResolver, store Store, notifier Notifier) *Handler {
	return &Handler{
		Resolver:  resolver,
		Store:     store,
		Notifier:  notifier,
		transfers: make(map[string]*transfer),
	}
}

// HandleIQ implements mux.IQHandler, dispatching open, data, and close verbs
// to the transfer state machine.
func (h *Handler) HandleIQ(iq stanza.IQ, t xmlstream.TokenReadEncoder, start *xml.StartElement) error {
	if start == nil || start.Name.Space != NS {
		return nil
	}

	switch start.Name.Local {
	case "open":
		return h.handleOpen(iq, t, *start)
	case "data":
		return h.handleData(iq, t, *start)
	case "close":
		return h.handleClose(iq, t, *start)
	}
	return nil
}

func (h *Handler) getTransfer(sid string) (*transfer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	x, ok := h.transfers[sid]
	return x, ok
}

func (h *Handler) addTransfer(x *transfer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transfers[x.sid] = x
}

func (h *Handler) removeTransfer(sid string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.transfers, sid)
}

func (h *Handler) handleOpen(iq stanza.IQ, t xmlstream.TokenReadEncoder, start xml.StartElement) error {
	var p openPayload
	if err := xml.NewTokenDecoder(t).DecodeElement(&p, &start); err != nil {
		return err
	}

	if _, ok := h.getTransfer(p.SID); ok {
		if h.Notifier != nil {
			h.Notifier.Error("double session initiation for " + p.SID)
		}
		return h.replyError(iq, t, stanza.Error{Type: stanza.Cancel, Condition: stanza.NotAcceptable})
	}

	info, ok := h.Resolver.ResolveTransport(p.SID)
	if !ok {
		return h.replyError(iq, t, stanza.Error{Type: stanza.Cancel, Condition: stanza.NotAcceptable})
	}

	if !blockSizeMatches(p.BlockSize, info.BlockSize) {
		return h.replyError(iq, t, stanza.Error{Type: stanza.Modify, Condition: stanza.ResourceConstraint})
	}

	h.addTransfer(&transfer{sid: p.SID, file: info.File})
	h.Resolver.MarkActive(p.SID)
	_, err := xmlstream.Copy(t, iq.Result(nil))
	return err
}

func (h *Handler) handleData(iq stanza.IQ, t xmlstream.TokenReadEncoder, start xml.StartElement) error {
	var p dataPayload
	if err := xml.NewTokenDecoder(t).DecodeElement(&p, &start); err != nil {
		return err
	}

	x, ok := h.getTransfer(p.SID)
	if !ok {
		return h.replyError(iq, t, stanza.Error{Type: stanza.Cancel, Condition: stanza.ItemNotFound})
	}

	seq, err := parseSeq(p.Seq)
	if err != nil {
		// Malformed sequence numbers are dropped silently; the peer will time
		// out or close the stream itself.
		return nil
	}

	data, err := decodeBlock(p.Data)
	if err != nil {
		return h.replyError(iq, t, stanza.Error{Type: stanza.Cancel, Condition: stanza.BadRequest})
	}

	if !x.acceptSeq(seq) {
		h.abort(x, t, iq.From)
		if h.Notifier != nil {
			h.Notifier.Error("out-of-order block for " + x.file.Name + ", closing transfer")
		}
		return nil
	}

	if x.sink == nil {
		sink, err := h.Store.Create(x.file.Name)
		if err != nil {
			h.abort(x, t, iq.From)
			if h.Notifier != nil {
				h.Notifier.Error("could not open download for " + x.file.Name)
			}
			return nil
		}
		x.sink = sink
	}

	if _, err := x.sink.Write(data); err != nil {
		h.abort(x, t, iq.From)
		if h.Notifier != nil {
			h.Notifier.Error("write failed for " + x.file.Name)
		}
		return nil
	}
	x.bytesWritten += uint64(len(data))

	if _, err := xmlstream.Copy(t, iq.Result(nil)); err != nil {
		return err
	}

	if x.bytesWritten >= x.file.Size {
		h.finish(x, t, iq.From)
		if h.Notifier != nil {
			h.Notifier.Info("download finished: " + x.file.Name + ", " + strconv.FormatUint(x.bytesWritten, 10) + " bytes")
		}
	}
	return nil
}

func (h *Handler) handleClose(iq stanza.IQ, t xmlstream.TokenReadEncoder, start xml.StartElement) error {
	var p closePayload
	if err := xml.NewTokenDecoder(t).DecodeElement(&p, &start); err != nil {
		return err
	}

	x, ok := h.getTransfer(p.SID)
	if !ok {
		return h.replyError(iq, t, stanza.Error{Type: stanza.Cancel, Condition: stanza.ItemNotFound})
	}

	h.closeTransfer(x)
	h.Resolver.FinishTransport(t, x.sid)
	_, err := xmlstream.Copy(t, iq.Result(nil))
	return err
}

// closeTransfer flushes and releases x's sink and removes it from the
// registry. It does not notify the session layer; callers that need that do
// so explicitly.
func (h *Handler) closeTransfer(x *transfer) {
	h.removeTransfer(x.sid)
	if x.sink != nil {
		x.sink.Close()
	}
}

// abort closes x locally and sends an outbound close to the peer, without
// marking the owning content finished (the transfer ended in error, not
// completion).
func (h *Handler) abort(x *transfer, t xmlstream.TokenReadEncoder, to *jid.JID) {
	h.closeTransfer(x)
	h.sendClose(t, to, x.sid)
}

// finish closes x locally, notifies the session layer that its content is
// done, and sends an outbound close to the peer.
func (h *Handler) finish(x *transfer, t xmlstream.TokenReadEncoder, to *jid.JID) {
	h.closeTransfer(x)
	h.sendClose(t, to, x.sid)
	h.Resolver.FinishTransport(t, x.sid)
}

// CancelTransfers closes and releases the sinks of any active transfers
// among sids without notifying the peer or the session layer. It is used
// when the Jingle session owning those transfers has already been torn down
// by a session-terminate, so no further wire traffic for them is expected.
func (h *Handler) CancelTransfers(sids []string) {
	for _, sid := range sids {
		if x, ok := h.getTransfer(sid); ok {
			h.closeTransfer(x)
		}
	}
}

func (h *Handler) sendClose(t xmlstream.TokenReadEncoder, to *jid.JID, sid string) {
	iq := stanza.IQ{ID: attr.RandomID(), To: to, Type: stanza.SetIQ}
	xmlstream.Copy(t, iq.Wrap(closeToken(sid)))
}

func (h *Handler) replyError(iq stanza.IQ, t xmlstream.TokenReadEncoder, e stanza.Error) error {
	_, err := xmlstream.Copy(t, iq.Error(e))
	return err
}
