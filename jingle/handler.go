// Copyright 2024 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jingle

import (
	"encoding/xml"
	"io"
	"strconv"

	"mellium.im/xmlstream"
	"quicksilver.im/xmpp/internal/attr"
	"quicksilver.im/xmpp/jid"
	"quicksilver.im/xmpp/stanza"
)

// Identity resolves the local user's own address, used to fill the
// responder attribute of an outbound session-accept.
type Identity interface {
	LocalBare() *jid.JID
}

// Notifier reports session and call events to the user.
type Notifier interface {
	Info(msg string)
	Error(msg string)
	Alert()
}

// TransferCanceler is the narrow view of the transfer layer the session
// state machine needs in order to cancel in-flight transfers when their
// owning session is torn down. It is satisfied by *ibb.Handler.
type TransferCanceler interface {
	CancelTransfers(sids []string)
}

// Handler implements mux.IQHandler for Jingle session envelopes and the
// HandleMessage signature mux.MessageHandler expects for XEP-0353 ring
// proposals. It is the entry point for XEP-0166 session negotiation
// restricted to the XEP-0234-over-XEP-0047 file-transfer profile.
type Handler struct {
	Registry  *Registry
	Transfers TransferCanceler
	Notifier  Notifier
	Local     Identity
}

// NewHandler returns a Handler that tracks sessions in registry and cancels
// their transfers through transfers when a session is torn down.
func NewHandler(registry *Registry, transfers TransferCanceler, notifier Notifier, local Identity) *Handler {
	return &Handler{
		Registry:  registry,
		Transfers: transfers,
		Notifier:  notifier,
		Local:     local,
	}
}

// HandleIQ implements mux.IQHandler, dispatching session-initiate and
// session-terminate to the state machine and acknowledging every other
// Jingle action structurally without further processing.
func (h *Handler) HandleIQ(iq stanza.IQ, t xmlstream.TokenReadEncoder, start *xml.StartElement) error {
	if start == nil || start.Name.Space != NS || start.Name.Local != "jingle" {
		return nil
	}

	var p jinglePayload
	if err := xml.NewTokenDecoder(t).DecodeElement(&p, start); err != nil {
		return err
	}

	switch p.Action {
	case "session-initiate":
		return h.handleInitiate(iq, t, p)
	case "session-terminate":
		return h.handleTerminate(iq, t, p)
	default:
		// session-info, session-accept (we are never the initiator in this
		// core), and the transport-* renegotiation actions are acknowledged
		// but otherwise unhandled.
		_, err := xmlstream.Copy(t, iq.Result(nil))
		return err
	}
}

// HandleMessage implements mux.MessageHandler, recognizing a XEP-0353 ring
// proposal whose payload is an RTP description and surfacing it to the
// user. Every other message is left unhandled.
func (h *Handler) HandleMessage(msg stanza.Message, t xmlstream.TokenReadEncoder) error {
	tok, err := t.Token()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	start, ok := tok.(xml.StartElement)
	if !ok || start.Name.Space != NSMessage || start.Name.Local != "propose" {
		return nil
	}

	var p proposePayload
	if err := xml.NewTokenDecoder(t).DecodeElement(&p, &start); err != nil {
		return err
	}
	if p.Description.XMLName.Space != NSRTP {
		return nil
	}

	if h.Notifier != nil {
		from := ""
		if msg.From != nil {
			from = msg.From.String()
		}
		h.Notifier.Info("incoming call from " + from)
		h.Notifier.Alert()
	}
	return nil
}

func (h *Handler) handleInitiate(iq stanza.IQ, t xmlstream.TokenReadEncoder, p jinglePayload) error {
	if p.SID == "" || p.Initiator == "" {
		// Malformed: missing sid or initiator. Dropped silently, per the
		// malformed-envelope tier.
		return nil
	}
	if iq.From == nil || p.Initiator != iq.From.String() {
		return nil
	}

	// Transport-level acceptance is acknowledged before any application-level
	// processing of the contents.
	if _, err := xmlstream.Copy(t, iq.Result(nil)); err != nil {
		return err
	}

	if len(p.Contents) == 0 {
		if h.Notifier != nil {
			h.Notifier.Error("jingle: session-initiate with no content, sid " + p.SID)
		}
		return emitTerminate(t, iq.From, p.SID, ReasonCancel)
	}

	contents := make(map[string]*Content)
	seenTransport := make(map[string]bool)
	for _, cp := range p.Contents {
		c, ok := h.parseContent(cp)
		if !ok {
			continue
		}
		if _, dup := contents[c.Name]; dup {
			if h.Notifier != nil {
				h.Notifier.Error("jingle: duplicate content " + c.Name + ", rejecting")
			}
			continue
		}
		if _, _, exists := h.Registry.ContentByTransport(c.Transport.SID); exists || seenTransport[c.Transport.SID] {
			if h.Notifier != nil {
				h.Notifier.Error("jingle: transport sid already in use " + c.Transport.SID)
			}
			continue
		}
		seenTransport[c.Transport.SID] = true
		contents[c.Name] = c
	}

	if len(contents) == 0 {
		return emitTerminate(t, iq.From, p.SID, ReasonCancel)
	}

	s := &Session{
		SID:       p.SID,
		Initiator: iq.From,
		State:     Accepted,
		Contents:  contents,
	}
	h.Registry.insert(s)
	return h.emitAccept(t, s)
}

func (h *Handler) handleTerminate(iq stanza.IQ, t xmlstream.TokenReadEncoder, p jinglePayload) error {
	s, ok := h.Registry.Session(p.SID)
	if !ok {
		// A second session-terminate for an already-gone sid is a no-op: no
		// envelope is sent and nothing changes.
		return nil
	}

	if _, err := xmlstream.Copy(t, iq.Result(nil)); err != nil {
		return err
	}

	h.teardown(s)
	return nil
}

// teardown cancels every in-flight transfer belonging to s and removes s
// from the registry. It does not emit a session-terminate of its own: its
// caller, handleTerminate, has already received one.
func (h *Handler) teardown(s *Session) {
	sids := make([]string, 0, len(s.Contents))
	for _, c := range s.Contents {
		sids = append(sids, c.Transport.SID)
	}
	if h.Transfers != nil {
		h.Transfers.CancelTransfers(sids)
	}
	h.Registry.remove(s.SID)
}

func (h *Handler) emitAccept(t xmlstream.TokenReadEncoder, s *Session) error {
	var responder *jid.JID
	if h.Local != nil {
		responder = h.Local.LocalBare()
	}
	iq := stanza.IQ{ID: attr.RandomID(), To: s.Initiator, Type: stanza.SetIQ}
	_, err := xmlstream.Copy(t, iq.Wrap(acceptReader(s, responder)))
	return err
}

// parseContent validates and extracts one content child of a
// session-initiate. It reports ok=false for every condition in which the
// content should be silently skipped rather than become part of the
// session: an unsupported description or transport namespace, a missing or
// invalid creator, a missing file element, or an unparsable block-size.
// (A file element whose size does not parse fails the payload decode in
// HandleIQ instead, dropping the whole envelope as malformed.)
func (h *Handler) parseContent(cp contentPayload) (*Content, bool) {
	if cp.Name == "" {
		return nil, false
	}
	if cp.Description.XMLName.Space != NSFileTransfer {
		return nil, false
	}
	if cp.Transport.XMLName.Space != NSIBB {
		return nil, false
	}
	creator, ok := parseCreator(cp.Creator)
	if !ok {
		return nil, false
	}
	if cp.Description.File == nil {
		return nil, false
	}
	if cp.Transport.SID == "" {
		return nil, false
	}
	blockSize, err := strconv.ParseUint(cp.Transport.BlockSize, 10, 16)
	if err != nil {
		return nil, false
	}

	return &Content{
		Name:      cp.Name,
		Creator:   creator,
		Senders:   parseSenders(cp.Senders),
		File:      *cp.Description.File,
		Transport: InBandTransport{SID: cp.Transport.SID, BlockSize: uint16(blockSize)},
		State:     ContentPending,
	}, true
}
