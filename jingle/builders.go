// Copyright 2024 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jingle

import (
	"encoding/xml"
	"sort"
	"strconv"

	"mellium.im/xmlstream"
	"quicksilver.im/xmpp/internal/attr"
	"quicksilver.im/xmpp/jid"
	"quicksilver.im/xmpp/stanza"
)

// Reason names why a session was terminated, written as the single child
// element of the outbound reason element.
type Reason string

// Reasons this package emits. XEP-0166 defines many more; only the ones
// this core's state machine can actually produce are named here.
const (
	ReasonSuccess Reason = "success"
	ReasonCancel  Reason = "cancel"
)

func sessionStart(action, sid string) xml.StartElement {
	return xml.StartElement{
		Name: xml.Name{Space: NS, Local: "jingle"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "action"}, Value: action},
			{Name: xml.Name{Local: "sid"}, Value: sid},
		},
	}
}

// terminateReader builds the jingle child of an outbound session-terminate.
func terminateReader(sid string, reason Reason) xml.TokenReader {
	reasonName := xmlstream.Wrap(nil, xml.StartElement{Name: xml.Name{Local: string(reason)}})
	reasonElem := xmlstream.Wrap(reasonName, xml.StartElement{Name: xml.Name{Local: "reason"}})
	return xmlstream.Wrap(reasonElem, sessionStart("session-terminate", sid))
}

// emitTerminate writes a set IQ carrying an outbound session-terminate to t,
// addressed to to. It is a free function (rather than a Handler method) so
// that the Registry can emit it directly when a transfer finishing
// completes a session, without needing a reference back to the Handler.
func emitTerminate(t xmlstream.TokenReadEncoder, to *jid.JID, sid string, reason Reason) error {
	iq := stanza.IQ{ID: attr.RandomID(), To: to, Type: stanza.SetIQ}
	_, err := xmlstream.Copy(t, iq.Wrap(terminateReader(sid, reason)))
	return err
}

// contentAcceptReader builds the content child of an outbound session-accept
// that mirrors the negotiated creator, senders, name, file description, and
// in-band transport of c.
func contentAcceptReader(c *Content) xml.TokenReader {
	descElem := xmlstream.Wrap(c.File.TokenReader(), xml.StartElement{
		Name: xml.Name{Space: NSFileTransfer, Local: "description"},
	})

	transElem := xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Space: NSIBB, Local: "transport"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "sid"}, Value: c.Transport.SID},
			{Name: xml.Name{Local: "block-size"}, Value: strconv.FormatUint(uint64(c.Transport.BlockSize), 10)},
		},
	})

	return xmlstream.Wrap(
		xmlstream.MultiReader(descElem, transElem),
		xml.StartElement{
			Name: xml.Name{Local: "content"},
			Attr: []xml.Attr{
				{Name: xml.Name{Local: "creator"}, Value: c.Creator.String()},
				{Name: xml.Name{Local: "senders"}, Value: c.Senders.String()},
				{Name: xml.Name{Local: "name"}, Value: c.Name},
			},
		},
	)
}

// acceptReader builds the jingle child of an outbound session-accept for
// every content in s, in a stable order so the wire output (and therefore
// any test asserting on it) does not depend on map iteration order.
func acceptReader(s *Session, responder *jid.JID) xml.TokenReader {
	names := make([]string, 0, len(s.Contents))
	for name := range s.Contents {
		names = append(names, name)
	}
	sort.Strings(names)

	readers := make([]xml.TokenReader, 0, len(names))
	for _, name := range names {
		readers = append(readers, contentAcceptReader(s.Contents[name]))
	}

	start := sessionStart("session-accept", s.SID)
	if responder != nil {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "responder"}, Value: responder.String()})
	}
	return xmlstream.Wrap(xmlstream.MultiReader(readers...), start)
}
