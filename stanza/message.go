// Copyright 2015 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"
	"errors"

	"mellium.im/xmlstream"
	"quicksilver.im/xmpp/internal/ns"
	"quicksilver.im/xmpp/jid"
)

// ErrEmptyMessageType reports a Message stanza with an empty type attribute.
// MessageType.MarshalXMLAttr does not return it: an empty type is omitted from
// the output instead.
var ErrEmptyMessageType = errors.New("stanza: empty Message type")

// Message is an XMPP stanza that is used for the push mechanism; the sender
// does not explicitly request a response.
type Message struct {
	XMLName xml.Name    `xml:"message"`
	ID      string      `xml:"id,attr"`
	To      *jid.JID    `xml:"to,attr"`
	From    *jid.JID    `xml:"from,attr"`
	Lang    string      `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Type    MessageType `xml:"type,attr"`
}

// MessageType is the type of a message stanza.
// It should normally be one of the constants defined in this package.
type MessageType string

const (
	// NormalMessage is a standalone message sent outside the context of a
	// one-to-one conversation or groupchat.
	NormalMessage MessageType = "normal"

	// ChatMessage is used in the context of a one-to-one chat session.
	ChatMessage MessageType = "chat"

	// HeadlineMessage provides an alert, a notice, or other transient
	// information to which no reply is expected.
	HeadlineMessage MessageType = "headline"

	// ErrorMessage indicates that an error has occurred regarding processing
	// of a previously sent message.
	ErrorMessage MessageType = "error"
)

// MarshalXMLAttr satisfies the xml.MarshalerAttr interface for MessageType.
func (t MessageType) MarshalXMLAttr(name xml.Name) (attr xml.Attr, err error) {
	s := string(t)
	if s == "" {
		return attr, nil
	}
	attr.Name = name
	attr.Value = s
	return attr, nil
}

// UnmarshalXMLAttr satisfies the xml.UnmarshalerAttr interface for MessageType.
func (t *MessageType) UnmarshalXMLAttr(attr xml.Attr) error {
	*t = MessageType(attr.Value)
	return nil
}

// StartElement returns the XML start element that represents the message.
func (msg Message) StartElement() xml.StartElement {
	name := msg.XMLName
	name.Local = "message"
	start := xml.StartElement{
		Name: name,
		Attr: make([]xml.Attr, 0, 5),
	}
	start.Attr = appendAttr(start.Attr, "type", msg.Type)
	start.Attr = appendAttr(start.Attr, "to", msg.To)
	start.Attr = appendAttr(start.Attr, "from", msg.From)
	if a := langAttr(msg.Lang); a != nil {
		start.Attr = append(start.Attr, *a)
	}
	if msg.ID != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "id"}, Value: msg.ID})
	}
	return start
}

// NewMessage builds a Message from a start element, preserving its original
// XML name so that callers can tell what namespace it arrived on.
func NewMessage(start xml.StartElement) (Message, error) {
	if start.Name.Local != "message" {
		return Message{}, errors.New("stanza: start element is not a message")
	}
	msg := Message{XMLName: start.Name}
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "id":
			msg.ID = a.Value
		case "to":
			var err error
			msg.To, err = jid.Parse(a.Value)
			if err != nil {
				return msg, err
			}
		case "from":
			var err error
			msg.From, err = jid.Parse(a.Value)
			if err != nil {
				return msg, err
			}
		case "lang":
			if a.Name.Space == ns.XML {
				msg.Lang = a.Value
			}
		case "type":
			msg.Type = MessageType(a.Value)
		}
	}
	return msg, nil
}

// Wrap wraps the payload in a message stanza using the message's existing
// attributes.
func (msg Message) Wrap(payload xml.TokenReader) xml.TokenReader {
	return xmlstream.Wrap(payload, msg.StartElement())
}
