// Copyright 2016 Sam Whited.
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

// Errors returned by the stanza package.
var (
	ErrEmptyIQType = errors.New("stanza: empty IQ type")
)

// IQ ("Information Query") is used as a general request response mechanism.
// IQ's are one-to-one, provide get and set semantics, and always require a
// response in the form of a result or an error.
type IQ struct {
	XMLName xml.Name `xml:"iq"`
	ID      string   `xml:"id,attr"`
	To      *jid.JID `xml:"to,attr"`
	From    *jid.JID `xml:"from,attr"`
	Lang    string   `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Type    IQType   `xml:"type,attr"`
}

// IQType is the type of an IQ stanza.
// It should normally be one of the constants defined in this package.
type IQType string

const (
	// GetIQ is used to query another entity for information.
	GetIQ IQType = "get"

	// SetIQ is used to provide data to another entity, set new values, and
	// replace existing values.
	SetIQ IQType = "set"

	// ResultIQ is sent in response to a successful get or set IQ.
	ResultIQ IQType = "result"

	// ErrorIQ is sent to report that an error occurred during the delivery or
	// processing of a get or set IQ.
	ErrorIQ IQType = "error"
)

// MarshalXMLAttr satisfies the xml.MarshalerAttr interface for IQType.
// It returns ErrEmptyIQType when trying to marshal an IQ stanza with an empty
// type attribute.
func (t IQType) MarshalXMLAttr(name xml.Name) (attr xml.Attr, err error) {
	s := string(t)
	if s == "" {
		return attr, ErrEmptyIQType
	}
	attr.Name = name
	attr.Value = s
	return attr, nil
}

// MarshalText satisfies the encoding.TextMarshaler interface for IQType.
// Like MarshalXMLAttr, it returns ErrEmptyIQType for an empty type.
func (t IQType) MarshalText() ([]byte, error) {
	if t == "" {
		return nil, ErrEmptyIQType
	}
	return []byte(t), nil
}

// UnmarshalXMLAttr satisfies the xml.UnmarshalerAttr interface for IQType.
func (t *IQType) UnmarshalXMLAttr(attr xml.Attr) error {
	*t = IQType(attr.Value)
	return nil
}

// StartElement returns the XML start element that represents the IQ. It is
// useful for marshaling the IQ using xmlstream.
func (iq IQ) StartElement() xml.StartElement {
	name := iq.XMLName
	name.Local = "iq"
	start := xml.StartElement{
		Name: name,
		Attr: make([]xml.Attr, 0, 5),
	}
	start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "type"}, Value: string(iq.Type)})
	start.Attr = appendAttr(start.Attr, "to", iq.To)
	start.Attr = appendAttr(start.Attr, "from", iq.From)
	if a := langAttr(iq.Lang); a != nil {
		start.Attr = append(start.Attr, *a)
	}
	if iq.ID != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "id"}, Value: iq.ID})
	}
	return start
}

// NewIQ builds an IQ from a start element, without validating the stanza
// semantics of the result; the start element's name is preserved so that
// callers can distinguish which namespace the stanza arrived on.
func NewIQ(start xml.StartElement) (IQ, error) {
	iq := IQ{XMLName: start.Name}
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "id":
			iq.ID = a.Value
		case "to":
			var err error
			iq.To, err = jid.Parse(a.Value)
			if err != nil {
				return iq, err
			}
		case "from":
			var err error
			iq.From, err = jid.Parse(a.Value)
			if err != nil {
				return iq, err
			}
		case "lang":
			if a.Name.Space == ns.XML {
				iq.Lang = a.Value
			}
		case "type":
			iq.Type = IQType(a.Value)
		}
	}
	return iq, nil
}

// Wrap wraps the payload in an IQ stanza using the IQ's existing attributes.
func (iq IQ) Wrap(payload xml.TokenReader) xml.TokenReader {
	return xmlstream.Wrap(payload, iq.StartElement())
}

// Result returns a token reader that wraps payload in an IQ of type result
// addressed back to the original sender, swapping To and From and copying the
// ID. This is the normal way to construct an "ack" style response.
func (iq IQ) Result(payload xml.TokenReader) xml.TokenReader {
	reply := IQ{
		ID:   iq.ID,
		To:   iq.From,
		From: iq.To,
		Type: ResultIQ,
	}
	return reply.Wrap(payload)
}

// Error returns a token reader that wraps an Error in an IQ of type error,
// addressed back to the original sender.
func (iq IQ) Error(e Error) xml.TokenReader {
	reply := IQ{
		ID:   iq.ID,
		To:   iq.From,
		From: iq.To,
		Type: ErrorIQ,
	}
	return reply.Wrap(e.TokenReader())
}
