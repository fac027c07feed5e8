// Copyright 2024 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package file contains shared functionality for describing files offered or
// transferred between peers.
package file

import (
	"encoding/xml"
	"strconv"

	"mellium.im/xmlstream"
	"quicksilver.im/xmpp/crypto"
)

// Info describes a file offered as the payload of a Jingle file-transfer
// description (XEP-0234). Unlike the bare XEP-0300 hash element, Size is
// parsed once from its wire decimal representation and stored as a number;
// Hash is carried through but never verified against the received bytes.
type Info struct {
	MediaType string
	Name      string
	Date      string
	Size      uint64
	Hash      *crypto.HashOutput
}

// TokenReader satisfies the xmlstream.Marshaler interface. The returned file
// element carries no namespace of its own; it inherits whatever namespace the
// enclosing description element is wrapped in.
func (i Info) TokenReader() xml.TokenReader {
	readers := []xml.TokenReader{
		xmlstream.Wrap(
			xmlstream.Token(xml.CharData(i.Name)),
			xml.StartElement{Name: xml.Name{Local: "name"}},
		),
		xmlstream.Wrap(
			xmlstream.Token(xml.CharData(i.MediaType)),
			xml.StartElement{Name: xml.Name{Local: "media-type"}},
		),
		xmlstream.Wrap(
			xmlstream.Token(xml.CharData(i.Date)),
			xml.StartElement{Name: xml.Name{Local: "date"}},
		),
		xmlstream.Wrap(
			xmlstream.Token(xml.CharData(strconv.FormatUint(i.Size, 10))),
			xml.StartElement{Name: xml.Name{Local: "size"}},
		),
	}
	if i.Hash != nil {
		readers = append(readers, i.Hash.TokenReader())
	}
	return xmlstream.Wrap(
		xmlstream.MultiReader(readers...),
		xml.StartElement{Name: xml.Name{Local: "file"}},
	)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
func (i Info) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, i.TokenReader())
}

// UnmarshalXML implements xml.Unmarshaler by delegating to ParseInfo.
func (i *Info) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	info, err := ParseInfo(d, start)
	if err != nil {
		return err
	}
	*i = info
	return nil
}

// ParseInfo decodes a file element (the child of a Jingle file-transfer
// description) into an Info, parsing size as an unsigned integer. It fails if
// size is missing or not a valid decimal number.
func ParseInfo(d *xml.Decoder, start xml.StartElement) (Info, error) {
	var decoded struct {
		MediaType string             `xml:"media-type"`
		Name      string             `xml:"name"`
		Date      string             `xml:"date"`
		Size      string             `xml:"size"`
		Hash      *crypto.HashOutput `xml:"hash"`
	}
	if err := d.DecodeElement(&decoded, &start); err != nil {
		return Info{}, err
	}
	size, err := strconv.ParseUint(decoded.Size, 10, 64)
	if err != nil {
		return Info{}, err
	}
	return Info{
		MediaType: decoded.MediaType,
		Name:      decoded.Name,
		Date:      decoded.Date,
		Size:      size,
		Hash:      decoded.Hash,
	}, nil
}
