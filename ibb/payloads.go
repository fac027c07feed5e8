// Copyright 2020 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ibb

import (
	"encoding/xml"

	"mellium.im/xmlstream"
)

type openPayload struct {
	BlockSize string `xml:"block-size,attr"`
	SID       string `xml:"sid,attr"`
	Stanza    string `xml:"stanza,attr"`
}

type dataPayload struct {
	SID  string `xml:"sid,attr"`
	Seq  string `xml:"seq,attr"`
	Data string `xml:",chardata"`
}

type closePayload struct {
	SID string `xml:"sid,attr"`
}

// closeToken builds the close child element sent to terminate a bytestream.
func closeToken(sid string) xml.TokenReader {
	return xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Space: NS, Local: "close"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "sid"}, Value: sid}},
	})
}
