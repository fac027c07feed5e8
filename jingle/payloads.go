// Copyright 2024 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jingle

import (
	"encoding/xml"

	"quicksilver.im/xmpp/file"
)

// jinglePayload is the decoded form of the jingle child of a session IQ. It
// captures enough of the wire structure to drive every action this package
// handles; fields irrelevant to an action are simply left zero.
type jinglePayload struct {
	XMLName   xml.Name         `xml:"jingle"`
	Action    string           `xml:"action,attr"`
	SID       string           `xml:"sid,attr"`
	Initiator string           `xml:"initiator,attr"`
	Responder string           `xml:"responder,attr"`
	Contents  []contentPayload `xml:"content"`
}

// contentPayload is one content child of a jingle element.
type contentPayload struct {
	Creator     string             `xml:"creator,attr"`
	Senders     string             `xml:"senders,attr"`
	Name        string             `xml:"name,attr"`
	Description descriptionPayload `xml:"description"`
	Transport   transportPayload   `xml:"transport"`
}

// descriptionPayload captures the description child along with the
// namespace it actually arrived on, since that namespace is what decides
// whether this package understands the content at all. The file child
// decodes through file.ParseInfo, which parses the size exactly once.
type descriptionPayload struct {
	XMLName xml.Name
	File    *file.Info `xml:"file"`
}

// transportPayload captures the transport child along with its namespace.
type transportPayload struct {
	XMLName   xml.Name
	SID       string `xml:"sid,attr"`
	BlockSize string `xml:"block-size,attr"`
}

// proposePayload is the XEP-0353 propose child of a ring message.
type proposePayload struct {
	XMLName     xml.Name `xml:"propose"`
	ID          string   `xml:"id,attr"`
	Description struct {
		XMLName xml.Name
	} `xml:"description"`
}
