// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"

	"quicksilver.im/xmpp/internal/ns"
)

func langAttr(lang string) *xml.Attr {
	if lang == "" {
		return nil
	}
	return &xml.Attr{Name: xml.Name{Space: ns.XML, Local: "lang"}, Value: lang}
}

func appendAttr(attrs []xml.Attr, name string, v interface {
	MarshalXMLAttr(xml.Name) (xml.Attr, error)
}) []xml.Attr {
	if v == nil {
		return attrs
	}
	a, err := v.MarshalXMLAttr(xml.Name{Local: name})
	if err != nil || a.Value == "" {
		return attrs
	}
	return append(attrs, a)
}
