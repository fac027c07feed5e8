// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ns provides namespace constants that are used by the xmpp package and
// other internal packages.
package ns // import "quicksilver.im/xmpp/internal/ns"

// List of commonly used namespaces.
const (
	XML    = "http://www.w3.org/XML/1998/namespace"
	Stanza = "urn:ietf:params:xml:ns:xmpp-stanzas"
	Client = "jabber:client"
	Server = "jabber:server"
)
