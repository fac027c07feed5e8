// Copyright 2014 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package jid provides functionality for parsing and comparing XMPP
// addresses (historically, "Jabber IDs" or JIDs) as defined in RFC 7622.
package jid // import "quicksilver.im/xmpp/jid"

import (
	"encoding/xml"
	"errors"
	"net"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
	"golang.org/x/text/secure/precis"
)

// Errors returned when parsing a JID fails.
var (
	ErrEmptyPart    = errors.New("jid: localpart and resourcepart must not be empty if present")
	ErrLongPart     = errors.New("jid: localpart, domainpart, and resourcepart must be less than 1024 bytes")
	ErrInvalidGraph = errors.New("jid: JID contained invalid characters")
	ErrInvalidUTF8  = errors.New("jid: JID contains invalid UTF-8")
	ErrInvalidIP6   = errors.New("jid: domainpart is not a valid IPv6 address")
)

// JID represents a bare or full XMPP address as defined in RFC 7622. A JID
// has the form `[localpart@]domainpart[/resourcepart]`. Zero value JIDs are
// not valid; always construct one with Parse, New, or MustParse, which store
// every part in its canonical form so that two addresses for the same entity
// compare equal.
type JID struct {
	localpart    string
	domainpart   string
	resourcepart string
}

// Parse constructs a new JID from the string representation of a JID.
func Parse(s string) (*JID, error) {
	localpart, domainpart, resourcepart, err := SplitString(s)
	if err != nil {
		return nil, err
	}
	return New(localpart, domainpart, resourcepart)
}

// MustParse is like Parse except that it panics if the JID cannot be parsed.
// It is intended for use when constructing package level variables or in
// tests.
func MustParse(s string) *JID {
	j, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return j
}

// New constructs a new JID from the given localpart, domainpart, and
// resourcepart, applying the preparation and enforcement steps of
// RFC 7622 §3.2–3.4 to each part. The domainpart is the only required part;
// the localpart and resourcepart may be empty.
func New(localpart, domainpart, resourcepart string) (*JID, error) {
	// Ensure that parts are valid UTF-8 (and short circuit the rest of the
	// process if they're not). The domainpart is checked after the IDNA
	// ToUnicode operation.
	if !utf8.ValidString(localpart) || !utf8.ValidString(resourcepart) {
		return nil, ErrInvalidUTF8
	}

	// RFC 7622 §3.2.1: the domainpart must not include A-labels; each one is
	// converted to a U-label during preparation.
	domainpart, err := idna.ToUnicode(domainpart)
	if err != nil {
		return nil, err
	}
	if !utf8.ValidString(domainpart) {
		return nil, ErrInvalidUTF8
	}

	if localpart != "" {
		localpart, err = precis.UsernameCaseMapped.String(localpart)
		if err != nil {
			return nil, err
		}
	}
	if resourcepart != "" {
		resourcepart, err = precis.OpaqueString.String(resourcepart)
		if err != nil {
			return nil, err
		}
	}

	if err := checkParts(localpart, domainpart, resourcepart); err != nil {
		return nil, err
	}
	return &JID{
		localpart:    localpart,
		domainpart:   domainpart,
		resourcepart: resourcepart,
	}, nil
}

func checkParts(localpart, domainpart, resourcepart string) error {
	if domainpart == "" {
		return ErrEmptyPart
	}
	for _, p := range []string{localpart, domainpart, resourcepart} {
		if len(p) > 1023 {
			return ErrLongPart
		}
	}
	// RFC 7622 §3.3.1 forbids a handful of characters in localparts even
	// though the UsernameCaseMapped profile allows them.
	if strings.ContainsAny(localpart, "\"&'/:<>@") {
		return ErrInvalidGraph
	}
	return checkIP6String(domainpart)
}

func checkIP6String(domainpart string) error {
	// If the domainpart is bracketed it must be a valid IPv6 address.
	if l := len(domainpart); l > 2 && strings.HasPrefix(domainpart, "[") &&
		strings.HasSuffix(domainpart, "]") {
		if ip := net.ParseIP(domainpart[1 : l-1]); ip == nil || ip.To4() != nil {
			return ErrInvalidIP6
		}
	}
	return nil
}

// SplitString splits out the localpart, domainpart, and resourcepart from a
// string representation of a JID. Matching the separator characters happens
// before any transformation of the parts, per RFC 7622 §3.1, so the parts are
// not guaranteed to be valid.
func SplitString(s string) (localpart, domainpart, resourcepart string, err error) {
	if slash := strings.IndexByte(s, '/'); slash >= 0 {
		resourcepart = s[slash+1:]
		s = s[:slash]
		if resourcepart == "" {
			return "", "", "", ErrEmptyPart
		}
	}
	if at := strings.IndexByte(s, '@'); at >= 0 {
		localpart = s[:at]
		domainpart = s[at+1:]
		if localpart == "" || domainpart == "" {
			return "", "", "", ErrEmptyPart
		}
	} else {
		domainpart = s
	}
	// A final label separator (dot) on the domainpart is ignored and must be
	// stripped before any canonicalization step.
	domainpart = strings.TrimSuffix(domainpart, ".")
	return localpart, domainpart, resourcepart, nil
}

// Localpart returns the localpart of the JID, if any.
func (j *JID) Localpart() string {
	if j == nil {
		return ""
	}
	return j.localpart
}

// Domainpart returns the domainpart of the JID.
func (j *JID) Domainpart() string {
	if j == nil {
		return ""
	}
	return j.domainpart
}

// Resourcepart returns the resourcepart of the JID, if any.
func (j *JID) Resourcepart() string {
	if j == nil {
		return ""
	}
	return j.resourcepart
}

// Bare returns a copy of the JID with the resourcepart (if any) removed.
func (j *JID) Bare() *JID {
	if j == nil {
		return nil
	}
	return &JID{localpart: j.localpart, domainpart: j.domainpart}
}

// WithResource returns a copy of the JID with the resourcepart replaced.
func (j *JID) WithResource(resourcepart string) (*JID, error) {
	return New(j.Localpart(), j.Domainpart(), resourcepart)
}

// Equal reports whether j and j2 represent the same address. Because every
// part is stored canonicalized, this is an octet-for-octet comparison.
func (j *JID) Equal(j2 *JID) bool {
	if j == nil || j2 == nil {
		return j == j2
	}
	return j.localpart == j2.localpart &&
		j.domainpart == j2.domainpart &&
		j.resourcepart == j2.resourcepart
}

// String satisfies the fmt.Stringer interface and returns the string
// representation of the JID.
func (j *JID) String() string {
	if j == nil {
		return ""
	}
	var s strings.Builder
	if j.localpart != "" {
		s.WriteString(j.localpart)
		s.WriteByte('@')
	}
	s.WriteString(j.domainpart)
	if j.resourcepart != "" {
		s.WriteByte('/')
		s.WriteString(j.resourcepart)
	}
	return s.String()
}

// MarshalXMLAttr satisfies the xml.MarshalerAttr interface, allowing JIDs to
// be used directly as the value of attributes such as "to" and "from".
func (j *JID) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if j == nil {
		return xml.Attr{}, nil
	}
	return xml.Attr{Name: name, Value: j.String()}, nil
}

// UnmarshalXMLAttr satisfies the xml.UnmarshalerAttr interface.
// An empty attribute value leaves j unchanged and returns nil.
func (j *JID) UnmarshalXMLAttr(attr xml.Attr) error {
	if attr.Value == "" {
		return nil
	}
	parsed, err := Parse(attr.Value)
	if err != nil {
		return err
	}
	*j = *parsed
	return nil
}
