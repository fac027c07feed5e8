// Copyright 2024 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ibb_test

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
	"testing"

	"mellium.im/xmlstream"
	"quicksilver.im/xmpp/file"
	"quicksilver.im/xmpp/ibb"
	"quicksilver.im/xmpp/jid"
	"quicksilver.im/xmpp/stanza"
)

type testEncoder struct {
	xml.TokenReader
	*xml.Encoder
}

func (e testEncoder) EncodeToken(t xml.Token) error { return e.Encoder.EncodeToken(t) }

func (e testEncoder) Encode(interface{}) error { panic("unexpected Encode") }

func (e testEncoder) EncodeElement(interface{}, xml.StartElement) error {
	panic("unexpected EncodeElement")
}

type fakeResolver struct {
	contents map[string]ibb.ContentInfo
	finished map[string]bool
	active   map[string]bool
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		contents: make(map[string]ibb.ContentInfo),
		finished: make(map[string]bool),
		active:   make(map[string]bool),
	}
}

func (r *fakeResolver) ResolveTransport(sid string) (ibb.ContentInfo, bool) {
	ci, ok := r.contents[sid]
	return ci, ok
}

func (r *fakeResolver) FinishTransport(t xmlstream.TokenReadEncoder, sid string) {
	r.finished[sid] = true
}

func (r *fakeResolver) MarkActive(sid string) {
	r.active[sid] = true
}

type nopCloser struct {
	*bytes.Buffer
}

func (nopCloser) Close() error { return nil }

type fakeStore struct {
	files map[string]*nopCloser
	err   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: make(map[string]*nopCloser)}
}

func (s *fakeStore) Create(name string) (io.WriteCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	buf := &nopCloser{Buffer: &bytes.Buffer{}}
	s.files[name] = buf
	return buf, nil
}

type fakeNotifier struct {
	infos  []string
	errors []string
}

func (n *fakeNotifier) Info(msg string)  { n.infos = append(n.infos, msg) }
func (n *fakeNotifier) Error(msg string) { n.errors = append(n.errors, msg) }

// callIQ decodes iqXML up to and including its first child element, invokes
// h.HandleIQ with a fresh buffer to capture the reply, and returns the
// decoded reply and the raw bytes written.
func callIQ(t *testing.T, h *ibb.Handler, iqXML string) (stanza.IQ, []byte) {
	t.Helper()

	d := xml.NewDecoder(strings.NewReader(iqXML))
	tok, err := d.Token()
	if err != nil {
		t.Fatalf("error reading iq start: %v", err)
	}
	iqStart := tok.(xml.StartElement)
	iq := stanza.IQ{Type: stanza.IQType(attr(iqStart, "type"))}
	if to := attr(iqStart, "to"); to != "" {
		iq.To = jid.MustParse(to)
	}
	if from := attr(iqStart, "from"); from != "" {
		iq.From = jid.MustParse(from)
	}
	iq.ID = attr(iqStart, "id")

	tok, err = d.Token()
	if err != nil {
		t.Fatalf("error reading payload start: %v", err)
	}
	payloadStart := tok.(xml.StartElement)

	var buf bytes.Buffer
	e := xml.NewEncoder(&buf)
	err = h.HandleIQ(iq, testEncoder{TokenReader: d, Encoder: e}, &payloadStart)
	if err != nil {
		t.Fatalf("unexpected error from HandleIQ: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("error flushing encoder: %v", err)
	}
	return iq, buf.Bytes()
}

func attr(start xml.StartElement, name string) string {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func openIQ(sid string, blockSize int) string {
	return `<iq type="set" id="1" to="me@example.net" from="peer@example.net"><open xmlns="` + ibb.NS + `" sid="` + sid + `" block-size="` + strconv.Itoa(blockSize) + `" stanza="iq"/></iq>`
}

func dataIQ(sid string, seq int, data []byte) string {
	return `<iq type="set" id="2" to="me@example.net" from="peer@example.net"><data xmlns="` + ibb.NS + `" sid="` + sid + `" seq="` + strconv.Itoa(seq) + `">` + base64.StdEncoding.EncodeToString(data) + `</data></iq>`
}

func closeIQ(sid string) string {
	return `<iq type="set" id="3" to="me@example.net" from="peer@example.net"><close xmlns="` + ibb.NS + `" sid="` + sid + `"/></iq>`
}

func TestOpenAcceptsKnownTransport(t *testing.T) {
	r := newFakeResolver()
	r.contents["sid1"] = ibb.ContentInfo{BlockSize: 4096, File: file.Info{Name: "a.txt", Size: 3}}
	s := newFakeStore()
	n := &fakeNotifier{}
	h := ibb.NewHandler(r, s, n)

	_, out := callIQ(t, h, openIQ("sid1", 4096))
	if !strings.Contains(string(out), `type="result"`) {
		t.Errorf("expected a result ack, got %q", out)
	}
	if !r.active["sid1"] {
		t.Error("expected the content to be marked active on open")
	}
}

func TestOpenRejectsDuplicateSID(t *testing.T) {
	r := newFakeResolver()
	r.contents["sid1"] = ibb.ContentInfo{BlockSize: 4096, File: file.Info{Name: "a.txt", Size: 3}}
	h := ibb.NewHandler(r, newFakeStore(), &fakeNotifier{})

	callIQ(t, h, openIQ("sid1", 4096))
	_, out := callIQ(t, h, openIQ("sid1", 4096))
	if !strings.Contains(string(out), "not-acceptable") {
		t.Errorf("expected not-acceptable for duplicate sid, got %q", out)
	}
}

func TestOpenRejectsUnknownTransport(t *testing.T) {
	h := ibb.NewHandler(newFakeResolver(), newFakeStore(), &fakeNotifier{})

	_, out := callIQ(t, h, openIQ("missing", 4096))
	if !strings.Contains(string(out), "not-acceptable") {
		t.Errorf("expected not-acceptable for unknown transport, got %q", out)
	}
}

func TestOpenRejectsBlockSizeMismatch(t *testing.T) {
	r := newFakeResolver()
	r.contents["sid1"] = ibb.ContentInfo{BlockSize: 4096, File: file.Info{Name: "a.txt", Size: 3}}
	h := ibb.NewHandler(r, newFakeStore(), &fakeNotifier{})

	_, out := callIQ(t, h, openIQ("sid1", 2048))
	if !strings.Contains(string(out), "resource-constraint") {
		t.Errorf("expected resource-constraint for block-size mismatch, got %q", out)
	}
}

func TestDataUnknownSID(t *testing.T) {
	h := ibb.NewHandler(newFakeResolver(), newFakeStore(), &fakeNotifier{})

	_, out := callIQ(t, h, dataIQ("missing", 0, []byte("x")))
	if !strings.Contains(string(out), "item-not-found") {
		t.Errorf("expected item-not-found for unknown sid, got %q", out)
	}
}

func TestHappyPathSingleBlock(t *testing.T) {
	r := newFakeResolver()
	r.contents["sid1"] = ibb.ContentInfo{BlockSize: 4096, File: file.Info{Name: "a.txt", Size: 3}}
	s := newFakeStore()
	n := &fakeNotifier{}
	h := ibb.NewHandler(r, s, n)

	callIQ(t, h, openIQ("sid1", 4096))
	_, out := callIQ(t, h, dataIQ("sid1", 0, []byte("abc")))
	if !strings.Contains(string(out), `type="result"`) {
		t.Errorf("expected a result ack for data, got %q", out)
	}
	if buf, ok := s.files["a.txt"]; !ok || buf.String() != "abc" {
		t.Errorf("expected file contents %q, got %q (ok=%v)", "abc", buf, ok)
	}
	if !r.finished["sid1"] {
		t.Error("expected transport to be marked finished once size reached")
	}
	if len(n.infos) == 0 {
		t.Error("expected a completion notice")
	}
}

func TestOutOfOrderDataAborts(t *testing.T) {
	r := newFakeResolver()
	r.contents["sid1"] = ibb.ContentInfo{BlockSize: 4096, File: file.Info{Name: "a.txt", Size: 10}}
	s := newFakeStore()
	n := &fakeNotifier{}
	h := ibb.NewHandler(r, s, n)

	callIQ(t, h, openIQ("sid1", 4096))
	callIQ(t, h, dataIQ("sid1", 2, []byte("xy")))

	if r.finished["sid1"] {
		t.Error("an aborted transfer should not be reported finished")
	}
	if len(n.errors) == 0 {
		t.Error("expected an error notice for the out-of-order block")
	}

	_, out := callIQ(t, h, dataIQ("sid1", 0, []byte("xy")))
	if !strings.Contains(string(out), "item-not-found") {
		t.Errorf("expected the aborted transfer to be gone, got %q", out)
	}
}

func TestCloseUnknownSID(t *testing.T) {
	h := ibb.NewHandler(newFakeResolver(), newFakeStore(), &fakeNotifier{})

	_, out := callIQ(t, h, closeIQ("missing"))
	if !strings.Contains(string(out), "item-not-found") {
		t.Errorf("expected item-not-found for unknown sid, got %q", out)
	}
}

func TestCancelTransfersClosesSinkWithoutNotifying(t *testing.T) {
	r := newFakeResolver()
	r.contents["sid1"] = ibb.ContentInfo{BlockSize: 4096, File: file.Info{Name: "a.txt", Size: 100}}
	s := newFakeStore()
	h := ibb.NewHandler(r, s, &fakeNotifier{})

	callIQ(t, h, openIQ("sid1", 4096))
	callIQ(t, h, dataIQ("sid1", 0, []byte("partial")))

	h.CancelTransfers([]string{"sid1", "unknown-sid"})

	if r.finished["sid1"] {
		t.Error("CancelTransfers should not notify the session layer")
	}
	if buf := s.files["a.txt"]; buf == nil || buf.String() != "partial" {
		t.Errorf("expected the sink to retain its partial write, got %q", buf)
	}

	_, out := callIQ(t, h, dataIQ("sid1", 1, []byte("more")))
	if !strings.Contains(string(out), "item-not-found") {
		t.Errorf("expected the cancelled transfer to be gone, got %q", out)
	}
}

func TestCloseMarksTransportFinished(t *testing.T) {
	r := newFakeResolver()
	r.contents["sid1"] = ibb.ContentInfo{BlockSize: 4096, File: file.Info{Name: "a.txt", Size: 100}}
	h := ibb.NewHandler(r, newFakeStore(), &fakeNotifier{})

	callIQ(t, h, openIQ("sid1", 4096))
	_, out := callIQ(t, h, closeIQ("sid1"))
	if !strings.Contains(string(out), `type="result"`) {
		t.Errorf("expected a result ack for close, got %q", out)
	}
	if !r.finished["sid1"] {
		t.Error("expected transport to be marked finished on explicit close")
	}
}
