// Copyright 2024 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jingle

import (
	"sync"

	"mellium.im/xmlstream"
	"quicksilver.im/xmpp/ibb"
)

// Registry owns every live Session, keyed by its sid, and is the sole
// cross-layer lookup the in-band bytestream layer uses to resolve file
// metadata for a transport sid and to report that a transfer has finished.
// A Registry is safe for concurrent use, but in practice is only ever
// driven from the single dispatch goroutine the XMPP engine calls back on.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Session returns the live session with the given sid, if any.
func (r *Registry) Session(sid string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sid]
	return s, ok
}

// insert adds s to the registry, keyed by its sid. Callers must only insert
// sessions with a non-empty content map; see the Session lifecycle
// invariant in the package-level Session documentation.
func (r *Registry) insert(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.SID] = s
}

// remove drops the session with the given sid, if present.
func (r *Registry) remove(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
}

// findByTransportLocked returns the session and content whose negotiated
// transport sid matches. Callers must hold r.mu.
func (r *Registry) findByTransportLocked(sid string) (*Session, *Content, bool) {
	for _, s := range r.sessions {
		for _, c := range s.Contents {
			if c.Transport.SID == sid {
				return s, c, true
			}
		}
	}
	return nil, nil, false
}

// ContentByTransport returns the session and content whose negotiated
// transport sid is sid. The transport sid is unique across all live
// contents by invariant, so at most one match ever exists.
func (r *Registry) ContentByTransport(sid string) (*Session, *Content, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findByTransportLocked(sid)
}

// ResolveTransport implements ibb.SessionResolver, translating a Content
// into the narrow view of it the transfer state machine needs.
func (r *Registry) ResolveTransport(sid string) (ibb.ContentInfo, bool) {
	_, c, ok := r.ContentByTransport(sid)
	if !ok {
		return ibb.ContentInfo{}, false
	}
	return ibb.ContentInfo{BlockSize: c.Transport.BlockSize, File: c.File}, true
}

// MarkActive implements ibb.SessionResolver. It transitions the content that
// negotiated sid from Pending to Active, the step between a session-accept
// and the content's eventual TransferFinished.
func (r *Registry) MarkActive(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, c, ok := r.findByTransportLocked(sid); ok && c.State == ContentPending {
		c.State = ContentActive
	}
}

// FinishTransport implements ibb.SessionResolver. It marks the content that
// negotiated sid as TransferFinished and, if every content in the owning
// session has now finished, removes the session and emits a
// session-terminate with reason success addressed to its initiator.
func (r *Registry) FinishTransport(t xmlstream.TokenReadEncoder, sid string) {
	r.mu.Lock()
	s, c, ok := r.findByTransportLocked(sid)
	if !ok {
		r.mu.Unlock()
		return
	}
	c.State = ContentFinished
	done := s.allFinished()
	if done {
		s.State = Terminated
		delete(r.sessions, s.SID)
	}
	r.mu.Unlock()

	if done {
		// Errors writing the outbound session-terminate are not actionable
		// here; the session has already been torn down locally.
		_ = emitTerminate(t, s.Initiator, s.SID, ReasonSuccess)
	}
}
