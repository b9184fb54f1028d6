package api

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/glyphmark/core/dom"
	"github.com/FocuswithJustin/glyphmark/core/errors"
	"github.com/FocuswithJustin/glyphmark/core/glyphs"
	"github.com/FocuswithJustin/glyphmark/core/mark"
	"github.com/FocuswithJustin/glyphmark/core/report"
	"github.com/FocuswithJustin/glyphmark/internal/logging"
)

// Session operation types sent by clients.
const (
	OpAppend = "append"
	OpReady  = "ready"
	OpInsert = "insert"
	OpEdit   = "edit"
	OpText   = "text"
	OpAttr   = "attr"
	OpRender = "render"
)

// Op is one client mutation of a session document.
type Op struct {
	Type   string `json:"type"`
	Target string `json:"target,omitempty"`
	HTML   string `json:"html,omitempty"`
	Text   string `json:"text,omitempty"`
	Index  int    `json:"index,omitempty"`
	Name   string `json:"name,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Reply is sent after every op: "state" on success, "error" otherwise.
type Reply struct {
	Type       string `json:"type"`
	Session    string `json:"session"`
	ReadyState string `json:"ready_state,omitempty"`
	Markers    int    `json:"markers"`
	HTML       string `json:"html,omitempty"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
}

// SessionInfo describes a live session.
type SessionInfo struct {
	ID         string     `json:"id"`
	ReadyState string     `json:"ready_state"`
	Markers    int        `json:"markers"`
	CreatedAt  string     `json:"created_at"`
	Stats      mark.Stats `json:"stats"`
}

// Session is a document that starts loading, with an engine installed,
// and is mutated by its client.
type Session struct {
	ID      string
	created time.Time

	mu     sync.Mutex
	doc    *dom.Document
	engine *mark.Engine
}

func newSession(reg *glyphs.Registry) *Session {
	doc := dom.NewDocument(dom.KindHTML)
	engine := mark.NewEngine(mark.WithRegistry(reg), mark.WithLogger(logging.GetLogger()))
	engine.Install(doc)
	return &Session{
		ID:      uuid.NewString(),
		created: time.Now().UTC(),
		doc:     doc,
		engine:  engine,
	}
}

// Apply performs op, delivers the resulting mutations and returns the reply.
func (s *Session) Apply(op Op) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.apply(op); err != nil {
		_, code := statusFor(err)
		return Reply{Type: "error", Session: s.ID, Code: code, Message: err.Error()}
	}
	if err := s.doc.Flush(); err != nil {
		logging.Debug("session flush", "session", s.ID, "error", err)
	}

	reply := Reply{
		Type:       "state",
		Session:    s.ID,
		ReadyState: s.doc.ReadyState().String(),
		Markers:    s.markers(),
	}
	if op.Type == OpReady || op.Type == OpRender {
		markup, err := s.render()
		if err != nil {
			return Reply{Type: "error", Session: s.ID, Code: "INTERNAL_ERROR", Message: err.Error()}
		}
		reply.HTML = markup
	}
	return reply
}

func (s *Session) apply(op Op) error {
	switch op.Type {
	case OpAppend:
		return s.appendFragment(s.doc.Body(), op.HTML)
	case OpReady:
		s.doc.SetReadyState(dom.Interactive)
		return nil
	case OpRender:
		return nil
	}

	target, err := s.target(op.Target)
	if err != nil {
		return err
	}
	switch op.Type {
	case OpInsert:
		return s.appendFragment(target, op.HTML)
	case OpEdit:
		text := textChild(target, op.Index)
		if text == nil {
			return errors.NewValidation("index", fmt.Sprintf("element %q has no text child %d", op.Target, op.Index))
		}
		text.SetData(op.Text)
		return nil
	case OpText:
		target.SetTextContent(op.Text)
		return nil
	case OpAttr:
		if op.Name == "" {
			return errors.NewValidation("name", "attribute name is required")
		}
		target.SetAttr(op.Name, op.Value)
		return nil
	default:
		return errors.NewUnsupported("session op", op.Type)
	}
}

func (s *Session) target(id string) (*dom.Node, error) {
	if id == "" {
		return nil, errors.NewValidation("target", "target id is required")
	}
	n := s.doc.GetElementByID(id)
	if n == nil {
		return nil, errors.NewNotFound("element", id)
	}
	return n, nil
}

func (s *Session) appendFragment(parent *dom.Node, markup string) error {
	nodes, err := s.doc.ParseFragment(parent, markup)
	if err != nil {
		return &errors.ParseError{Format: "HTML", Message: err.Error()}
	}
	for _, n := range nodes {
		if err := parent.AppendChild(n); err != nil {
			return err
		}
	}
	return nil
}

// textChild returns the index-th text child of n.
func textChild(n *dom.Node, index int) *dom.Node {
	i := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != dom.TextNode {
			continue
		}
		if i == index {
			return c
		}
		i++
	}
	return nil
}

func (s *Session) markers() int {
	return report.Summarize(s.doc.Body()).Markers
}

func (s *Session) render() (string, error) {
	var buf bytes.Buffer
	if err := s.doc.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render returns the current document markup.
func (s *Session) Render() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.render()
}

// Info returns a snapshot of the session.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		ID:         s.ID,
		ReadyState: s.doc.ReadyState().String(),
		Markers:    s.markers(),
		CreatedAt:  s.created.Format(time.RFC3339),
		Stats:      s.engine.Stats(),
	}
}

// SessionStore holds the live sessions.
type SessionStore struct {
	reg      *glyphs.Registry
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewSessionStore creates an empty store whose sessions annotate with reg.
func NewSessionStore(reg *glyphs.Registry) *SessionStore {
	return &SessionStore{
		reg:      reg,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session.
func (st *SessionStore) Create() *Session {
	s := newSession(st.reg)
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns the session with id.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Remove drops the session with id.
func (st *SessionStore) Remove(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// List returns every session, oldest first.
func (st *SessionStore) List() []SessionInfo {
	st.mu.RLock()
	sessions := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		sessions = append(sessions, s)
	}
	st.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].created.Before(sessions[j].created) })
	infos := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	return infos
}
