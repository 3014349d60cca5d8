package rotten

import (
	"context"
	"strings"
	"time"

	"CineScanner/internal/ports"
)

// fakeElement implements ports.Element over static data.
type fakeElement struct {
	text     string
	attrs    map[string]string
	children map[string][]*fakeElement
}

func (e *fakeElement) Text() string { return e.text }

func (e *fakeElement) Attribute(name string) string {
	return e.attrs[name]
}

func (e *fakeElement) Find(selector string) (ports.Element, bool) {
	if kids := e.children[selector]; len(kids) > 0 {
		return kids[0], true
	}
	return nil, false
}

func (e *fakeElement) FindAll(selector string) []ports.Element {
	var out []ports.Element
	for _, kid := range e.children[selector] {
		out = append(out, kid)
	}
	return out
}

// fakePage holds the element sets one URL renders. Heights, when set,
// are consumed one per PageHeight call to simulate lazy loading.
type fakePage struct {
	elements map[string][]*fakeElement
	heights  []int
}

// fakeSession implements ports.BrowserSession over a URL-keyed page map.
// Selector lookup matches any comma-separated alternative exactly.
type fakeSession struct {
	pages     map[string]*fakePage
	current   *fakePage
	visited   []string
	heightIdx int
	closed    bool
}

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.visited = append(s.visited, url)
	s.current = s.pages[url]
	s.heightIdx = 0
	return nil
}

func (s *fakeSession) WaitForElement(_ context.Context, selector string, _ time.Duration) bool {
	return len(s.lookup(selector)) > 0
}

func (s *fakeSession) Elements(selector string) []ports.Element {
	var out []ports.Element
	for _, el := range s.lookup(selector) {
		out = append(out, el)
	}
	return out
}

func (s *fakeSession) lookup(selector string) []*fakeElement {
	if s.current == nil {
		return nil
	}
	for _, alt := range strings.Split(selector, ",") {
		if els := s.current.elements[strings.TrimSpace(alt)]; len(els) > 0 {
			return els
		}
	}
	return nil
}

func (s *fakeSession) PageHeight() int {
	if s.current == nil || len(s.current.heights) == 0 {
		return 0
	}
	if s.heightIdx >= len(s.current.heights) {
		return s.current.heights[len(s.current.heights)-1]
	}
	h := s.current.heights[s.heightIdx]
	return h
}

func (s *fakeSession) ScrollToBottom() {
	if s.current != nil && s.heightIdx < len(s.current.heights)-1 {
		s.heightIdx++
	}
}

func (s *fakeSession) PageTitle() string { return "" }

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

// fakeBrowser hands out a single prepared session.
type fakeBrowser struct {
	session *fakeSession
}

func (b *fakeBrowser) OpenSession(context.Context) (ports.BrowserSession, error) {
	return b.session, nil
}

func (b *fakeBrowser) Close() error { return nil }
