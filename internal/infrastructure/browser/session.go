package browser

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod"

	"CineScanner/internal/ports"
)

var (
	_ ports.BrowserSession = (*session)(nil)
	_ ports.Element        = (*element)(nil)
)

// session adapts one rod page to the session port. Read failures on a
// live page degrade to empty values so extraction can skip the record.
type session struct {
	page *rod.Page
	log  *slog.Logger
}

func (s *session) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	if err := page.WaitLoad(); err != nil {
		s.log.Debug("browser: wait load timed out", "url", url, "error", err)
	}
	return nil
}

func (s *session) WaitForElement(ctx context.Context, selector string, timeout time.Duration) bool {
	page := s.page.Context(ctx).Timeout(timeout)
	if _, err := page.Element(selector); err != nil {
		return false
	}
	return true
}

func (s *session) Elements(selector string) []ports.Element {
	els, err := s.page.Elements(selector)
	if err != nil {
		s.log.Debug("browser: element query failed", "selector", selector, "error", err)
		return nil
	}
	out := make([]ports.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &element{el: el})
	}
	return out
}

func (s *session) PageHeight() int {
	res, err := s.page.Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return 0
	}
	return res.Value.Int()
}

func (s *session) ScrollToBottom() {
	if _, err := s.page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		s.log.Debug("browser: scroll failed", "error", err)
		return
	}
	// Give lazy content a beat to render before the next height check.
	time.Sleep(2 * time.Second)
}

func (s *session) PageTitle() string {
	res, err := s.page.Eval(`() => document.title`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func (s *session) Close() error {
	return s.page.Close()
}

// element adapts a rod element. Detached-node errors yield zero values.
type element struct {
	el *rod.Element
}

func (e *element) Text() string {
	text, err := e.el.Text()
	if err != nil {
		return ""
	}
	return text
}

func (e *element) Attribute(name string) string {
	attr, err := e.el.Attribute(name)
	if err != nil || attr == nil {
		return ""
	}
	return *attr
}

func (e *element) Find(selector string) (ports.Element, bool) {
	has, el, err := e.el.Has(selector)
	if err != nil || !has {
		return nil, false
	}
	return &element{el: el}, true
}

func (e *element) FindAll(selector string) []ports.Element {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil
	}
	out := make([]ports.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &element{el: el})
	}
	return out
}
