// internal/browser/browsertest/fake.go

// Package browsertest provides in-memory fakes for the browser seams so session,
// provider and scenario logic can be tested without Chrome.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-e2e/internal/browser"
	"github.com/xkilldash9x/scalpel-e2e/internal/check"
)

// Launcher hands out Engines. Set LaunchErr to make Launch fail.
type Launcher struct {
	LaunchErr error
	// NewPage builds the page for every NewPage call. Nil yields an empty Page.
	NewPage func() *Page

	launches atomic.Int32
	mu       sync.Mutex
	engines  []*Engine
}

func (l *Launcher) Launch(ctx context.Context, opts browser.Options, logger *zap.Logger) (browser.Engine, error) {
	l.launches.Add(1)
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e := &Engine{launcher: l, Opts: opts}
	l.mu.Lock()
	l.engines = append(l.engines, e)
	l.mu.Unlock()
	return e, nil
}

func (l *Launcher) Launches() int { return int(l.launches.Load()) }

// Engines returns every engine launched so far.
func (l *Launcher) Engines() []*Engine {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Engine(nil), l.engines...)
}

// Engine is a fake browser process.
type Engine struct {
	launcher *Launcher
	Opts     browser.Options

	// NewContextErr, when set, fails every NewContext call.
	NewContextErr error

	closes   atomic.Int32
	dead     atomic.Bool
	mu       sync.Mutex
	contexts []*Context
}

func (e *Engine) NewContext(ctx context.Context, cfg browser.ContextConfig) (browser.ContextBackend, error) {
	if e.NewContextErr != nil {
		return nil, e.NewContextErr
	}
	c := &Context{engine: e, Cfg: cfg}
	e.mu.Lock()
	e.contexts = append(e.contexts, c)
	e.mu.Unlock()
	return c, nil
}

func (e *Engine) Alive() bool { return !e.dead.Load() }

// Crash simulates the browser process going away.
func (e *Engine) Crash() { e.dead.Store(true) }

func (e *Engine) Close(ctx context.Context) error {
	e.closes.Add(1)
	return nil
}

func (e *Engine) Closes() int { return int(e.closes.Load()) }

func (e *Engine) Contexts() []*Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Context(nil), e.contexts...)
}

// Context is a fake browsing context.
type Context struct {
	engine *Engine
	Cfg    browser.ContextConfig

	closes atomic.Int32
	pages  atomic.Int32
}

func (c *Context) NewPage(ctx context.Context) (browser.Page, error) {
	n := c.pages.Add(1)
	var p *Page
	if c.engine.launcher.NewPage != nil {
		p = c.engine.launcher.NewPage()
	}
	if p == nil {
		p = &Page{}
	}
	if p.PageID == "" {
		p.PageID = fmt.Sprintf("page-%d", n)
	}
	return p, nil
}

func (c *Context) Close(ctx context.Context) error {
	c.closes.Add(1)
	return nil
}

func (c *Context) Closes() int { return int(c.closes.Load()) }

// Page is a scriptable fake tab. Selectors are matched literally against the maps.
type Page struct {
	PageID    string
	Visible   map[string]bool
	Texts     map[string]string
	Attrs     map[string]map[string]string
	Counts    map[string]int
	TitleText string
	Document  string
	Timing    check.NavigationTiming
	ActiveTag string
	// Errors makes the named method fail, e.g. Errors["Navigate"].
	Errors map[string]error
	// Hook runs at the start of every method call. It may block or panic.
	Hook func(ctx context.Context, method string)

	mu       sync.Mutex
	calls    []string
	closes   int
	viewport browser.Viewport
	ua       string
}

func (p *Page) record(ctx context.Context, method string, args ...string) error {
	if p.Hook != nil {
		p.Hook(ctx, method)
	}
	p.mu.Lock()
	call := method
	if len(args) > 0 {
		call += "(" + strings.Join(args, ",") + ")"
	}
	p.calls = append(p.calls, call)
	p.mu.Unlock()
	if err := ctx.Err(); err != nil && method != "Close" {
		return err
	}
	return p.Errors[method]
}

// Calls lists recorded calls in order, e.g. "Click(#buy)".
func (p *Page) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *Page) Closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

func (p *Page) Viewport() browser.Viewport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewport
}

func (p *Page) UserAgent() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ua
}

func (p *Page) ID() string { return p.PageID }

func (p *Page) Navigate(ctx context.Context, url string, waitIdle bool) error {
	return p.record(ctx, "Navigate", url)
}

func (p *Page) Click(ctx context.Context, selector string) error {
	return p.record(ctx, "Click", selector)
}

func (p *Page) Fill(ctx context.Context, selector, value string) error {
	return p.record(ctx, "Fill", selector, value)
}

func (p *Page) Press(ctx context.Context, key string) error {
	return p.record(ctx, "Press", key)
}

func (p *Page) ScrollIntoView(ctx context.Context, selector string) error {
	return p.record(ctx, "ScrollIntoView", selector)
}

func (p *Page) SetViewport(ctx context.Context, vp browser.Viewport) error {
	if err := p.record(ctx, "SetViewport", fmt.Sprintf("%dx%d", vp.Width, vp.Height)); err != nil {
		return err
	}
	p.mu.Lock()
	p.viewport = vp
	p.mu.Unlock()
	return nil
}

func (p *Page) SetUserAgent(ctx context.Context, ua string) error {
	if err := p.record(ctx, "SetUserAgent"); err != nil {
		return err
	}
	p.mu.Lock()
	p.ua = ua
	p.mu.Unlock()
	return nil
}

func (p *Page) IsVisible(ctx context.Context, selector string) (bool, error) {
	if err := p.record(ctx, "IsVisible", selector); err != nil {
		return false, err
	}
	return p.Visible[selector], nil
}

func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	if err := p.record(ctx, "Count", selector); err != nil {
		return 0, err
	}
	if n, ok := p.Counts[selector]; ok {
		return n, nil
	}
	if p.Visible[selector] {
		return 1, nil
	}
	return 0, nil
}

func (p *Page) Text(ctx context.Context, selector string) (string, bool, error) {
	if err := p.record(ctx, "Text", selector); err != nil {
		return "", false, err
	}
	t, ok := p.Texts[selector]
	return t, ok, nil
}

func (p *Page) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	if err := p.record(ctx, "Attribute", selector, name); err != nil {
		return "", false, err
	}
	v, ok := p.Attrs[selector][name]
	return v, ok, nil
}

func (p *Page) Title(ctx context.Context) (string, error) {
	return p.TitleText, p.record(ctx, "Title")
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	return p.Document, p.record(ctx, "HTML")
}

func (p *Page) NavigationTiming(ctx context.Context) (check.NavigationTiming, error) {
	return p.Timing, p.record(ctx, "NavigationTiming")
}

func (p *Page) ActiveElementTag(ctx context.Context) (string, error) {
	return p.ActiveTag, p.record(ctx, "ActiveElementTag")
}

func (p *Page) Close(ctx context.Context) error {
	err := p.record(ctx, "Close")
	p.mu.Lock()
	p.closes++
	p.mu.Unlock()
	return err
}
