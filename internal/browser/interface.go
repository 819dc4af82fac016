// internal/browser/interface.go
package browser

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-e2e/internal/check"
)

// Launcher starts a browser process. ChromeLauncher is the real one; tests supply fakes.
type Launcher interface {
	Launch(ctx context.Context, opts Options, logger *zap.Logger) (Engine, error)
}

// Engine is a running browser process.
type Engine interface {
	NewContext(ctx context.Context, cfg ContextConfig) (ContextBackend, error)
	// Alive reports whether the browser process is still connected.
	Alive() bool
	Close(ctx context.Context) error
}

// ContextBackend is an isolated browser context (its own cookies and storage).
type ContextBackend interface {
	NewPage(ctx context.Context) (Page, error)
	Close(ctx context.Context) error
}

// Page is one tab. Selectors use the syntax accepted by ParseLocator.
type Page interface {
	ID() string

	// Navigate loads url and waits for the load event, and for network idle when waitIdle is set.
	Navigate(ctx context.Context, url string, waitIdle bool) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	Press(ctx context.Context, key string) error
	ScrollIntoView(ctx context.Context, selector string) error
	SetViewport(ctx context.Context, vp Viewport) error
	SetUserAgent(ctx context.Context, ua string) error

	IsVisible(ctx context.Context, selector string) (bool, error)
	Count(ctx context.Context, selector string) (int, error)
	// Text returns the first match's rendered text; ok is false when nothing matched.
	Text(ctx context.Context, selector string) (text string, ok bool, err error)
	// Attribute returns the first match's attribute; ok is false when the element or attribute is absent.
	Attribute(ctx context.Context, selector, name string) (value string, ok bool, err error)
	Title(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	NavigationTiming(ctx context.Context) (check.NavigationTiming, error)
	ActiveElementTag(ctx context.Context) (string, error)

	Close(ctx context.Context) error
}
