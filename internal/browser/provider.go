// internal/browser/provider.go
package browser

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-e2e/internal/errs"
)

// PageHandle is one tab scoped to one scenario.
type PageHandle struct {
	id      string
	page    Page
	context *BrowsingContext

	once sync.Once
}

func (h *PageHandle) ID() string                { return h.id }
func (h *PageHandle) Page() Page                { return h.page }
func (h *PageHandle) Context() *BrowsingContext { return h.context }

// PageProvider opens and closes pages and keeps count of both.
type PageProvider struct {
	logger   *zap.Logger
	acquired atomic.Int64
	released atomic.Int64
}

func NewPageProvider(logger *zap.Logger) *PageProvider {
	return &PageProvider{logger: logger.Named("page_provider")}
}

// Acquire opens a tab in bc and applies the context's viewport and user agent.
func (p *PageProvider) Acquire(ctx context.Context, bc *BrowsingContext) (*PageHandle, error) {
	page, err := bc.newPage(ctx)
	if err != nil {
		return nil, errs.Resource("page.acquire", err)
	}

	if err := emulate(ctx, page, bc.Config()); err != nil {
		_ = page.Close(Detach(ctx))
		return nil, errs.Resource("page.emulate", err)
	}

	h := &PageHandle{id: uuid.New().String(), page: page, context: bc}
	p.acquired.Add(1)
	p.logger.Debug("Page acquired.", zap.String("page_id", h.id), zap.String("context_id", bc.ID()))
	return h, nil
}

func emulate(ctx context.Context, page Page, cfg ContextConfig) error {
	if err := page.SetViewport(ctx, cfg.Viewport); err != nil {
		return err
	}
	return page.SetUserAgent(ctx, cfg.UserAgent)
}

// Release closes the handle's tab. Releasing the same handle again does nothing.
func (p *PageProvider) Release(ctx context.Context, h *PageHandle) error {
	if h == nil {
		return nil
	}
	var err error
	h.once.Do(func() {
		p.released.Add(1)
		if cerr := h.page.Close(Detach(ctx)); cerr != nil {
			err = errs.Resource("page.release", cerr)
		}
		p.logger.Debug("Page released.", zap.String("page_id", h.id))
	})
	return err
}

func (p *PageProvider) Acquired() int64 { return p.acquired.Load() }
func (p *PageProvider) Released() int64 { return p.released.Load() }

// Fixtures gives each caller a fresh browsing context with one page in it.
type Fixtures struct {
	manager  *Manager
	provider *PageProvider
}

func NewFixtures(m *Manager, p *PageProvider) *Fixtures {
	return &Fixtures{manager: m, provider: p}
}

func (f *Fixtures) Provider() *PageProvider { return f.provider }

// Acquire opens a context and a page inside it.
func (f *Fixtures) Acquire(ctx context.Context) (*PageHandle, error) {
	bc, err := f.manager.NewContext(ctx)
	if err != nil {
		return nil, err
	}
	h, err := f.provider.Acquire(ctx, bc)
	if err != nil {
		_ = bc.Close(Detach(ctx))
		return nil, err
	}
	return h, nil
}

// Release closes the page and then its context.
func (f *Fixtures) Release(ctx context.Context, h *PageHandle) error {
	if h == nil {
		return nil
	}
	err := f.provider.Release(ctx, h)
	if cerr := h.Context().Close(ctx); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
