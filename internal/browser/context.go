// internal/browser/context.go
package browser

import (
	"context"
	"sync"

	"github.com/xkilldash9x/scalpel-e2e/internal/errs"
)

// BrowsingContext is an isolated context inside a session. Pages opened in it share
// cookies and storage with each other but not with other contexts.
type BrowsingContext struct {
	id      string
	cfg     ContextConfig
	backend ContextBackend
	manager *Manager

	closeOnce sync.Once
	closeErr  error
}

func (b *BrowsingContext) ID() string            { return b.id }
func (b *BrowsingContext) Config() ContextConfig { return b.cfg }

func (b *BrowsingContext) newPage(ctx context.Context) (Page, error) {
	return b.backend.NewPage(ctx)
}

// Close disposes the context and its pages. Only the first call does any work.
func (b *BrowsingContext) Close(ctx context.Context) error {
	b.closeOnce.Do(func() {
		if err := b.backend.Close(Detach(ctx)); err != nil {
			b.closeErr = errs.Resource("browser.close_context", err)
		}
		if b.manager != nil {
			b.manager.forget(b.id)
		}
	})
	return b.closeErr
}
