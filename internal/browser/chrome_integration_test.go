// internal/browser/chrome_integration_test.go
package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/scalpel-e2e/internal/browser"
)

const fixtureHTML = `<!doctype html>
<html><head><title>AI Accessibility Scanner</title>
<meta name="description" content="The accessibility tool that submits PRs"></head>
<body>
<h1>We Don't Just Find Issues</h1>
<a href="#pricing">Start Free</a>
<button id="demo" onclick="document.getElementById('modal').style.display='block'">See Live Demo</button>
<div id="modal" role="dialog" style="display:none">Live Demo
  <button aria-label="Close" onclick="document.getElementById('modal').style.display='none'">×</button>
</div>
<section id="pricing"><h2>Pricing</h2><p>Pro $29.99</p></section>
<img src="/logo.png" alt="">
</body></html>`

func findChrome(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser integration test in short mode")
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("no Chrome or Chromium binary on PATH")
	return ""
}

func TestChrome_PageOperations(t *testing.T) {
	execPath := findChrome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, fixtureHTML)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	m := browser.NewManager(browser.Options{Headless: true, ExecPath: execPath}, nil, zaptest.NewLogger(t))
	require.NoError(t, m.Start(ctx))
	defer func() { assert.NoError(t, m.Shutdown(context.Background())) }()

	f := browser.NewFixtures(m, browser.NewPageProvider(zaptest.NewLogger(t)))
	h, err := f.Acquire(ctx)
	require.NoError(t, err)
	defer func() { assert.NoError(t, f.Release(context.Background(), h)) }()

	page := h.Page()
	require.NoError(t, page.Navigate(ctx, srv.URL, true))

	title, err := page.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AI Accessibility Scanner", title)

	text, ok, err := page.Text(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "We Don't Just Find Issues", text)

	visible, err := page.IsVisible(ctx, `text="Start Free"`)
	require.NoError(t, err)
	assert.True(t, visible)

	visible, err = page.IsVisible(ctx, `[role="dialog"]`)
	require.NoError(t, err)
	assert.False(t, visible)

	require.NoError(t, page.Click(ctx, `button:has-text("See Live Demo")`))
	visible, err = page.IsVisible(ctx, `[role="dialog"]`)
	require.NoError(t, err)
	assert.True(t, visible)

	require.NoError(t, page.Click(ctx, `button[aria-label="Close"]`))
	visible, err = page.IsVisible(ctx, `[role="dialog"]`)
	require.NoError(t, err)
	assert.False(t, visible)

	desc, ok, err := page.Attribute(ctx, `meta[name="description"]`, "content")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, desc, "accessibility tool that submits PRs")

	_, ok, err = page.Attribute(ctx, `meta[property="og:title"]`, "content")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := page.Count(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, page.Press(ctx, "Tab"))
	tag, err := page.ActiveElementTag(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, tag)

	timing, err := page.NavigationTiming(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, timing.LoadTime(), 0.0)

	require.NoError(t, page.SetViewport(ctx, browser.MobileViewport))
	html, err := page.HTML(ctx)
	require.NoError(t, err)
	assert.Contains(t, html, "Pricing")
}
