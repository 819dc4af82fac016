// internal/browser/options_test.go
package browser

import (
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
)

func TestOptions_WithDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, DesktopViewport, o.Context.Viewport)
	assert.Equal(t, DefaultUserAgent, o.Context.UserAgent)
	assert.Equal(t, defaultLaunchTimeout, o.LaunchTimeout)

	o = Options{LaunchTimeout: time.Second, Context: ContextConfig{Viewport: MobileViewport, UserAgent: "x"}}.withDefaults()
	assert.Equal(t, MobileViewport, o.Context.Viewport)
	assert.Equal(t, "x", o.Context.UserAgent)
	assert.Equal(t, time.Second, o.LaunchTimeout)
}

func TestAllocatorOptions(t *testing.T) {
	base := len(chromedp.DefaultExecAllocatorOptions)

	t.Run("Defaults", func(t *testing.T) {
		opts := allocatorOptions(Options{Headless: true}.withDefaults())
		assert.Greater(t, len(opts), base)
	})

	t.Run("ExtraArgs", func(t *testing.T) {
		plain := allocatorOptions(Options{}.withDefaults())
		extra := allocatorOptions(Options{Args: []string{"--lang=en-US", "--disable-web-security", "--"}}.withDefaults())
		// The bare "--" is dropped.
		assert.Len(t, extra, len(plain)+2)
	})

	t.Run("ExecPath", func(t *testing.T) {
		plain := allocatorOptions(Options{}.withDefaults())
		withPath := allocatorOptions(Options{ExecPath: "/usr/bin/chromium"}.withDefaults())
		assert.Len(t, withPath, len(plain)+1)
	})
}
