// internal/browser/options.go
package browser

import (
	"runtime"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultUserAgent identifies the harness as a bot and carries a contact URL.
const DefaultUserAgent = "Mozilla/5.0 (compatible; AccessibilityScanner/1.0; +https://accessibility-scanner.com/bot)"

const defaultLaunchTimeout = 60 * time.Second

// Viewport is a page size in CSS pixels.
type Viewport struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

var (
	// DesktopViewport is the fixed size for desktop scenarios.
	DesktopViewport = Viewport{Width: 1280, Height: 720}
	// MobileViewport is the fixed size for mobile scenarios.
	MobileViewport = Viewport{Width: 375, Height: 667}
)

// IsZero reports whether the viewport was left unset.
func (v Viewport) IsZero() bool { return v.Width == 0 && v.Height == 0 }

// ContextConfig is applied to every browsing context, and through it to every page.
type ContextConfig struct {
	Viewport  Viewport
	UserAgent string
}

// Options configures the browser process owned by a Manager.
type Options struct {
	Headless        bool
	IgnoreTLSErrors bool
	// ExecPath overrides Chrome discovery. Empty means let chromedp find it.
	ExecPath      string
	Args          []string
	LaunchTimeout time.Duration
	Context       ContextConfig
}

// withDefaults fills unset fields.
func (o Options) withDefaults() Options {
	if o.Context.Viewport.IsZero() {
		o.Context.Viewport = DesktopViewport
	}
	if o.Context.UserAgent == "" {
		o.Context.UserAgent = DefaultUserAgent
	}
	if o.LaunchTimeout <= 0 {
		o.LaunchTimeout = defaultLaunchTimeout
	}
	return o
}

// allocatorOptions assembles the Chrome flags for the process.
func allocatorOptions(o Options) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		chromedp.Flag("headless", o.Headless),
		chromedp.Flag("hide-scrollbars", o.Headless),
		chromedp.Flag("mute-audio", o.Headless),
		chromedp.Flag("ignore-certificate-errors", o.IgnoreTLSErrors),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", o.Headless),
		chromedp.UserAgent(o.Context.UserAgent),
		chromedp.WindowSize(o.Context.Viewport.Width, o.Context.Viewport.Height),
	)
	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}

	// Extra args arrive as "--name=value" or "--name".
	for _, arg := range o.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(name, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	// CI runners are usually containers.
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}
	return opts
}
