// internal/browser/chrome.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-e2e/internal/check"
)

const closeTimeout = 15 * time.Second

// ChromeLauncher launches Chromium through chromedp's exec allocator.
type ChromeLauncher struct{}

// Launch starts the process and confirms it answers by loading about:blank.
func (ChromeLauncher) Launch(ctx context.Context, opts Options, logger *zap.Logger) (Engine, error) {
	logger.Info("Initializing browser allocator...", zap.Bool("headless", opts.Headless))

	// The process outlives the launch call and is torn down by Close.
	allocCtx, allocCancel := chromedp.NewExecAllocator(Detach(ctx), allocatorOptions(opts)...)
	sugar := logger.Named("cdp").Sugar()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithDebugf(func(string, ...interface{}) {}),
		chromedp.WithErrorf(sugar.Debugf),
	)

	e := &chromeEngine{
		logger:        logger,
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}

	// The first Run allocates the browser. A deadline on its context would kill the
	// process when it expires, so the launch timeout is enforced from outside.
	if err := within(ctx, opts.LaunchTimeout, func() error {
		return chromedp.Run(browserCtx, chromedp.Navigate("about:blank"))
	}); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	logger.Info("Browser launched successfully and is responsive.")
	return e, nil
}

// within runs fn and gives up when ctx ends or timeout passes. fn keeps running
// in the background until the caller cancels whatever it is blocked on.
func within(ctx context.Context, timeout time.Duration, fn func() error) error {
	errCh := make(chan error, 1)
	go func() { errCh <- fn() }()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer:
		return fmt.Errorf("timed out after %s", timeout)
	}
}

type chromeEngine struct {
	logger        *zap.Logger
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// browserExec targets browser-level CDP commands while honoring ctx's deadline.
func (e *chromeEngine) browserExec(ctx context.Context) context.Context {
	c := chromedp.FromContext(e.browserCtx)
	return cdp.WithExecutor(ctx, c.Browser)
}

func (e *chromeEngine) NewContext(ctx context.Context, cfg ContextConfig) (ContextBackend, error) {
	id, err := target.CreateBrowserContext().WithDisposeOnDetach(true).Do(e.browserExec(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	return &chromeContext{engine: e, id: id, cfg: cfg}, nil
}

func (e *chromeEngine) Alive() bool { return e.browserCtx.Err() == nil }

func (e *chromeEngine) Close(ctx context.Context) error {
	err := within(ctx, closeTimeout, func() error { return chromedp.Cancel(e.browserCtx) })
	e.browserCancel()
	e.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

type chromeContext struct {
	engine *chromeEngine
	id     cdp.BrowserContextID
	cfg    ContextConfig
}

func (c *chromeContext) NewPage(ctx context.Context) (Page, error) {
	targetID, err := target.CreateTarget("about:blank").
		WithBrowserContextID(c.id).
		Do(c.engine.browserExec(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create target: %w", err)
	}

	tabCtx, cancel := chromedp.NewContext(c.engine.browserCtx, chromedp.WithTargetID(targetID))
	logger := c.engine.logger.With(zap.String("target_id", string(targetID)))
	p := &chromePage{
		id:     string(targetID),
		tabCtx: tabCtx,
		cancel: cancel,
		logger: logger,
		idle:   newIdleTracker(logger),
	}
	chromedp.ListenTarget(tabCtx, p.idle.handle)

	// The first Run attaches to the target; it must use the tab context itself.
	if err := within(ctx, 0, func() error { return chromedp.Run(tabCtx, network.Enable()) }); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to attach to target: %w", err)
	}
	return p, nil
}

func (c *chromeContext) Close(ctx context.Context) error {
	err := target.DisposeBrowserContext(c.id).Do(c.engine.browserExec(ctx))
	if err != nil {
		return fmt.Errorf("failed to dispose browser context: %w", err)
	}
	return nil
}

type chromePage struct {
	id     string
	tabCtx context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	idle   *idleTracker
}

func (p *chromePage) ID() string { return p.id }

// run executes actions on the tab bounded by ctx.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := CombineContext(p.tabCtx, ctx)
	defer cancel()
	return chromedp.Run(opCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string, waitIdle bool) error {
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if !waitIdle {
		return nil
	}
	if err := p.idle.Wait(ctx, defaultQuietPeriod); err != nil {
		return fmt.Errorf("waiting for network idle on %s: %w", url, err)
	}
	return nil
}

func queryOption(l Locator) chromedp.QueryOption {
	if l.Kind == LocatorXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func (p *chromePage) Click(ctx context.Context, selector string) error {
	l := ParseLocator(selector)
	return p.run(ctx, chromedp.Click(l.Query, queryOption(l), chromedp.NodeVisible))
}

func (p *chromePage) Fill(ctx context.Context, selector, value string) error {
	l := ParseLocator(selector)
	return p.run(ctx,
		chromedp.SetValue(l.Query, "", queryOption(l)),
		chromedp.SendKeys(l.Query, value, queryOption(l)),
	)
}

var namedKeys = map[string]string{
	"tab":        kb.Tab,
	"enter":      kb.Enter,
	"escape":     kb.Escape,
	"backspace":  kb.Backspace,
	"arrowdown":  kb.ArrowDown,
	"arrowup":    kb.ArrowUp,
	"arrowleft":  kb.ArrowLeft,
	"arrowright": kb.ArrowRight,
}

// Press dispatches a key to whatever has focus.
func (p *chromePage) Press(ctx context.Context, key string) error {
	k, ok := namedKeys[strings.ToLower(key)]
	if !ok {
		k = key
	}
	return p.run(ctx, chromedp.KeyEvent(k))
}

func (p *chromePage) ScrollIntoView(ctx context.Context, selector string) error {
	l := ParseLocator(selector)
	return p.run(ctx, chromedp.ScrollIntoView(l.Query, queryOption(l)))
}

func (p *chromePage) SetViewport(ctx context.Context, vp Viewport) error {
	return p.run(ctx, chromedp.EmulateViewport(int64(vp.Width), int64(vp.Height)))
}

func (p *chromePage) SetUserAgent(ctx context.Context, ua string) error {
	return p.run(ctx, emulation.SetUserAgentOverride(ua))
}

// findScript resolves a locator to a JS array of elements.
func findScript(l Locator) string {
	q, _ := jsoniter.MarshalToString(l.Query)
	if l.Kind == LocatorXPath {
		return fmt.Sprintf(`(function(){var r=document.evaluate(%s,document,null,XPathResult.ORDERED_NODE_SNAPSHOT_TYPE,null);var out=[];for(var i=0;i<r.snapshotLength;i++){out.push(r.snapshotItem(i));}return out;})()`, q)
	}
	return fmt.Sprintf(`Array.prototype.slice.call(document.querySelectorAll(%s))`, q)
}

func (p *chromePage) eval(ctx context.Context, expr string, res interface{}) error {
	return p.run(ctx, chromedp.Evaluate(expr, res))
}

func (p *chromePage) IsVisible(ctx context.Context, selector string) (bool, error) {
	expr := fmt.Sprintf(`%s.some(function(el){var s=window.getComputedStyle(el);var r=el.getBoundingClientRect();return s.display!=="none"&&s.visibility!=="hidden"&&r.width>0&&r.height>0;})`, findScript(ParseLocator(selector)))
	var visible bool
	if err := p.eval(ctx, expr, &visible); err != nil {
		return false, fmt.Errorf("visibility of %q: %w", selector, err)
	}
	return visible, nil
}

func (p *chromePage) Count(ctx context.Context, selector string) (int, error) {
	var n int
	if err := p.eval(ctx, findScript(ParseLocator(selector))+".length", &n); err != nil {
		return 0, fmt.Errorf("count of %q: %w", selector, err)
	}
	return n, nil
}

type lookup struct {
	Found bool   `json:"found"`
	Value string `json:"value"`
}

func (p *chromePage) Text(ctx context.Context, selector string) (string, bool, error) {
	expr := fmt.Sprintf(`(function(){var el=%s[0];if(!el){return {found:false,value:""};}return {found:true,value:(el.innerText||el.textContent||"")};})()`, findScript(ParseLocator(selector)))
	var res lookup
	if err := p.eval(ctx, expr, &res); err != nil {
		return "", false, fmt.Errorf("text of %q: %w", selector, err)
	}
	return res.Value, res.Found, nil
}

func (p *chromePage) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	attr, _ := jsoniter.MarshalToString(name)
	expr := fmt.Sprintf(`(function(){var el=%s[0];if(!el||!el.hasAttribute(%s)){return {found:false,value:""};}return {found:true,value:el.getAttribute(%s)};})()`, findScript(ParseLocator(selector)), attr, attr)
	var res lookup
	if err := p.eval(ctx, expr, &res); err != nil {
		return "", false, fmt.Errorf("attribute %s of %q: %w", name, selector, err)
	}
	return res.Value, res.Found, nil
}

func (p *chromePage) Title(ctx context.Context) (string, error) {
	var title string
	if err := p.run(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("read title: %w", err)
	}
	return title, nil
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.eval(ctx, "document.documentElement.outerHTML", &html); err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return html, nil
}

func (p *chromePage) NavigationTiming(ctx context.Context) (check.NavigationTiming, error) {
	var timing *check.NavigationTiming
	if err := p.eval(ctx, check.NavigationTimingScript, &timing); err != nil {
		return check.NavigationTiming{}, fmt.Errorf("read navigation timing: %w", err)
	}
	if timing == nil {
		return check.NavigationTiming{}, errors.New("no navigation timing entry recorded")
	}
	return *timing, nil
}

func (p *chromePage) ActiveElementTag(ctx context.Context) (string, error) {
	var tag string
	expr := `document.activeElement ? document.activeElement.tagName.toLowerCase() : ""`
	if err := p.eval(ctx, expr, &tag); err != nil {
		return "", fmt.Errorf("read active element: %w", err)
	}
	return tag, nil
}

// Close closes the tab. Cleanup proceeds even if ctx is already canceled.
func (p *chromePage) Close(ctx context.Context) error {
	err := within(Detach(ctx), closeTimeout, func() error { return chromedp.Cancel(p.tabCtx) })
	p.cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close page %s: %w", p.id, err)
	}
	return nil
}
