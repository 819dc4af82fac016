// internal/scenario/steps.go
package scenario

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-e2e/internal/browser"
	"github.com/xkilldash9x/scalpel-e2e/internal/check"
	"github.com/xkilldash9x/scalpel-e2e/internal/probe"
)

var errNoPage = errors.New("step needs a page but the scenario has none")

// stepState is what steps of one scenario share.
type stepState struct {
	page browser.Page
	// optional memoizes optional_if decisions by selector.
	optional map[string]bool
}

// step runs one step. ok is false when the step records no result.
func (r *Runner) step(ctx context.Context, st *stepState, s Step) (check.Result, bool, error) {
	if s.OptionalIf != "" {
		run, err := r.optional(ctx, st, s.OptionalIf)
		if err != nil {
			return check.Result{}, false, err
		}
		if !run {
			r.logger.Debug("Optional step skipped.", zap.String("step", s.Label()), zap.String("optional_if", s.OptionalIf))
			return check.Result{}, false, nil
		}
	}

	if s.Kind() == StepCheck {
		spec, ok := checkSpecs[s.Check]
		if !ok {
			return check.Result{}, false, fmt.Errorf("unknown check %q", s.Check)
		}
		if spec.kind == KindAPI {
			return r.apiCheck(ctx, s)
		}
		if st.page == nil {
			return check.Result{}, false, errNoPage
		}
		res, err := r.pageCheck(ctx, st.page, s)
		return res, err == nil, err
	}

	if st.page == nil {
		return check.Result{}, false, errNoPage
	}
	return check.Result{}, false, r.interact(ctx, st.page, s)
}

func (r *Runner) optional(ctx context.Context, st *stepState, selector string) (bool, error) {
	if run, seen := st.optional[selector]; seen {
		return run, nil
	}
	if st.page == nil {
		return false, errNoPage
	}
	_, n, err := firstPresent(ctx, st.page, selector)
	if err != nil {
		return false, err
	}
	st.optional[selector] = n > 0
	return n > 0, nil
}

// firstPresent returns the first alternative of selector that matches anything,
// and how many elements it matched. With no match it returns the first alternative.
func firstPresent(ctx context.Context, page browser.Page, selector string) (string, int, error) {
	alts := browser.Alternatives(selector)
	if len(alts) == 0 {
		return "", 0, fmt.Errorf("empty selector")
	}
	for _, alt := range alts {
		n, err := page.Count(ctx, alt)
		if err != nil {
			return "", 0, err
		}
		if n > 0 {
			return alt, n, nil
		}
	}
	return alts[0], 0, nil
}

func anyVisible(ctx context.Context, page browser.Page, alts []string) (bool, error) {
	for _, alt := range alts {
		visible, err := page.IsVisible(ctx, alt)
		if err != nil {
			return false, err
		}
		if visible {
			return true, nil
		}
	}
	return false, nil
}

// waitVisibility polls until the selector's visibility equals want or wait elapses,
// and returns the last observed visibility.
func (r *Runner) waitVisibility(ctx context.Context, page browser.Page, selector string, wait time.Duration, want bool) (bool, time.Duration, error) {
	if wait <= 0 {
		wait = r.cfg.PresenceWait
	}
	alts := browser.Alternatives(selector)
	start := time.Now()
	deadline := start.Add(wait)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		visible, err := anyVisible(ctx, page, alts)
		if err != nil {
			return false, time.Since(start), err
		}
		if visible == want || !time.Now().Before(deadline) {
			return visible, time.Since(start), nil
		}
		select {
		case <-ctx.Done():
			return visible, time.Since(start), ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Runner) interact(ctx context.Context, page browser.Page, s Step) error {
	switch s.Kind() {
	case StepNavigate:
		target, err := r.resolve(s.Navigate)
		if err != nil {
			return err
		}
		return page.Navigate(ctx, target, s.WaitIdle)
	case StepClick:
		sel, _, err := firstPresent(ctx, page, s.Click)
		if err != nil {
			return err
		}
		return page.Click(ctx, sel)
	case StepFill:
		sel, _, err := firstPresent(ctx, page, s.Fill)
		if err != nil {
			return err
		}
		return page.Fill(ctx, sel, s.Value)
	case StepPress:
		return page.Press(ctx, s.Press)
	case StepScrollIntoView:
		sel, _, err := firstPresent(ctx, page, s.ScrollIntoView)
		if err != nil {
			return err
		}
		return page.ScrollIntoView(ctx, sel)
	case StepResize:
		return page.SetViewport(ctx, *s.Resize)
	case StepPause:
		t := time.NewTimer(s.Pause)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	default:
		return fmt.Errorf("invalid step")
	}
}

func (r *Runner) pageCheck(ctx context.Context, page browser.Page, s Step) (check.Result, error) {
	switch s.Check {
	case CheckVisible:
		visible, waited, err := r.waitVisibility(ctx, page, s.Target, s.Wait, true)
		if err != nil {
			return check.Result{}, err
		}
		return check.ContentPresence(check.Presence{Target: s.Target, Found: visible, Waited: waited.Round(time.Millisecond)}), nil

	case CheckHidden:
		visible, _, err := r.waitVisibility(ctx, page, s.Target, s.Wait, false)
		if err != nil {
			return check.Result{}, err
		}
		return check.Hidden(s.Target, visible), nil

	case CheckTextContains:
		visible, waited, err := r.waitVisibility(ctx, page, s.Target, s.Wait, true)
		if err != nil {
			return check.Result{}, err
		}
		sel, n, err := firstPresent(ctx, page, s.Target)
		if err != nil {
			return check.Result{}, err
		}
		if n == 0 && !visible {
			return check.Fail(check.NameTextContains, "%s not found within %s", s.Target, waited.Round(time.Millisecond)), nil
		}
		text, _, err := page.Text(ctx, sel)
		if err != nil {
			return check.Result{}, err
		}
		return check.TextContains(s.Target, text, s.Want), nil

	case CheckAttrContains:
		value, present, err := page.Attribute(ctx, s.Target, s.Attr)
		if err != nil {
			return check.Result{}, err
		}
		return check.AttributeContains(s.Target, s.Attr, value, present, s.Want), nil

	case CheckTitleMatches:
		re, err := compilePattern(s.Want)
		if err != nil {
			return check.Result{}, err
		}
		title, err := page.Title(ctx)
		if err != nil {
			return check.Result{}, err
		}
		return check.TitleMatches(title, re), nil

	case CheckHeadingHierarchy, CheckImageAltText:
		html, err := page.HTML(ctx)
		if err != nil {
			return check.Result{}, err
		}
		doc, err := check.ParseDocument(html)
		if err != nil {
			return check.Result{}, err
		}
		if s.Check == CheckHeadingHierarchy {
			return check.HeadingHierarchy(doc), nil
		}
		return check.ImageAltText(doc), nil

	case CheckLoadTime, CheckDOMContentLoaded:
		timing, err := page.NavigationTiming(ctx)
		if err != nil {
			return check.Result{}, err
		}
		if s.Check == CheckLoadTime {
			return check.LoadTimeBudget(timing, s.Budget), nil
		}
		return check.DOMContentLoadedBudget(timing, s.Budget), nil

	case CheckFocusMoved:
		tag, err := page.ActiveElementTag(ctx)
		if err != nil {
			return check.Result{}, err
		}
		return check.FocusMoved(tag), nil
	}
	return check.Result{}, fmt.Errorf("check %q is not a page check", s.Check)
}

// apiCheck runs one API contract. Network failures come back as error results
// from the probe and do not abort the scenario.
func (r *Runner) apiCheck(ctx context.Context, s Step) (check.Result, bool, error) {
	if r.api == nil {
		return check.Result{}, false, errors.New("no API probe configured")
	}
	switch s.Check {
	case CheckHealth:
		return r.api.Health(ctx), true, nil
	case CheckReadiness:
		return r.api.Readiness(ctx), true, nil
	case CheckCORS:
		return r.api.CORSPreflight(ctx), true, nil
	case CheckSecurityHeaders:
		return r.api.SecurityHeaders(ctx), true, nil
	case CheckLatency:
		return r.api.Latency(ctx, s.Budget), true, nil
	case CheckBurst:
		return r.api.Burst(ctx, s.Path, s.Count), true, nil
	case CheckRateLimit:
		path := s.Path
		if path == "" {
			path = r.cfg.LimitedPath
		}
		if path == "" {
			r.logger.Debug("Rate-limit check skipped, no limited endpoint configured.")
			return check.Result{}, false, nil
		}
		n := s.Count
		if n <= 0 {
			n = probe.DefaultBurstSize
		}
		return r.api.RateLimitEnforced(ctx, path, n), true, nil
	case CheckStatus, CheckHeaders:
		resp, err := r.api.Call(ctx, probe.Request{Method: http.MethodGet, Path: s.Path})
		if err != nil {
			return check.Errored(s.resultName(), err), true, nil
		}
		if s.Check == CheckStatus {
			return check.StatusInSet(resp.Status, s.Status...), true, nil
		}
		return check.HeaderPresence(resp.Header, s.Headers...), true, nil
	}
	return check.Result{}, false, fmt.Errorf("check %q is not an API check", s.Check)
}
