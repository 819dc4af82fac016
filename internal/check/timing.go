// internal/check/timing.go
package check

// NavigationTiming is the subset of a PerformanceNavigationTiming entry the budget
// checks read. Values are milliseconds relative to navigation start.
type NavigationTiming struct {
	LoadEventStart             float64 `json:"loadEventStart"`
	LoadEventEnd               float64 `json:"loadEventEnd"`
	DOMContentLoadedEventStart float64 `json:"domContentLoadedEventStart"`
	DOMContentLoadedEventEnd   float64 `json:"domContentLoadedEventEnd"`
}

// LoadTime is the duration of the load event handlers.
func (t NavigationTiming) LoadTime() float64 {
	return t.LoadEventEnd - t.LoadEventStart
}

// DOMContentLoaded is the duration of the DOMContentLoaded handlers.
func (t NavigationTiming) DOMContentLoaded() float64 {
	return t.DOMContentLoadedEventEnd - t.DOMContentLoadedEventStart
}

// NavigationTimingScript returns the first navigation entry, or null before one exists.
const NavigationTimingScript = `(() => {
	const nav = performance.getEntriesByType('navigation')[0];
	if (!nav) { return null; }
	return {
		loadEventStart: nav.loadEventStart,
		loadEventEnd: nav.loadEventEnd,
		domContentLoadedEventStart: nav.domContentLoadedEventStart,
		domContentLoadedEventEnd: nav.domContentLoadedEventEnd
	};
})()`
