// pkg/engine/element.go
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	clickAttempts = 5
	clickBackoff  = 200 * time.Millisecond
)

// Element is a capability wrapper around an element the engine has located
// and scrolled into view. It owns the locator, not the live DOM node; every
// interaction re-resolves through the engine so the element survives DOM
// churn between location and use.
type Element struct {
	// XPath is the locator the element was ensured with.
	XPath string

	handle *Handle
	click  func(ctx context.Context) error
}

func (h *Handle) newElement(xpath string) *Element {
	el := &Element{XPath: xpath, handle: h}
	el.click = func(ctx context.Context) error {
		return h.run(ctx, chromedp.Click(xpath, chromedp.BySearch))
	}
	return el
}

// Click dispatches a single click with no retry.
func (e *Element) Click(ctx context.Context) error {
	return e.click(ctx)
}

// Text returns the element's visible text content.
func (e *Element) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.handle.run(ctx, chromedp.Text(e.XPath, &text, chromedp.BySearch)); err != nil {
		return "", fmt.Errorf("text read failed for %q: %w", e.XPath, err)
	}
	return text, nil
}

// SendKeys types text into the element.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	if err := e.handle.run(ctx, chromedp.SendKeys(e.XPath, text, chromedp.BySearch)); err != nil {
		return fmt.Errorf("send keys failed for %q: %w", e.XPath, err)
	}
	return nil
}

// ClickWithRetry clicks the element, absorbing transient engine failures.
//
// The engine sometimes reports an element as interactable before its own
// scroll animation has settled, so the first click can miss even after
// EnsureElement scrolled the element into view. Up to 5 attempts are made
// with a fixed 0.2s pause between failures; a locator that is persistently
// broken still surfaces quickly (about a second) as ErrClickFailed carrying
// the last engine error.
func (e *Element) ClickWithRetry(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt < clickAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(clickBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = e.click(ctx); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: could not click %q after %d attempts: %v",
		ErrClickFailed, e.XPath, clickAttempts, lastErr)
}
