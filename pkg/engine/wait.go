// pkg/engine/wait.go
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Criterion is the predicate EnsureElement polls for.
type Criterion string

const (
	// CriterionPresence is satisfied by structural presence in the document
	// tree, visible or not. The most inclusive criterion.
	CriterionPresence Criterion = "presence"
	// CriterionVisibility additionally requires CSS/geometry visibility.
	// Careful: what the engine considers visible is not always intuitive.
	CriterionVisibility Criterion = "visibility"
	// CriterionClickable additionally requires interactability: not disabled
	// and not opted out of pointer events.
	CriterionClickable Criterion = "clickable"
)

// pollInterval is the fixed delay between predicate evaluations.
const pollInterval = 100 * time.Millisecond

// elementStateJS classifies the first node matching an XPath expression.
// Returns one of "absent", "present", "visible", "clickable"; each state
// implies all the weaker ones.
const elementStateJS = `(() => {
	const result = document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
	const el = result.singleNodeValue;
	if (!el || el.nodeType !== Node.ELEMENT_NODE) { return "absent"; }
	const style = window.getComputedStyle(el);
	const visible = style.display !== "none" && style.visibility !== "hidden" &&
		el.getClientRects().length > 0 && el.offsetWidth > 0 && el.offsetHeight > 0;
	if (!visible) { return "present"; }
	if (el.disabled || style.pointerEvents === "none") { return "visible"; }
	return "clickable";
})()`

// stateRank orders the observed states by strictness; a state satisfies a
// criterion when its rank is at least the criterion's.
var stateRank = map[string]int{
	"absent":    0,
	"present":   1,
	"visible":   2,
	"clickable": 3,
}

var criterionRank = map[Criterion]int{
	CriterionPresence:   1,
	CriterionVisibility: 2,
	CriterionClickable:  3,
}

// EnsureElement waits until an element matching xpath satisfies criterion,
// then scrolls it into view and returns a handle carrying the retrying-click
// capability.
//
// The engine executes independently of the calling goroutine: it loads pages
// for us synchronously, but it does not wait for the AJAX requests and DOM
// mutations its own scripts trigger. This method is the explicit wait for
// those cases. It polls the live document at a fixed short interval until the
// criterion holds, or fails with ErrTimeout after timeout (the handle's
// default when timeout <= 0). An unrecognized criterion fails with
// ErrInvalidArgument before any polling occurs.
func (h *Handle) EnsureElement(ctx context.Context, xpath string, criterion Criterion, timeout time.Duration) (*Element, error) {
	want, ok := criterionRank[criterion]
	if !ok {
		return nil, fmt.Errorf("%w: criterion must be %q, %q or %q, not %q",
			ErrInvalidArgument, CriterionPresence, CriterionVisibility, CriterionClickable, criterion)
	}
	if timeout <= 0 {
		timeout = h.cfg.DefaultTimeout
	}

	deadline := time.Now().Add(timeout)
	predicate := fmt.Sprintf(elementStateJS, xpath)

	var state string
	for {
		if err := h.run(ctx, chromedp.Evaluate(predicate, &state)); err != nil {
			return nil, fmt.Errorf("element state query failed for %q: %w", xpath, err)
		}
		if stateRank[state] >= want {
			break
		}
		if time.Now().After(deadline) {
			h.logger.Debug("Wait expired.",
				zap.String("xpath", xpath),
				zap.String("criterion", string(criterion)),
				zap.Duration("timeout", timeout))
			return nil, fmt.Errorf("%w: no element matching %q reached %q within %s",
				ErrTimeout, xpath, criterion, timeout)
		}
		select {
		case <-time.After(pollInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// Scroll the element into the viewport before handing it back, so the
	// caller can click it straight away. An unrendered element (present but
	// hidden) has no layout box to scroll to, so it is handed back as-is.
	if stateRank[state] >= stateRank["visible"] {
		if err := h.run(ctx, chromedp.ScrollIntoView(xpath, chromedp.BySearch)); err != nil {
			return nil, fmt.Errorf("scroll into view failed for %q: %w", xpath, err)
		}
	}

	return h.newElement(xpath), nil
}
