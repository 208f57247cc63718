// pkg/session/response.go
package session

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Response wraps one HTTP response with query capabilities over its body.
//
// The body is drained (and content-decoded) once at construction; the parsed
// document behind the XPath and CSS queries is built lazily on first use and
// cached for the lifetime of the response. Both query engines share the same
// parsed tree, so inspecting the body through several query kinds in sequence
// never re-parses it.
type Response struct {
	raw  *http.Response
	body []byte

	parseOnce sync.Once
	parseErr  error
	doc       *html.Node
	cssDoc    *goquery.Document
}

// newResponse drains resp's body and wraps it. The caller must not touch
// resp.Body afterwards.
func newResponse(resp *http.Response) (*Response, error) {
	defer resp.Body.Close()

	reader, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return &Response{raw: resp, body: body}, nil
}

// NewRenderedResponse wraps markup captured outside the HTTP path, typically
// an engine-rendered page, so the same query surface applies to it. The
// synthetic OK status reflects that content was obtained, not how; header and
// cookie accessors return empty values.
func NewRenderedResponse(pageURL string, body []byte) *Response {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = &url.URL{}
	}
	return &Response{
		raw: &http.Response{
			Status:     "200 OK",
			StatusCode: http.StatusOK,
			Header:     make(http.Header),
			Request:    &http.Request{URL: u},
		},
		body: body,
	}
}

// decodeBody unwraps the response body according to its Content-Encoding.
// The transport decodes gzip transparently only when it negotiated it itself;
// a session that forces its own Accept-Encoding gets the raw stream and we
// decode here.
func decodeBody(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "", "identity":
		return resp.Body, nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	case "gzip", "x-gzip":
		r, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		return r, nil
	case "deflate":
		return flate.NewReader(resp.Body), nil
	default:
		// Unknown encoding: hand the caller the raw bytes rather than fail.
		return resp.Body, nil
	}
}

// -- Delegating accessors --

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int { return r.raw.StatusCode }

// Status returns the HTTP status line.
func (r *Response) Status() string { return r.raw.Status }

// Header returns the response headers.
func (r *Response) Header() http.Header { return r.raw.Header }

// URL returns the final URL of the response, after any redirects.
func (r *Response) URL() *url.URL { return r.raw.Request.URL }

// Cookies returns the cookies set by this response.
func (r *Response) Cookies() []*http.Cookie { return r.raw.Cookies() }

// Bytes returns the decoded response body.
func (r *Response) Bytes() []byte { return r.body }

// Text returns the decoded response body as a string.
func (r *Response) Text() string { return string(r.body) }

// -- Queries --

// Document returns the lazily-built parsed tree backing all queries. The same
// node is returned on every call; the body is parsed at most once.
func (r *Response) Document() (*html.Node, error) {
	r.parseOnce.Do(func() {
		doc, err := htmlquery.Parse(bytes.NewReader(r.body))
		if err != nil {
			r.parseErr = fmt.Errorf("parsing response body: %w", err)
			return
		}
		r.doc = doc
		r.cssDoc = goquery.NewDocumentFromNode(doc)
	})
	return r.doc, r.parseErr
}

// XPath returns all nodes matching the XPath expression.
func (r *Response) XPath(expr string) ([]*html.Node, error) {
	doc, err := r.Document()
	if err != nil {
		return nil, err
	}
	nodes, err := htmlquery.QueryAll(doc, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath %q: %w", expr, err)
	}
	return nodes, nil
}

// XPathFirst returns the first node matching the XPath expression, or nil.
func (r *Response) XPathFirst(expr string) (*html.Node, error) {
	doc, err := r.Document()
	if err != nil {
		return nil, err
	}
	node, err := htmlquery.Query(doc, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath %q: %w", expr, err)
	}
	return node, nil
}

// CSS returns the selection matching a CSS selector expression.
func (r *Response) CSS(selector string) (*goquery.Selection, error) {
	if _, err := r.Document(); err != nil {
		return nil, err
	}
	return r.cssDoc.Find(selector), nil
}

// Regex returns all matches of pattern in the body text. When the pattern
// contains a capture group, the first group is returned for each match;
// otherwise the whole match is.
func (r *Response) Regex(pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("regex %q: %w", pattern, err)
	}
	var out []string
	for _, m := range re.FindAllStringSubmatch(r.Text(), -1) {
		if len(m) > 1 {
			out = append(out, m[1])
		} else {
			out = append(out, m[0])
		}
	}
	return out, nil
}

// RegexFirst returns the first match of pattern in the body text, or the
// empty string when nothing matches.
func (r *Response) RegexFirst(pattern string) (string, error) {
	matches, err := r.Regex(pattern)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}
	return matches[0], nil
}
