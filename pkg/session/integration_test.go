// pkg/session/integration_test.go
package session

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

	"github.com/xkilldash9x/websession/pkg/engine"
)

func findBrowser(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "google-chrome-stable"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("no Chrome/Chromium binary on PATH")
	return ""
}

// TestDualModeCookieTransfer drives the full round trip: authenticate over
// HTTP, hand the authenticated state to the browser engine, let the page
// mutate it, and pull the result back into the HTTP side.
func TestDualModeCookieTransfer(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	execPath := findBrowser(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "http-issued", Path: "/"})
		fmt.Fprint(w, "<html><body>logged in</body></html>")
	})
	mux.HandleFunc("/app", func(w http.ResponseWriter, r *http.Request) {
		sid := ""
		if c, err := r.Cookie("sid"); err == nil {
			sid = c.Value
		}
		fmt.Fprintf(w, `<html><body>
			<div id="sid">%s</div>
			<script>document.cookie = "browser_token=engine-issued; path=/";</script>
		</body></html>`, sid)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newTestSession(t, Config{
		EngineExecPath: execPath,
		EngineKind:     engine.KindChromeHeadless,
		DefaultTimeout: 10 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	// HTTP mode: authenticate.
	_, err := s.Get(ctx, srv.URL+"/login")
	require.NoError(t, err)
	require.Len(t, s.Jar().All(), 1)

	// Hand off to the engine and land on the app page.
	require.NoError(t, s.PushCookiesToEngine(ctx, srv.URL+"/app"))

	eng, err := s.Engine(ctx)
	require.NoError(t, err)

	// The page rendered with the HTTP-issued cookie attached.
	el, err := eng.EnsureElement(ctx, `//div[@id="sid"]`, engine.CriterionPresence, 10*time.Second)
	require.NoError(t, err)
	text, err := el.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http-issued", text)

	// Pull the engine's state back; the script-set cookie joins the jar.
	require.NoError(t, s.PullCookiesFromEngine(ctx))

	var names []string
	for _, c := range s.Jar().All() {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "sid")
	assert.Contains(t, names, "browser_token")
}
