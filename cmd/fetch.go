// -- cmd/fetch.go --
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/websession/internal/observability"
	"github.com/xkilldash9x/websession/pkg/engine"
	"github.com/xkilldash9x/websession/pkg/session"
)

var (
	fetchBrowser    bool
	fetchXPath      string
	fetchCSS        string
	fetchRegex      string
	fetchWaitFor    string
	fetchEnginePath string
	fetchKind       string
	fetchTimeout    time.Duration
)

// fetchCmd fetches a URL through the session. The plain mode issues a single
// HTTP request; --browser additionally renders the page in the engine with
// the session's cookies pushed in first, and pulls the engine's cookies back
// when done.
var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Fetch a URL and optionally query its content.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawURL := args[0]
		logger := observability.GetLogger()

		sessCfg := cfg.ToSessionConfig()
		if fetchEnginePath != "" {
			sessCfg.EngineExecPath = fetchEnginePath
		}
		if fetchKind != "" {
			sessCfg.EngineKind = engine.Kind(fetchKind)
		}
		if fetchTimeout > 0 {
			sessCfg.DefaultTimeout = fetchTimeout
		}

		s := session.New(sessCfg, logger)
		defer s.Close()

		ctx := cmd.Context()
		resp, err := s.Get(ctx, rawURL)
		if err != nil {
			return err
		}
		logger.Info("Fetched over HTTP.",
			zap.String("url", resp.URL().String()),
			zap.Int("status", resp.StatusCode()))

		if fetchBrowser {
			resp, err = renderInBrowser(cmd, s)
			if err != nil {
				return err
			}
		}

		return printQueries(resp)
	},
}

// renderInBrowser pushes the session's cookies into the engine, lets the
// engine render the last fetched URL, and returns the rendered page wrapped
// for querying. The engine's cookies are merged back into the session before
// returning.
func renderInBrowser(cmd *cobra.Command, s *session.Session) (*session.Response, error) {
	ctx := cmd.Context()
	if err := s.PushCookiesToEngine(ctx, ""); err != nil {
		return nil, err
	}
	eng, err := s.Engine(ctx)
	if err != nil {
		return nil, err
	}
	if fetchWaitFor != "" {
		if _, err := eng.EnsureElement(ctx, fetchWaitFor, engine.CriterionPresence, fetchTimeout); err != nil {
			return nil, err
		}
	}
	var rendered string
	if err := eng.ExecuteScript(ctx, "document.documentElement.outerHTML", &rendered); err != nil {
		return nil, err
	}
	loc, err := eng.CurrentURL(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.PullCookiesFromEngine(ctx); err != nil {
		return nil, err
	}
	return session.NewRenderedResponse(loc, []byte(rendered)), nil
}

// printQueries applies the query flags to resp and writes the results to
// stdout. With no query flag set, the body itself is printed.
func printQueries(resp *session.Response) error {
	if fetchXPath == "" && fetchCSS == "" && fetchRegex == "" {
		fmt.Fprintln(os.Stdout, resp.Text())
		return nil
	}

	if fetchXPath != "" {
		nodes, err := resp.XPath(fetchXPath)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			fmt.Fprintln(os.Stdout, htmlquery.OutputHTML(n, true))
		}
	}
	if fetchCSS != "" {
		sel, err := resp.CSS(fetchCSS)
		if err != nil {
			return err
		}
		sel.Each(func(_ int, s *goquery.Selection) {
			if markup, err := goquery.OuterHtml(s); err == nil {
				fmt.Fprintln(os.Stdout, markup)
			}
		})
	}
	if fetchRegex != "" {
		matches, err := resp.Regex(fetchRegex)
		if err != nil {
			return err
		}
		for _, m := range matches {
			fmt.Fprintln(os.Stdout, m)
		}
	}
	return nil
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchBrowser, "browser", false, "render the page in the browser engine after the HTTP fetch")
	fetchCmd.Flags().StringVar(&fetchXPath, "xpath", "", "print nodes matching this XPath expression")
	fetchCmd.Flags().StringVar(&fetchCSS, "css", "", "print elements matching this CSS selector")
	fetchCmd.Flags().StringVar(&fetchRegex, "regex", "", "print matches of this regular expression")
	fetchCmd.Flags().StringVar(&fetchWaitFor, "wait-for", "", "with --browser, wait for this XPath to be present before reading the page")
	fetchCmd.Flags().StringVar(&fetchEnginePath, "engine-path", "", "browser executable path (overrides config)")
	fetchCmd.Flags().StringVar(&fetchKind, "kind", "", "engine kind: chrome or chrome-headless (overrides config)")
	fetchCmd.Flags().DurationVar(&fetchTimeout, "timeout", 0, "explicit wait timeout (overrides config)")
	rootCmd.AddCommand(fetchCmd)
}
