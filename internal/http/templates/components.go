package templates

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
)

// layout wraps a body writer in the shared document chrome.
func layout(title string, body func(w io.Writer) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := fmt.Fprintf(w,
			"<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n<link rel=\"stylesheet\" href=\"/styles.css\">\n</head>\n<body>\n",
			html.EscapeString(title)); err != nil {
			return err
		}
		if err := body(w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body>\n</html>\n")
		return err
	})
}

// LandingPage renders the decoy landing page. The archive link is the only
// way in; well-behaved crawlers never follow it because robots.txt forbids
// the prefix.
func LandingPage(data LandingPageData) templ.Component {
	return layout(data.Title, func(w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<h1>%s</h1>\n<p class=\"tagline\">%s</p>\n",
			html.EscapeString(data.Title), html.EscapeString(data.Tagline)); err != nil {
			return err
		}
		for _, paragraph := range data.Paragraphs {
			if _, err := fmt.Fprintf(w, "<p>%s</p>\n", html.EscapeString(paragraph)); err != nil {
				return err
			}
		}
		if data.ArchiveURL != "" {
			if _, err := fmt.Fprintf(w, "<p><a href=\"%s\">Browse the archive</a></p>\n",
				html.EscapeString(data.ArchiveURL)); err != nil {
				return err
			}
		}
		if data.FooterNote != "" {
			if _, err := fmt.Fprintf(w, "<footer>%s</footer>\n", html.EscapeString(data.FooterNote)); err != nil {
				return err
			}
		}
		return nil
	})
}

// StatsPage renders the operator summary of recorded crawler activity.
func StatsPage(data StatsPageData) templ.Component {
	return layout("Trap activity", func(w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<h1>Trap activity</h1>\n<p>%d hits recorded.</p>\n", data.TotalVisits); err != nil {
			return err
		}

		if len(data.TopClients) > 0 {
			if _, err := io.WriteString(w, "<h2>Busiest clients</h2>\n<table>\n<tr><th>Client</th><th>Hits</th></tr>\n"); err != nil {
				return err
			}
			for _, client := range data.TopClients {
				if _, err := fmt.Fprintf(w, "<tr><td>%s</td><td>%d</td></tr>\n",
					html.EscapeString(client.ClientIP), client.Hits); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, "</table>\n"); err != nil {
				return err
			}
		}

		if len(data.Recent) > 0 {
			if _, err := io.WriteString(w, "<h2>Recent hits</h2>\n<table>\n<tr><th>Seen</th><th>Client</th><th>Path</th><th>User agent</th></tr>\n"); err != nil {
				return err
			}
			for _, visit := range data.Recent {
				if _, err := fmt.Fprintf(w, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
					html.EscapeString(visit.Seen),
					html.EscapeString(visit.ClientIP),
					html.EscapeString(visit.Path),
					html.EscapeString(visit.UserAgent)); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, "</table>\n"); err != nil {
				return err
			}
		}

		return nil
	})
}

// ErrorPage renders a caller-safe error view.
func ErrorPage(data ErrorPageData) templ.Component {
	return layout(data.StatusLabel, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "<h1>%s</h1>\n<p>%s</p>\n",
			html.EscapeString(data.StatusLabel), html.EscapeString(data.Message))
		return err
	})
}
