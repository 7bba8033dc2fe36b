package http

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"os"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"labyrinth/app/internal/db"
	"labyrinth/app/internal/http/templates"
	"labyrinth/app/internal/labyrinth"
)

const (
	htmlContentType      = "text/html; charset=utf-8"
	statsClientsLimit    = 10
	statsRecentLimit     = 20
	errorFallbackMessage = "We couldn't process your request right now."
)

type htmlResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type labyrinthInput struct {
	Page string `path:"page"`
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
		Corpus   string `json:"corpus"`
	}
}

func (s *Server) registerHomeRoute() {
	huma.Get(s.api, "/", s.homeHandler, htmlOperation("Landing page", stdhttp.StatusInternalServerError))
}

func (s *Server) registerLabyrinthRoute() {
	huma.Get(s.api, s.basePath+"{page}", s.labyrinthHandler, htmlOperation(
		"Labyrinth page",
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerStatsRoute() {
	huma.Get(s.api, "/stats", s.statsHandler, htmlOperation(
		"Trap activity summary",
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) homeHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	data := templates.LandingPageData{
		Title:   "The Quiet Stacks",
		Tagline: "A small reading room of uncatalogued texts.",
		Paragraphs: []string{
			"This site hosts a loosely organized archive of public-domain text. Most of it is unindexed and best discovered by wandering.",
			"Automated access to the archive section is not permitted; see robots.txt.",
		},
		ArchiveURL: s.basePath + "index.html",
		FooterNote: "Pages in the archive are assembled on demand.",
	}

	body, err := renderComponent(ctx, templates.LandingPage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering landing page", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render the landing page.")
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

// labyrinthHandler serves one freshly generated page for any id under the
// base path. The id itself carries no meaning; every request is independent.
func (s *Server) labyrinthHandler(ctx context.Context, _ *labyrinthInput) (*htmlResponse, error) {
	status, body := s.generator.Respond(ctx, s.pageParams)
	return newHTMLResponse(status, []byte(body)), nil
}

func (s *Server) statsHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	count, err := s.visits.CountVisits(ctx)
	if err != nil {
		s.recordError(ctx, err, "counting visits", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	topClients, err := s.visits.TopClients(ctx, statsClientsLimit)
	if err != nil {
		s.recordError(ctx, err, "aggregating top clients", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	recent, err := s.visits.RecentVisits(ctx, statsRecentLimit)
	if err != nil {
		s.recordError(ctx, err, "listing recent visits", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	data := templates.StatsPageData{TotalVisits: count}
	for _, client := range topClients {
		data.TopClients = append(data.TopClients, templates.ClientCountView{
			ClientIP: client.ClientIP,
			Hits:     client.Hits,
		})
	}
	for _, visit := range recent {
		data.Recent = append(data.Recent, templates.VisitView{
			ClientIP:  visit.ClientIP,
			UserAgent: visit.UserAgent,
			Path:      visit.Path,
			Seen:      visit.CreatedAt.Format(time.RFC3339),
		})
	}

	body, err := renderComponent(ctx, templates.StatsPage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering stats page", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"
	resp.Body.Corpus = "ok"

	sqlDB, err := db.SQLDB(s.db)
	if err != nil {
		s.recordError(ctx, err, "obtaining sql db", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	} else if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
		s.recordError(ctx, pingErr, "pinging database", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	if info, statErr := os.Stat(s.pageParams[labyrinth.ParamCorpus]); statErr != nil || info.Size() == 0 {
		if statErr != nil {
			s.recordError(ctx, statErr, "inspecting corpus", nil)
		}
		resp.Body.Status = "degraded"
		resp.Body.Corpus = "unavailable"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	if resp.Status == 0 {
		resp.Status = stdhttp.StatusOK
	}

	return resp, nil
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		statusCodes := append([]int{stdhttp.StatusOK}, statuses...)
		for _, status := range statusCodes {
			code := strconv.Itoa(status)
			op.Responses[code] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}

func (s *Server) renderErrorResponse(ctx context.Context, status int, message string) (*htmlResponse, error) {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	template := templates.ErrorPage(templates.ErrorPageData{
		StatusLabel: label,
		Message:     message,
	})

	body, err := renderComponent(ctx, template)
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status})
		fallback := []byte(fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", label, message))
		return newHTMLResponse(status, fallback), nil
	}

	return newHTMLResponse(status, body), nil
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}
