package labyrinth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	stdhttp "net/http"
	"os"
	"regexp"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"labyrinth/app/internal/metrics"
)

// FailureMessage is the only error text a requester ever receives. Anything
// more specific stays in the operational logs.
const FailureMessage = "Something went wrong."

const (
	pageExtension = ".html"
	pageHeader    = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Archive</title>
<link rel="stylesheet" href="/styles.css">
</head>
<body>
<div class="content">
`
	pageFooter = `
</div>
</body>
</html>
`
)

var (
	lineBreakRuns = regexp.MustCompile(`[\r\n]+`)
	spaceRuns     = regexp.MustCompile(`  +`)
)

// GeneratorOptions configures the page generator.
type GeneratorOptions struct {
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
	Metrics   *metrics.Metrics
}

// Generator assembles labyrinth pages from random corpus samples. It holds no
// per-request state, so a single instance serves concurrent requests.
type Generator struct {
	logger    *logrus.Logger
	sentryHub *sentry.Hub
	metrics   *metrics.Metrics
}

// NewGenerator constructs a Generator.
func NewGenerator(opts GeneratorOptions) *Generator {
	return &Generator{
		logger:    opts.Logger,
		sentryHub: opts.SentryHub,
		metrics:   opts.Metrics,
	}
}

// Respond runs Generate and maps its outcome to the transport contract: 200
// with the document on success, 500 with the fixed generic message on any
// failure. Diagnostic detail is recorded, never returned.
func (g *Generator) Respond(ctx context.Context, raw RawParams) (int, string) {
	page, err := g.Generate(ctx, raw)
	if err != nil {
		g.recordError(nil, err, "labyrinth page generation failed")
		if g.metrics != nil {
			g.metrics.GenerationFailures.Inc()
		}
		return stdhttp.StatusInternalServerError, FailureMessage
	}

	if g.metrics != nil {
		g.metrics.PagesGenerated.Inc()
	}
	return stdhttp.StatusOK, page
}

// Generate produces one self-contained HTML document of hyperlinked corpus
// fragments. Every link points at a fresh random page id under the base path,
// so a crawler following them never runs out of pages.
func (g *Generator) Generate(ctx context.Context, raw RawParams) (string, error) {
	params, err := ParseParams(raw)
	if err != nil {
		return "", err
	}

	corpus, err := os.Open(params.CorpusPath)
	if err != nil {
		return "", eris.Wrapf(err, "opening corpus %s", params.CorpusPath)
	}
	defer func() {
		if closeErr := corpus.Close(); closeErr != nil {
			g.recordError(logrus.Fields{"corpus": params.CorpusPath}, closeErr, "closing corpus")
		}
	}()

	info, err := corpus.Stat()
	if err != nil {
		return "", eris.Wrapf(err, "inspecting corpus %s", params.CorpusPath)
	}

	corpusLength := info.Size()
	if corpusLength == 0 {
		return "", eris.Errorf("corpus %s is empty", params.CorpusPath)
	}

	blockSize := min(int64(params.BlockSize), corpusLength)
	totalSize := min(int64(params.TotalSize), corpusLength)

	// The budget caps retries against corpora that normalization shrinks to
	// almost nothing. Running out of budget emits a short page, not an error.
	budget := (totalSize + blockSize - 1) / blockSize * 2

	buf := make([]byte, blockSize)
	var body strings.Builder
	var accumulated int64

	for accumulated < totalSize && budget > 0 {
		if err := ctx.Err(); err != nil {
			return "", eris.Wrap(err, "generation interrupted")
		}

		text, err := g.sampleBlock(corpus, buf, corpusLength)
		if err != nil {
			return "", err
		}

		if accumulated+int64(len(text)) > totalSize {
			text = text[:totalSize-accumulated]
			accumulated = totalSize
		} else {
			accumulated += int64(len(text))
		}

		fmt.Fprintf(&body, "<a href=\"%s%s%s\">%s</a>\n", params.BasePath, randomPageID(), pageExtension, text)
		budget--
	}

	if g.metrics != nil {
		g.metrics.FragmentBytes.Add(float64(accumulated))
	}

	return pageHeader + body.String() + pageFooter, nil
}

// sampleBlock reads one block at a uniformly random offset, wrapping around
// to offset 0 when the block would run past the end of the corpus, and
// returns it normalized.
func (g *Generator) sampleBlock(corpus *os.File, buf []byte, corpusLength int64) (string, error) {
	offset := rand.Int64N(corpusLength)

	n, err := corpus.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", eris.Wrapf(err, "reading corpus at offset %d", offset)
	}

	if n < len(buf) {
		// Short read near the end of the file. The block size is clamped to
		// the corpus length, so the remainder always fits before the offset.
		m, wrapErr := corpus.ReadAt(buf[n:], 0)
		if wrapErr != nil && !errors.Is(wrapErr, io.EOF) {
			return "", eris.Wrap(wrapErr, "reading corpus wraparound")
		}
		n += m
	}

	return normalizeText(string(buf[:n])), nil
}

// normalizeText collapses line-break runs and space runs into single spaces
// so whitespace-heavy samples cannot pad the size accounting. Applying it
// twice yields the same result as applying it once.
func normalizeText(text string) string {
	text = lineBreakRuns.ReplaceAllString(text, " ")
	return spaceRuns.ReplaceAllString(text, " ")
}

const base36Digits = "0123456789abcdefghijklmnopqrstuvwxyz"

// randomPageID renders the fractional part of a random float in base 36,
// identifier characters only. Trailing zero digits are dropped, so the id
// can legitimately be empty; collisions between ids are harmless because
// every link triggers an independent generation.
func randomPageID() string {
	fraction := rand.Float64()
	digits := make([]byte, 0, 11)
	for i := 0; i < 11; i++ {
		fraction *= 36
		digit := int(fraction)
		digits = append(digits, base36Digits[digit])
		fraction -= float64(digit)
	}
	return strings.TrimRight(string(digits), "0")
}

func (g *Generator) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if g.logger != nil {
		entry := g.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if g.sentryHub != nil {
		g.sentryHub.CaptureException(err)
	}
}
