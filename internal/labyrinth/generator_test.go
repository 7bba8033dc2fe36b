package labyrinth

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

func TestGenerateFillsExactTotalSize(t *testing.T) {
	t.Parallel()

	corpus := writeCorpus(t, readableCorpus(1000))
	gen := newTestGenerator()

	page, err := gen.Generate(context.Background(), RawParams{
		ParamCorpus:    corpus,
		ParamBasePath:  "/ephi/",
		ParamBlockSize: "80",
		ParamTotalSize: "500",
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	anchors := anchorsFromPage(t, page)
	if len(anchors) == 0 {
		t.Fatalf("expected at least one fragment link")
	}

	var total int
	for _, a := range anchors {
		total += len(a.text)
		if !strings.HasPrefix(a.href, "/ephi/") {
			t.Fatalf("expected link under /ephi/, got %q", a.href)
		}
		if !strings.HasSuffix(a.href, ".html") {
			t.Fatalf("expected .html link, got %q", a.href)
		}
	}

	if total != 500 {
		t.Fatalf("expected fragment text to total 500 bytes, got %d", total)
	}
}

func TestGenerateClampsSizesToCorpusLength(t *testing.T) {
	t.Parallel()

	corpus := writeCorpus(t, readableCorpus(50))
	gen := newTestGenerator()

	page, err := gen.Generate(context.Background(), RawParams{
		ParamCorpus:    corpus,
		ParamBasePath:  "/ephi/",
		ParamTotalSize: "500",
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	var total int
	for _, a := range anchorsFromPage(t, page) {
		total += len(a.text)
	}

	if total != 50 {
		t.Fatalf("expected fragment text clamped to 50 bytes, got %d", total)
	}
}

func TestGenerateWrapsAroundEndOfCorpus(t *testing.T) {
	t.Parallel()

	content := readableCorpus(50)
	corpus := writeCorpus(t, content)
	gen := newTestGenerator()

	// Block size equals corpus length, so every sample is a rotation of the
	// whole corpus regardless of the random offset.
	page, err := gen.Generate(context.Background(), RawParams{
		ParamCorpus:    corpus,
		ParamBasePath:  "/ephi/",
		ParamBlockSize: "50",
		ParamTotalSize: "50",
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	anchors := anchorsFromPage(t, page)
	if len(anchors) != 1 {
		t.Fatalf("expected exactly one fragment, got %d", len(anchors))
	}

	text := anchors[0].text
	if len(text) != 50 {
		t.Fatalf("expected 50-byte fragment, got %d bytes", len(text))
	}
	if !strings.Contains(content+content, text) {
		t.Fatalf("expected fragment to be a rotation of the corpus, got %q", text)
	}
}

func TestGenerateTerminatesOnWhitespaceOnlyCorpus(t *testing.T) {
	t.Parallel()

	corpus := writeCorpus(t, strings.Repeat("\n", 64))
	gen := newTestGenerator()

	page, err := gen.Generate(context.Background(), RawParams{
		ParamCorpus:    corpus,
		ParamBasePath:  "/ephi/",
		ParamBlockSize: "16",
		ParamTotalSize: "64",
	})
	if err != nil {
		t.Fatalf("expected a short page, got error: %v", err)
	}

	// Budget is ceil(64/16)*2 = 8 iterations; every sample normalizes to a
	// single space, so the page carries 8 one-byte fragments.
	anchors := anchorsFromPage(t, page)
	if len(anchors) != 8 {
		t.Fatalf("expected 8 fragments from an exhausted budget, got %d", len(anchors))
	}

	var total int
	for _, a := range anchors {
		total += len(a.text)
	}
	if total >= 64 {
		t.Fatalf("expected less content than the total size, got %d bytes", total)
	}
}

func TestGenerateInsertsTrailingSeparator(t *testing.T) {
	t.Parallel()

	corpus := writeCorpus(t, readableCorpus(200))
	gen := newTestGenerator()

	page, err := gen.Generate(context.Background(), RawParams{
		ParamCorpus:   corpus,
		ParamBasePath: "/ephi",
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	idPattern := regexp.MustCompile(`^/ephi/[0-9a-z]*\.html$`)
	for _, a := range anchorsFromPage(t, page) {
		if !idPattern.MatchString(a.href) {
			t.Fatalf("expected link matching %s, got %q", idPattern, a.href)
		}
	}
}

func TestGenerateRejectsEmptyCorpus(t *testing.T) {
	t.Parallel()

	corpus := writeCorpus(t, "")
	gen := newTestGenerator()

	_, err := gen.Generate(context.Background(), RawParams{
		ParamCorpus:   corpus,
		ParamBasePath: "/ephi/",
	})
	if err == nil {
		t.Fatalf("expected error for empty corpus")
	}
	if !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty-corpus error, got %v", err)
	}
}

func TestGenerateValidatesBeforeFileAccess(t *testing.T) {
	t.Parallel()

	gen := newTestGenerator()

	// Corpus path points nowhere, but the invalid block size must win: the
	// parameter error proves validation ran before any open attempt.
	_, err := gen.Generate(context.Background(), RawParams{
		ParamCorpus:    filepath.Join(t.TempDir(), "missing.txt"),
		ParamBasePath:  "/ephi/",
		ParamBlockSize: "-5",
	})
	if !eris.Is(err, ErrParamInvalid) {
		t.Fatalf("expected ErrParamInvalid, got %v", err)
	}
}

func TestGenerateReleasesCorpusHandleOnAllPaths(t *testing.T) {
	// No t.Parallel: descriptor counting must not race other tests.
	if _, err := os.Stat("/proc/self/fd"); err != nil {
		t.Skipf("requires /proc: %v", err)
	}

	gen := newTestGenerator()
	good := RawParams{
		ParamCorpus:   writeCorpus(t, readableCorpus(200)),
		ParamBasePath: "/ephi/",
	}
	empty := RawParams{
		ParamCorpus:   writeCorpus(t, ""),
		ParamBasePath: "/ephi/",
	}
	missing := RawParams{
		ParamCorpus:   filepath.Join(t.TempDir(), "missing.txt"),
		ParamBasePath: "/ephi/",
	}

	// Warm up once so lazily created descriptors don't skew the baseline.
	if _, err := gen.Generate(context.Background(), good); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	before := openDescriptors(t)
	for i := 0; i < 25; i++ {
		if _, err := gen.Generate(context.Background(), good); err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if _, err := gen.Generate(context.Background(), empty); err == nil {
			t.Fatalf("expected error for empty corpus")
		}
		if _, err := gen.Generate(context.Background(), missing); err == nil {
			t.Fatalf("expected error for missing corpus")
		}
	}
	after := openDescriptors(t)

	if after != before {
		t.Fatalf("open descriptor count changed from %d to %d", before, after)
	}
}

func TestRespondMapsOutcomesToTransportContract(t *testing.T) {
	t.Parallel()

	gen := newTestGenerator()
	corpus := writeCorpus(t, readableCorpus(300))

	status, body := gen.Respond(context.Background(), RawParams{
		ParamCorpus:   corpus,
		ParamBasePath: "/ephi/",
	})
	if status != 200 {
		t.Fatalf("expected status 200, got %d", status)
	}
	if !strings.Contains(body, `<div class="content">`) {
		t.Fatalf("expected content container in body, got %q", body)
	}

	status, body = gen.Respond(context.Background(), RawParams{
		ParamCorpus:   filepath.Join(t.TempDir(), "missing.txt"),
		ParamBasePath: "/ephi/",
	})
	if status != 500 {
		t.Fatalf("expected status 500, got %d", status)
	}
	if body != FailureMessage {
		t.Fatalf("expected the fixed failure message, got %q", body)
	}
}

func TestNormalizeTextCollapsesWhitespace(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input string
		want  string
	}{
		{"a\r\n\r\nb", "a b"},
		{"a\nb", "a b"},
		{"a   b", "a b"},
		{"\n\n\n", " "},
		{"plain text", "plain text"},
		{"tabs\tkept", "tabs\tkept"},
	}

	for _, tc := range cases {
		if got := normalizeText(tc.input); got != tc.want {
			t.Errorf("normalizeText(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestNormalizeTextIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"a\r\n b  c\nd",
		strings.Repeat("\r\n", 40),
		"  leading and trailing  ",
		readableCorpus(100),
	}

	for _, input := range inputs {
		once := normalizeText(input)
		if twice := normalizeText(once); twice != once {
			t.Errorf("normalizeText not idempotent for %q: %q != %q", input, twice, once)
		}
	}
}

func TestRandomPageIDUsesIdentifierCharactersOnly(t *testing.T) {
	t.Parallel()

	idPattern := regexp.MustCompile(`^[0-9a-z]{0,11}$`)
	for i := 0; i < 200; i++ {
		if id := randomPageID(); !idPattern.MatchString(id) {
			t.Fatalf("expected base-36 identifier, got %q", id)
		}
	}
}

// helpers

func newTestGenerator() *Generator {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewGenerator(GeneratorOptions{Logger: logger})
}

func writeCorpus(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "corpus.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing corpus failed: %v", err)
	}
	return path
}

func openDescriptors(t *testing.T) int {
	t.Helper()

	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Fatalf("reading /proc/self/fd failed: %v", err)
	}
	return len(entries)
}

// readableCorpus builds content that normalization leaves untouched, so byte
// accounting in tests stays exact.
func readableCorpus(size int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	var b strings.Builder
	for i := 0; i < size; i++ {
		b.WriteByte(letters[i%len(letters)])
	}
	return b.String()
}

type anchor struct {
	href string
	text string
}

func anchorsFromPage(t *testing.T, page string) []anchor {
	t.Helper()

	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		t.Fatalf("parsing page failed: %v", err)
	}

	var anchors []anchor
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			var href string
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					href = attr.Val
				}
			}
			anchors = append(anchors, anchor{href: href, text: textContent(n)})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return anchors
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
