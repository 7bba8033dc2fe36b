package tarpit

import (
	"io"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"labyrinth/app/internal/metrics"
)

// Filler values are HTML-shaped so the stream compresses to almost nothing
// on the wire while expanding enormously in a crawler's parser.
var fillerValues = [][]byte{
	[]byte("<div><div class=\"\"><h2></h2></div><br>\n"),
	[]byte("<span><span><p><span>\n"),
	[]byte("<p></span><h3><p><span>\n"),
	[]byte("<div><span><p></h1>"),
	[]byte("</div></div></div>\n"),
	[]byte("</p></p></p>"),
	[]byte("<h1>Archive index</h1><img>\n"),
}

const (
	defaultMaxBytes  = int64(8 << 20)
	defaultChunkSize = 16 << 10
	defaultDelay     = 250 * time.Millisecond
)

// Options configures the tarpit stream.
type Options struct {
	MaxBytes  int64
	ChunkSize int
	Delay     time.Duration
	Logger    *logrus.Logger
	Metrics   *metrics.Metrics
}

// Tarpit serves bounded streams of cheap filler, compressed with the best
// encoding the client advertises and drip-fed to hold the connection open.
type Tarpit struct {
	maxBytes  int64
	chunkSize int
	delay     time.Duration
	logger    *logrus.Logger
	metrics   *metrics.Metrics
}

// New constructs a Tarpit, applying defaults for unset options.
func New(opts Options) *Tarpit {
	t := &Tarpit{
		maxBytes:  opts.MaxBytes,
		chunkSize: opts.ChunkSize,
		delay:     opts.Delay,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}

	if t.maxBytes <= 0 {
		t.maxBytes = defaultMaxBytes
	}
	if t.chunkSize <= 0 {
		t.chunkSize = defaultChunkSize
	}
	if t.delay <= 0 {
		t.delay = defaultDelay
	}

	return t
}

// ServeHTTP streams the filler as an attachment download.
func (t *Tarpit) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	encoding := NegotiateEncoding(r.Header.Get("Accept-Encoding"))

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=archive.bin")
	if encoding != "" {
		w.Header().Set("Content-Encoding", encoding)
	}

	sink, closeSink := t.encoder(w, encoding)
	defer closeSink()

	flusher, _ := w.(stdhttp.Flusher)
	source := io.LimitReader(&fillerReader{values: fillerValues}, t.maxBytes)
	buf := make([]byte, t.chunkSize)

	for {
		n, readErr := source.Read(buf)
		if n > 0 {
			if _, err := sink.Write(buf[:n]); err != nil {
				t.logDisconnect(r, err)
				return
			}
			if t.metrics != nil {
				t.metrics.TarpitBytes.Add(float64(n))
			}
			sink.Flush()
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-time.After(t.delay):
		}
	}
}

// flushWriter is satisfied by all three encoders and by the passthrough sink.
type flushWriter interface {
	io.Writer
	Flush() error
}

func (t *Tarpit) encoder(w io.Writer, encoding string) (flushWriter, func()) {
	switch encoding {
	case "br":
		enc := brotli.NewWriterLevel(w, brotli.BestCompression)
		return enc, func() { _ = enc.Close() }
	case "zstd":
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err == nil {
			return enc, func() { _ = enc.Close() }
		}
	case "gzip":
		enc, err := gzip.NewWriterLevel(w, gzip.BestCompression)
		if err == nil {
			return enc, func() { _ = enc.Close() }
		}
	}
	return passthrough{w}, func() {}
}

// NegotiateEncoding picks the densest encoding the client accepts, preferring
// brotli, then zstd, then gzip. An empty result means identity.
func NegotiateEncoding(acceptEncoding string) string {
	accepted := make(map[string]bool)
	for _, part := range strings.Split(acceptEncoding, ",") {
		token := strings.TrimSpace(part)
		if idx := strings.IndexByte(token, ';'); idx >= 0 {
			token = strings.TrimSpace(token[:idx])
		}
		if token != "" {
			accepted[strings.ToLower(token)] = true
		}
	}

	for _, candidate := range []string{"br", "zstd", "gzip"} {
		if accepted[candidate] {
			return candidate
		}
	}
	return ""
}

func (t *Tarpit) logDisconnect(r *stdhttp.Request, err error) {
	if t.logger == nil {
		return
	}
	t.logger.WithFields(logrus.Fields{
		"remote_addr": r.RemoteAddr,
		"error":       err.Error(),
	}).Debug("tarpit client disconnected")
}

type passthrough struct {
	io.Writer
}

func (passthrough) Flush() error { return nil }

// fillerReader yields the value set on repeat, truncating at buffer
// boundaries. It never returns an error; callers bound it with a LimitReader.
type fillerReader struct {
	values  [][]byte
	counter int
}

func (r *fillerReader) Read(p []byte) (int, error) {
	var i int
	for i < len(p) {
		value := r.values[r.counter%len(r.values)]
		i += copy(p[i:], value)
		r.counter++
	}
	return i, nil
}
