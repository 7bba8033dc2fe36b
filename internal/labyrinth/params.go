package labyrinth

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Keys understood in the raw parameter bag handed to the generator.
const (
	ParamCorpus    = "corpus"
	ParamBasePath  = "base_path"
	ParamBlockSize = "block_size"
	ParamTotalSize = "total_size"
)

// Defaults applied when the optional size parameters are omitted.
const (
	DefaultBlockSize = 80
	DefaultTotalSize = 500
)

// ErrParamMissing reports a required parameter absent from the bag, while
// ErrParamInvalid reports a parameter present with an unusable value. Callers
// see both as the same generic failure; the distinction only exists in logs.
var (
	ErrParamMissing = eris.New("required parameter is missing")
	ErrParamInvalid = eris.New("parameter value is invalid")
)

// RawParams is the untyped parameter bag exposed at the transport boundary.
// All values arrive as text and are parsed by the generator.
type RawParams map[string]string

// Params is the validated, typed form of a generation request.
type Params struct {
	CorpusPath string
	BasePath   string
	BlockSize  int
	TotalSize  int
}

// ParseParams validates the raw bag, resolves defaults and normalizes the
// base link path to end with a path separator. No file access happens here.
func ParseParams(raw RawParams) (*Params, error) {
	corpus, ok := raw[ParamCorpus]
	if !ok {
		return nil, eris.Wrap(ErrParamMissing, ParamCorpus)
	}
	if corpus == "" {
		return nil, eris.Wrapf(ErrParamInvalid, "%s is empty", ParamCorpus)
	}

	basePath, ok := raw[ParamBasePath]
	if !ok {
		return nil, eris.Wrap(ErrParamMissing, ParamBasePath)
	}
	if basePath == "" {
		return nil, eris.Wrapf(ErrParamInvalid, "%s is empty", ParamBasePath)
	}

	blockSize, err := parseSize(raw, ParamBlockSize, DefaultBlockSize)
	if err != nil {
		return nil, err
	}

	totalSize, err := parseSize(raw, ParamTotalSize, DefaultTotalSize)
	if err != nil {
		return nil, err
	}

	return &Params{
		CorpusPath: corpus,
		BasePath:   NormalizeBasePath(basePath),
		BlockSize:  blockSize,
		TotalSize:  totalSize,
	}, nil
}

// NormalizeBasePath appends the trailing path separator when absent so every
// synthesized link lands under the configured prefix.
func NormalizeBasePath(basePath string) string {
	if strings.HasSuffix(basePath, "/") {
		return basePath
	}
	return basePath + "/"
}

func parseSize(raw RawParams, key string, fallback int) (int, error) {
	value, ok := raw[key]
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, eris.Wrapf(ErrParamInvalid, "%s is not an integer: %s", key, value)
	}
	if parsed <= 0 {
		return 0, eris.Wrapf(ErrParamInvalid, "%s must be positive, got %d", key, parsed)
	}

	return parsed, nil
}
