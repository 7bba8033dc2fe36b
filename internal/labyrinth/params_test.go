package labyrinth

import (
	"testing"

	"github.com/rotisserie/eris"
)

func TestParseParamsAppliesDefaults(t *testing.T) {
	t.Parallel()

	params, err := ParseParams(RawParams{
		ParamCorpus:   "corpus.txt",
		ParamBasePath: "/ephi/",
	})
	if err != nil {
		t.Fatalf("ParseParams returned error: %v", err)
	}

	if params.BlockSize != DefaultBlockSize {
		t.Errorf("expected default block size %d, got %d", DefaultBlockSize, params.BlockSize)
	}
	if params.TotalSize != DefaultTotalSize {
		t.Errorf("expected default total size %d, got %d", DefaultTotalSize, params.TotalSize)
	}
	if params.BasePath != "/ephi/" {
		t.Errorf("expected base path unchanged, got %q", params.BasePath)
	}
}

func TestParseParamsNormalizesBasePath(t *testing.T) {
	t.Parallel()

	params, err := ParseParams(RawParams{
		ParamCorpus:   "corpus.txt",
		ParamBasePath: "/ephi",
	})
	if err != nil {
		t.Fatalf("ParseParams returned error: %v", err)
	}

	if params.BasePath != "/ephi/" {
		t.Errorf("expected trailing separator appended, got %q", params.BasePath)
	}
}

func TestParseParamsMissingRequired(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  RawParams
	}{
		{"no corpus", RawParams{ParamBasePath: "/ephi/"}},
		{"no base path", RawParams{ParamCorpus: "corpus.txt"}},
	}

	for _, tc := range cases {
		if _, err := ParseParams(tc.raw); !eris.Is(err, ErrParamMissing) {
			t.Errorf("%s: expected ErrParamMissing, got %v", tc.name, err)
		}
	}
}

func TestParseParamsInvalidValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  RawParams
	}{
		{"empty corpus", RawParams{ParamCorpus: "", ParamBasePath: "/ephi/"}},
		{"empty base path", RawParams{ParamCorpus: "corpus.txt", ParamBasePath: ""}},
		{"negative block size", RawParams{ParamCorpus: "corpus.txt", ParamBasePath: "/ephi/", ParamBlockSize: "-5"}},
		{"zero total size", RawParams{ParamCorpus: "corpus.txt", ParamBasePath: "/ephi/", ParamTotalSize: "0"}},
		{"non-numeric block size", RawParams{ParamCorpus: "corpus.txt", ParamBasePath: "/ephi/", ParamBlockSize: "eighty"}},
		{"empty total size", RawParams{ParamCorpus: "corpus.txt", ParamBasePath: "/ephi/", ParamTotalSize: ""}},
	}

	for _, tc := range cases {
		if _, err := ParseParams(tc.raw); !eris.Is(err, ErrParamInvalid) {
			t.Errorf("%s: expected ErrParamInvalid, got %v", tc.name, err)
		}
	}
}

func TestParseParamsCustomSizes(t *testing.T) {
	t.Parallel()

	params, err := ParseParams(RawParams{
		ParamCorpus:    "corpus.txt",
		ParamBasePath:  "/ephi/",
		ParamBlockSize: "120",
		ParamTotalSize: "2000",
	})
	if err != nil {
		t.Fatalf("ParseParams returned error: %v", err)
	}

	if params.BlockSize != 120 {
		t.Errorf("expected block size 120, got %d", params.BlockSize)
	}
	if params.TotalSize != 2000 {
		t.Errorf("expected total size 2000, got %d", params.TotalSize)
	}
}
