package engine

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestModelNamesMatchesCatalog(t *testing.T) {
	names := ModelNames()
	if len(names) != len(catalog) {
		t.Fatalf("expected %d names, got %d", len(catalog), len(names))
	}
	for _, n := range []string{"tiny", "base", "small", "medium", "large", "turbo", "base.en"} {
		if !Supported(n) {
			t.Fatalf("expected %q supported", n)
		}
	}
	if Supported("gigantic") {
		t.Fatalf("unexpected support for unknown model")
	}
}

func TestAssetFor(t *testing.T) {
	asset, ok := assetFor("turbo")
	if !ok || asset != "ggml-large-v3-turbo.bin" {
		t.Fatalf("asset=%q ok=%v", asset, ok)
	}
	if _, ok := assetFor("nope"); ok {
		t.Fatalf("expected miss")
	}
}

func TestSubprocessLoaderMissingAsset(t *testing.T) {
	loader := NewSubprocessLoader(SubprocessConfig{
		ModelsDir: t.TempDir(),
		Log:       zerolog.Nop(),
	})
	_, err := loader(context.Background(), "tiny", "cpu")
	if err == nil || !IsAssetMissing(err) {
		t.Fatalf("expected asset-missing error, got %v", err)
	}
}

func TestSubprocessLoaderUnknownModel(t *testing.T) {
	loader := NewSubprocessLoader(SubprocessConfig{
		ModelsDir: t.TempDir(),
		Log:       zerolog.Nop(),
	})
	_, err := loader(context.Background(), "gigantic", "cpu")
	if err == nil || IsAssetMissing(err) {
		t.Fatalf("expected unknown-model error, got %v", err)
	}
}

func TestParseCLIOutput(t *testing.T) {
	raw := []byte(`{
		"result": {"language": "en"},
		"transcription": [
			{"offsets": {"from": 0, "to": 3480}, "text": " Hello world."},
			{"offsets": {"from": 3480, "to": 5100}, "text": " Goodbye."},
			{"offsets": {"from": 5100, "to": 5200}, "text": "   "}
		]
	}`)
	res, err := parseCLIOutput(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.Text != "Hello world. Goodbye." {
		t.Fatalf("text=%q", res.Text)
	}
	if res.Language != "en" {
		t.Fatalf("language=%q", res.Language)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("segments=%d", len(res.Segments))
	}
	if res.Segments[0].Start != 0 || res.Segments[0].End != 3.48 {
		t.Fatalf("segment offsets: %+v", res.Segments[0])
	}
	if res.Segments[1].Text != "Goodbye." {
		t.Fatalf("segment text: %+v", res.Segments[1])
	}
}

func TestParseCLIOutputMalformed(t *testing.T) {
	if _, err := parseCLIOutput([]byte("not json")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestIsDecodeFailure(t *testing.T) {
	cases := map[string]bool{
		"error: failed to read audio file":  true,
		"whisper_init: failed to open file": true,
		"error: failed to decode wav":       true,
		"cuda error: out of memory":         false,
	}
	for msg, want := range cases {
		if got := isDecodeFailure(msg); got != want {
			t.Fatalf("isDecodeFailure(%q)=%v want %v", msg, got, want)
		}
	}
}

func TestBadInputPredicate(t *testing.T) {
	if !IsBadInput(ErrBadInput("x")) {
		t.Fatalf("expected bad-input predicate to match")
	}
	if IsBadInput(ErrAssetMissing("/p")) {
		t.Fatalf("asset-missing misclassified as bad input")
	}
	if !IsAssetMissing(ErrAssetMissing("/p")) {
		t.Fatalf("expected asset-missing predicate to match")
	}
}
