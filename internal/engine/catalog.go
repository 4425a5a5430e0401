package engine

// Whisper model catalog. Names mirror the upstream checkpoint set; assets
// are the ggml conversions used by whisper.cpp.
var catalog = []struct {
	Name  string
	Asset string
}{
	{"tiny", "ggml-tiny.bin"},
	{"base", "ggml-base.bin"},
	{"small", "ggml-small.bin"},
	{"medium", "ggml-medium.bin"},
	{"large", "ggml-large-v3.bin"},
	{"tiny.en", "ggml-tiny.en.bin"},
	{"base.en", "ggml-base.en.bin"},
	{"small.en", "ggml-small.en.bin"},
	{"medium.en", "ggml-medium.en.bin"},
	{"turbo", "ggml-large-v3-turbo.bin"},
}

// ModelNames returns the statically known set of supported model names.
func ModelNames() []string {
	out := make([]string, 0, len(catalog))
	for _, m := range catalog {
		out = append(out, m.Name)
	}
	return out
}

// Supported reports whether name is a known model.
func Supported(name string) bool {
	_, ok := assetFor(name)
	return ok
}

func assetFor(name string) (string, bool) {
	for _, m := range catalog {
		if m.Name == name {
			return m.Asset, true
		}
	}
	return "", false
}
