package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// SubprocessConfig configures the whisper.cpp CLI backend.
type SubprocessConfig struct {
	// Bin is the whisper.cpp CLI binary ("whisper-cli" if empty).
	Bin string
	// ModelsDir holds the ggml model assets.
	ModelsDir string
	// Threads is the per-job internal compute parallelism handed to the
	// CLI (-t). Keep Threads x pool ceiling within available cores.
	Threads int
	Log     zerolog.Logger
}

// NewSubprocessLoader returns a Loader backed by the whisper.cpp CLI.
// Each loaded Transcriber pins one model asset; the process itself is
// spawned per Transcribe call and the asset stays in the OS page cache,
// which is what makes reuse across requests cheap.
func NewSubprocessLoader(cfg SubprocessConfig) Loader {
	if cfg.Bin == "" {
		cfg.Bin = "whisper-cli"
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 1
	}
	return func(ctx context.Context, model, device string) (Transcriber, error) {
		asset, ok := assetFor(model)
		if !ok {
			return nil, fmt.Errorf("unknown model %q", model)
		}
		path := filepath.Join(cfg.ModelsDir, asset)
		fi, err := os.Stat(path)
		if err != nil || fi.IsDir() {
			return nil, ErrAssetMissing(path)
		}
		if _, err := exec.LookPath(cfg.Bin); err != nil {
			return nil, fmt.Errorf("whisper binary %q not found: %w", cfg.Bin, err)
		}
		t := &cliTranscriber{
			bin:       cfg.Bin,
			modelPath: path,
			device:    device,
			threads:   cfg.Threads,
			log:       cfg.Log.With().Str("model", model).Str("device", device).Logger(),
		}
		// Warmup read so the first request does not pay for cold disk I/O.
		if err := t.warm(ctx); err != nil {
			return nil, err
		}
		return t, nil
	}
}

// cliTranscriber shells out to the whisper.cpp CLI per request. Safe for
// concurrent use: each call owns its temp files and subprocess.
type cliTranscriber struct {
	bin       string
	modelPath string
	device    string
	threads   int
	log       zerolog.Logger
}

func (t *cliTranscriber) warm(ctx context.Context) error {
	f, err := os.Open(t.modelPath)
	if err != nil {
		return err
	}
	defer f.Close()
	buf := make([]byte, 1<<20)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := f.Read(buf); err != nil {
			break
		}
	}
	return nil
}

func (t *cliTranscriber) Transcribe(ctx context.Context, req Request) (Result, error) {
	dir, err := os.MkdirTemp("", "voxscribe-*")
	if err != nil {
		return Result{}, err
	}
	defer os.RemoveAll(dir)

	ext := req.Ext
	if ext == "" {
		ext = ".wav"
	}
	audioPath := filepath.Join(dir, "audio"+ext)
	if err := os.WriteFile(audioPath, req.Audio, 0o600); err != nil {
		return Result{}, err
	}
	outBase := filepath.Join(dir, "out")

	args := []string{
		"-m", t.modelPath,
		"-f", audioPath,
		"-t", fmt.Sprint(t.threads),
		"-oj",
		"-of", outBase,
	}
	if t.device == "cpu" {
		args = append(args, "-ng")
	}
	if req.Language != "" {
		args = append(args, "-l", req.Language)
	}
	if req.Task == "translate" {
		args = append(args, "--translate")
	}

	cmd := exec.CommandContext(ctx, t.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		t.log.Error().Err(err).Str("stderr", msg).Msg("whisper subprocess failed")
		if isDecodeFailure(msg) {
			return Result{}, ErrBadInput("could not decode audio: " + lastLine(msg))
		}
		return Result{}, fmt.Errorf("whisper subprocess: %w", err)
	}

	raw, err := os.ReadFile(outBase + ".json")
	if err != nil {
		return Result{}, fmt.Errorf("read transcript: %w", err)
	}
	return parseCLIOutput(raw)
}

func (t *cliTranscriber) Close() error { return nil }

// cliOutput mirrors the whisper.cpp -oj JSON layout (fields we consume).
type cliOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func parseCLIOutput(raw []byte) (Result, error) {
	var out cliOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return Result{}, fmt.Errorf("parse transcript: %w", err)
	}
	res := Result{Language: out.Result.Language}
	var sb strings.Builder
	for _, seg := range out.Transcription {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(text)
		res.Segments = append(res.Segments, segment(seg.Offsets.From, seg.Offsets.To, text))
	}
	res.Text = sb.String()
	return res, nil
}

func isDecodeFailure(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "failed to read") ||
		strings.Contains(s, "failed to open") ||
		strings.Contains(s, "failed to decode")
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
