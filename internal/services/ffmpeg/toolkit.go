package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"fabler/internal/config"
	"fabler/internal/services"
)

const stageName = "media"

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// Toolkit drives the local ffmpeg and ffprobe binaries for audio
// extraction, segmentation, duration probing, and video assembly.
type Toolkit struct {
	ffmpegBin  string
	ffprobeBin string
	runner     commandRunner
}

// Option customizes the toolkit.
type Option func(*Toolkit)

// WithRunner overrides process execution, used in tests.
func WithRunner(runner commandRunner) Option {
	return func(t *Toolkit) {
		if runner != nil {
			t.runner = runner
		}
	}
}

// NewToolkit constructs a toolkit from media configuration.
func NewToolkit(cfg config.Media, opts ...Option) *Toolkit {
	toolkit := &Toolkit{
		ffmpegBin:  strings.TrimSpace(cfg.FFmpegBinary),
		ffprobeBin: strings.TrimSpace(cfg.FFprobeBinary),
		runner:     execRunner{},
	}
	if toolkit.ffmpegBin == "" {
		toolkit.ffmpegBin = "ffmpeg"
	}
	if toolkit.ffprobeBin == "" {
		toolkit.ffprobeBin = "ffprobe"
	}
	for _, opt := range opts {
		opt(toolkit)
	}
	return toolkit
}

// ExtractAudio pulls the audio track out of a video file as MP3.
func (t *Toolkit) ExtractAudio(ctx context.Context, videoPath, outputPath string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "2",
		outputPath,
	}
	return t.runFFmpeg(ctx, "extract audio", args)
}

// SplitAudio segments an audio file into chunks of at most the given
// length, returning the chunk paths in playback order.
func (t *Toolkit) SplitAudio(ctx context.Context, audioPath string, chunk time.Duration, outputDir string) ([]string, error) {
	pattern := filepath.Join(outputDir, "chunk-%03d.mp3")
	args := []string{
		"-y",
		"-i", audioPath,
		"-f", "segment",
		"-segment_time", strconv.Itoa(int(chunk.Seconds())),
		"-c", "copy",
		pattern,
	}
	if err := t.runFFmpeg(ctx, "split audio", args); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, services.Wrap(services.ErrResource, stageName, "split audio", "read chunk directory", err)
	}
	var chunks []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "chunk-") {
			continue
		}
		chunks = append(chunks, filepath.Join(outputDir, entry.Name()))
	}
	sort.Strings(chunks)
	if len(chunks) == 0 {
		return nil, services.Wrap(services.ErrResource, stageName, "split audio", "segmentation produced no chunks", nil)
	}
	return chunks, nil
}

// Duration probes a media file's playback length.
func (t *Toolkit) Duration(ctx context.Context, mediaPath string) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		mediaPath,
	}
	result, err := t.runner.Run(ctx, t.ffprobeBin, args...)
	if err != nil {
		return 0, commandError("probe duration", t.ffprobeBin, result, err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(result.Stdout), 64)
	if err != nil {
		return 0, services.Wrap(services.ErrResource, stageName, "probe duration",
			fmt.Sprintf("unparseable ffprobe output %q", strings.TrimSpace(result.Stdout)), err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func (t *Toolkit) runFFmpeg(ctx context.Context, operation string, args []string) error {
	result, err := t.runner.Run(ctx, t.ffmpegBin, args...)
	if err != nil {
		return commandError(operation, t.ffmpegBin, result, err)
	}
	return nil
}

func commandError(operation, binary string, result commandResult, err error) error {
	message := fmt.Sprintf("%s exited with %d", binary, result.ExitCode)
	if tail := stderrTail(result.Stderr); tail != "" {
		message += ": " + tail
	}
	return services.Wrap(services.ErrResource, stageName, operation, message, err)
}

// stderrTail returns the last non-empty stderr line, where ffmpeg puts
// its actual complaint.
func stderrTail(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
