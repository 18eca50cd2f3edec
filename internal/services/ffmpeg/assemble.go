package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fabler/internal/pipeline"
	"fabler/internal/services"
)

// Assemble renders the slideshow video: each image is held for its
// caption's duration, the narration track plays underneath, subtitles
// are burned in, and an optional music bed is mixed at low volume.
func (t *Toolkit) Assemble(ctx context.Context, req pipeline.AssembleRequest) error {
	if len(req.ImagePaths) == 0 {
		return services.Wrap(services.ErrPermanent, stageName, "assemble", "no images to assemble", nil)
	}
	if len(req.Durations) != len(req.ImagePaths) {
		return services.Wrap(services.ErrPermanent, stageName, "assemble",
			fmt.Sprintf("%d images but %d durations", len(req.ImagePaths), len(req.Durations)), nil)
	}

	listPath := filepath.Join(filepath.Dir(req.OutputPath), "slideshow.txt")
	if err := os.WriteFile(listPath, []byte(concatScript(req.ImagePaths, req.Durations)), 0o644); err != nil {
		return services.Wrap(services.ErrResource, stageName, "assemble", "write concat script", err)
	}

	return t.runFFmpeg(ctx, "assemble", assembleArgs(req, listPath))
}

// concatScript builds a concat demuxer script holding each image for
// its scene duration. The final image is repeated without a duration so
// the demuxer keeps the last frame alive through the audio tail.
func concatScript(images []string, durations []time.Duration) string {
	var b strings.Builder
	for i, image := range images {
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(image))
		fmt.Fprintf(&b, "duration %.3f\n", durations[i].Seconds())
	}
	fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(images[len(images)-1]))
	return b.String()
}

func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}

func assembleArgs(req pipeline.AssembleRequest, listPath string) []string {
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-i", req.AudioPath,
	}
	if req.MusicPath != "" {
		args = append(args, "-i", req.MusicPath)
	}

	videoFilter := "scale=trunc(iw/2)*2:trunc(ih/2)*2,format=yuv420p"
	if req.SubtitlePath != "" {
		videoFilter += ",subtitles=" + escapeFilterPath(req.SubtitlePath)
	}
	args = append(args, "-vf", videoFilter)

	if req.MusicPath != "" {
		args = append(args,
			"-filter_complex", "[2:a]volume=0.2[bg];[1:a][bg]amix=inputs=2:duration=first[aout]",
			"-map", "0:v",
			"-map", "[aout]",
		)
	} else {
		args = append(args,
			"-map", "0:v",
			"-map", "1:a",
		)
	}

	args = append(args,
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		req.OutputPath,
	)
	return args
}

// escapeFilterPath quotes a path for use inside an ffmpeg filter
// argument, where colons and quotes are syntax.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`)
	return "'" + replacer.Replace(path) + "'"
}
