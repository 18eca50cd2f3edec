package pipeline

import (
	"context"
	"time"

	"fabler/internal/queue"
)

// StoryRequest carries the material and style for script generation.
type StoryRequest struct {
	Source      string
	Genre       string
	Tone        string
	TargetWords int
}

// EpisodeRequest asks for a multi-episode serialization of the source.
type EpisodeRequest struct {
	Source       string
	Genre        string
	Tone         string
	TargetWords  int
	EpisodeCount int
}

// EpisodeScript is one planned episode before narration.
type EpisodeScript struct {
	Index  int
	Title  string
	Script string
}

// StoryGenerator turns source material into narratable scripts.
type StoryGenerator interface {
	GenerateStory(ctx context.Context, req StoryRequest) (queue.StoryArtifact, error)
	GenerateEpisodes(ctx context.Context, req EpisodeRequest) ([]EpisodeScript, error)
}

// VoiceRequest asks for a narration track written to OutputPath.
type VoiceRequest struct {
	Script     string
	VoiceID    string
	OutputPath string
}

// VoiceSynthesizer renders a script into spoken audio.
type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, req VoiceRequest) error
}

// ImageRequest asks for one scene illustration written to OutputPath.
type ImageRequest struct {
	Prompt     string
	OutputPath string
}

// ImageSynthesizer renders scene illustrations.
type ImageSynthesizer interface {
	RenderScene(ctx context.Context, req ImageRequest) error
}

// AssembleRequest describes the inputs for the final video render.
type AssembleRequest struct {
	ImagePaths   []string
	AudioPath    string
	SubtitlePath string
	MusicPath    string
	Durations    []time.Duration
	OutputPath   string
}

// VideoAssembler composes images, narration, subtitles, and optional
// music into a single video file.
type VideoAssembler interface {
	Assemble(ctx context.Context, req AssembleRequest) error
}

// MusicRequest asks for a background track themed to the story.
type MusicRequest struct {
	Theme      string
	Duration   time.Duration
	OutputPath string
}

// MusicGenerator produces an optional background track. A false result
// without error means the track never became ready; callers proceed
// without music.
type MusicGenerator interface {
	Generate(ctx context.Context, req MusicRequest) (bool, error)
}

// MediaProcessor wraps the local media toolkit used during ingestion
// and duration probing.
type MediaProcessor interface {
	ExtractAudio(ctx context.Context, videoPath, outputPath string) error
	SplitAudio(ctx context.Context, audioPath string, chunk time.Duration, outputDir string) ([]string, error)
	Duration(ctx context.Context, mediaPath string) (time.Duration, error)
}

// Transcriber converts an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Fetcher resolves a URL into readable article text.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Adapters bundles every upstream dependency the engine drives.
type Adapters struct {
	Story       StoryGenerator
	Voice       VoiceSynthesizer
	Images      ImageSynthesizer
	Video       VideoAssembler
	Music       MusicGenerator
	Media       MediaProcessor
	Transcriber Transcriber
	Fetcher     Fetcher
}
