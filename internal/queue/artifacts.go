package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// ArtifactKind identifies which stage produced an artifact.
type ArtifactKind string

const (
	ArtifactInput      ArtifactKind = "input"
	ArtifactStory      ArtifactKind = "story"
	ArtifactVoiceTrack ArtifactKind = "voice_track"
	ArtifactImageSet   ArtifactKind = "image_set"
	ArtifactVideo      ArtifactKind = "video"
	ArtifactEpisode    ArtifactKind = "episode"
)

// Artifact is one immutable stage output attached to a job. Records are
// append-only; re-running a stage supersedes earlier rows of the same
// kind (highest id wins).
type Artifact struct {
	ID        int64
	JobID     int64
	Kind      ArtifactKind
	Ordinal   int
	Payload   string
	CreatedAt time.Time
}

// InputArtifact records the resolved input text and its provenance.
type InputArtifact struct {
	Text       string     `json:"text"`
	Provenance SourceKind `json:"provenance"`
	Processed  bool       `json:"processed"`
}

// StoryArtifact records the generated outline and script.
type StoryArtifact struct {
	Outline string `json:"outline"`
	Script  string `json:"script"`
}

// VoiceTrackArtifact records a synthesized narration track.
type VoiceTrackArtifact struct {
	AudioPath       string  `json:"audio_path"`
	Script          string  `json:"script"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// ImageSetArtifact records the ordered scene image references.
type ImageSetArtifact struct {
	Paths []string `json:"paths"`
}

// VideoArtifact records the final assembled video reference.
type VideoArtifact struct {
	Path string `json:"path"`
}

// EpisodeArtifact records one finished podcast episode.
type EpisodeArtifact struct {
	Index           int     `json:"index"`
	Title           string  `json:"title"`
	Script          string  `json:"script"`
	AudioPath       string  `json:"audio_path"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Decode unmarshals the artifact payload into out.
func (a *Artifact) Decode(out any) error {
	if err := json.Unmarshal([]byte(a.Payload), out); err != nil {
		return fmt.Errorf("decode %s artifact #%d: %w", a.Kind, a.ID, err)
	}
	return nil
}

func encodePayload(payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode artifact payload: %w", err)
	}
	return string(data), nil
}
