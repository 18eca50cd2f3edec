package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusScheduled  Status = "scheduled"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusScheduled,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ValidStatus reports whether the value is a known lifecycle status.
func ValidStatus(status Status) bool {
	_, ok := statusSet[status]
	return ok
}

// Terminal reports whether a status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Kind selects the pipeline a job runs through.
type Kind string

const (
	KindStoryVideo Kind = "story_video"
	KindPodcast    Kind = "podcast"
	KindVoiceClone Kind = "voice_clone"
)

var allKinds = []Kind{KindStoryVideo, KindPodcast, KindVoiceClone}

// ValidKind reports whether the value is a known job kind.
func ValidKind(kind Kind) bool {
	for _, k := range allKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// SourceKind tags the provenance of a job's input.
type SourceKind string

const (
	SourceText  SourceKind = "text"
	SourceURL   SourceKind = "url"
	SourceVideo SourceKind = "video"
)

// InputSpec is the typed input variant for a job. Exactly one payload
// field is meaningful, selected by Kind.
type InputSpec struct {
	Kind      SourceKind `json:"kind"`
	Text      string     `json:"text,omitempty"`
	URL       string     `json:"url,omitempty"`
	VideoPath string     `json:"video_path,omitempty"`
}

// Value returns the payload selected by the provenance tag.
func (s InputSpec) Value() string {
	switch s.Kind {
	case SourceURL:
		return s.URL
	case SourceVideo:
		return s.VideoPath
	default:
		return s.Text
	}
}

// Style carries generation parameters supplied at enqueue time.
type Style struct {
	Genre        string `json:"genre,omitempty"`
	Tone         string `json:"tone,omitempty"`
	TargetWords  int    `json:"target_words,omitempty"`
	Length       string `json:"length,omitempty"`
	EpisodeCount int    `json:"episode_count,omitempty"`
	VoiceID      string `json:"voice_id,omitempty"`
}

// FailureInfo records the stage and message of a terminal failure.
type FailureInfo struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Job represents one user-requested content-generation request.
type Job struct {
	ID          int64
	Title       string
	Kind        Kind
	Status      Status
	Input       InputSpec
	Style       Style
	ScheduledAt *time.Time
	Failure     *FailureInfo
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SetFailed marks the job failed with the supplied stage and message.
func (j *Job) SetFailed(stage, message string) {
	j.Status = StatusFailed
	j.Failure = &FailureInfo{
		Stage:   strings.TrimSpace(stage),
		Message: strings.TrimSpace(message),
	}
}

// HealthSummary describes aggregated queue counts per key lifecycle state.
type HealthSummary struct {
	Total      int
	Due        int
	Processing int
	Completed  int
	Failed     int
	Cancelled  int
}
