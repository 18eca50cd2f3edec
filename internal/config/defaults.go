package config

const (
	defaultLibraryDir         = "~/fabler/library"
	defaultScratchDir         = "~/.local/share/fabler/scratch"
	defaultLogDir             = "~/.local/share/fabler/logs"
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultScratchMaxAgeHours = 24
	defaultImageFanOut        = 3
	defaultRetryMaxAttempts   = 3
	defaultRetryDelaySeconds  = 2
	defaultStoryBaseURL       = "https://api.openai.com/v1/chat/completions"
	defaultStoryModel         = "gpt-4o-mini"
	defaultStoryTimeout       = 120
	defaultStoryGenre         = "adventure"
	defaultStoryTone          = "warm"
	defaultWordsPerStory      = 600
	defaultTTSBaseURL         = "https://api.elevenlabs.io/v1/text-to-speech"
	defaultTTSModelID         = "eleven_multilingual_v2"
	defaultTTSStability       = 0.5
	defaultTTSSimilarity      = 0.75
	defaultTTSMaxChunkChars   = 4500
	defaultTTSTimeout         = 180
	defaultImagesBaseURL      = "https://api.openai.com/v1/images/generations"
	defaultImageSize          = "1024x1024"
	defaultImageStylePrompt   = "digital illustration, cinematic lighting"
	defaultImagesTimeout      = 120
	defaultMusicPollAttempts  = 10
	defaultMusicPollInterval  = 6
	defaultMusicTimeout       = 30
	defaultTranscribeModel    = "whisper-1"
	defaultChunkMinutes       = 25
	defaultTranscribeTimeout  = 300
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultNtfyTimeout        = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			ScratchMaxAgeHours: defaultScratchMaxAgeHours,
			ImageFanOut:        defaultImageFanOut,
		},
		Retry: Retry{
			MaxAttempts:  defaultRetryMaxAttempts,
			DelaySeconds: defaultRetryDelaySeconds,
		},
		Story: Story{
			BaseURL:        defaultStoryBaseURL,
			Model:          defaultStoryModel,
			TimeoutSeconds: defaultStoryTimeout,
			Genre:          defaultStoryGenre,
			Tone:           defaultStoryTone,
			WordsPerStory:  defaultWordsPerStory,
		},
		TTS: TTS{
			BaseURL:         defaultTTSBaseURL,
			ModelID:         defaultTTSModelID,
			Stability:       defaultTTSStability,
			SimilarityBoost: defaultTTSSimilarity,
			MaxChunkChars:   defaultTTSMaxChunkChars,
			TimeoutSeconds:  defaultTTSTimeout,
		},
		Images: Images{
			BaseURL:        defaultImagesBaseURL,
			Size:           defaultImageSize,
			StylePrompt:    defaultImageStylePrompt,
			TimeoutSeconds: defaultImagesTimeout,
		},
		Music: Music{
			PollAttempts:        defaultMusicPollAttempts,
			PollIntervalSeconds: defaultMusicPollInterval,
			TimeoutSeconds:      defaultMusicTimeout,
		},
		Transcribe: Transcribe{
			Model:          defaultTranscribeModel,
			ChunkMinutes:   defaultChunkMinutes,
			TimeoutSeconds: defaultTranscribeTimeout,
		},
		Media: Media{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Notifications: Notifications{
			TimeoutSeconds: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
