package media

import "context"

// Prober retrieves metadata for a video URL without downloading media.
type Prober interface {
	Probe(ctx context.Context, videoURL string) (VideoInfo, error)
}

// Workdir is the slice of a processing session a Fetcher may write into.
type Workdir interface {
	// Path allocates a file path inside the session and records it for cleanup.
	Path(name string) string
	// Dir is the session directory; anything under it is reclaimed with the session.
	Dir() string
	ID() string
}

// Fetcher retrieves a video and produces an audio file inside dir.
// It returns the path of the produced audio.
type Fetcher interface {
	FetchAudio(ctx context.Context, dir Workdir, videoURL string, c Constraints) (string, error)
}
