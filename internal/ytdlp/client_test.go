package ytdlp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidaudio/internal/execx/execxtest"
	"vidaudio/internal/media"
)

type testDir struct {
	dir     string
	tracked []string
}

func newTestDir(t *testing.T) *testDir {
	return &testDir{dir: t.TempDir()}
}

func (d *testDir) Path(name string) string {
	p := filepath.Join(d.dir, name)
	d.tracked = append(d.tracked, p)
	return p
}
func (d *testDir) Dir() string { return d.dir }
func (d *testDir) ID() string  { return "test-session" }

// writeOutput simulates yt-dlp writing the file named by its -o template.
func writeOutput(ext string, size int) execxtest.Handler {
	return func(ctx context.Context, name string, args []string) ([]byte, error) {
		tmpl := ""
		for i, a := range args {
			if a == "-o" && i+1 < len(args) {
				tmpl = args[i+1]
			}
		}
		path := strings.Replace(tmpl, "%(ext)s", ext, 1)
		if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
			return nil, err
		}
		return []byte("[ExtractAudio] Destination: " + path), nil
	}
}

const probeJSON = `{
	"title": "Never Gonna Give You Up",
	"duration": 212.0,
	"uploader": "Rick Astley",
	"view_count": 1500000000,
	"like_count": 17000000,
	"description": "The official video",
	"formats": [{"format_id": "140", "ext": "m4a"}]
}`

func TestProbe(t *testing.T) {
	runner := execxtest.New().Handle("yt-dlp", execxtest.Output(probeJSON))
	c := New(WithRunner(runner), WithCookiesFile("cookies.txt"))

	info, err := c.Probe(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Probe() unexpected error: %v", err)
	}
	want := media.VideoInfo{
		Title:              "Never Gonna Give You Up",
		DurationSeconds:    212,
		Uploader:           "Rick Astley",
		ViewCount:          1500000000,
		LikeCount:          17000000,
		DescriptionExcerpt: "The official video",
	}
	if info != want {
		t.Errorf("Probe() = %+v, want %+v", info, want)
	}

	calls := runner.CallsTo("yt-dlp")
	if len(calls) != 1 {
		t.Fatalf("expected one yt-dlp call, got %d", len(calls))
	}
	args := calls[0].Joined()
	for _, want := range []string{"-J", "--skip-download", "--no-playlist", "--cookies cookies.txt"} {
		if !strings.Contains(args, want) {
			t.Errorf("probe args %q missing %q", args, want)
		}
	}
	if last := calls[0].Args[len(calls[0].Args)-1]; last != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("URL should be the last argument, got %q", last)
	}
}

func TestProbeFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler execxtest.Handler
		wantMsg string
	}{
		{name: "unsupported url", handler: execxtest.Fail("ERROR: Unsupported URL: https://example.com"), wantMsg: "unsupported video URL"},
		{name: "private video", handler: execxtest.Fail("ERROR: [youtube] abc: Private video. Sign in if you've been granted access"), wantMsg: "video is private"},
		{name: "removed video", handler: execxtest.Fail("ERROR: [youtube] abc: Video unavailable"), wantMsg: "video is unavailable or has been removed"},
		{name: "generic failure", handler: execxtest.Fail("ERROR: network unreachable"), wantMsg: "failed to fetch video metadata"},
		{name: "empty output", handler: execxtest.Output("  \n"), wantMsg: "failed to fetch video metadata"},
		{name: "garbage output", handler: execxtest.Output("not json"), wantMsg: "failed to fetch video metadata"},
		{name: "duration out of range", handler: execxtest.Output(`{"title":"x","duration":1e20}`), wantMsg: "failed to fetch video metadata"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(WithRunner(execxtest.New().Handle("yt-dlp", tt.handler)))
			_, err := c.Probe(context.Background(), "https://example.com/v")
			var mErr *media.Error
			if !errors.As(err, &mErr) {
				t.Fatalf("Probe() error = %v, want *media.Error", err)
			}
			if mErr.Kind != media.KindExtractionFailed {
				t.Errorf("Kind = %q, want %q", mErr.Kind, media.KindExtractionFailed)
			}
			if mErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", mErr.Message, tt.wantMsg)
			}
		})
	}
}

func TestProbeMissingBinary(t *testing.T) {
	c := New(WithRunner(execxtest.New()))
	_, err := c.Probe(context.Background(), "https://example.com/v")
	if media.KindOf(err) != media.KindExtractionFailed {
		t.Fatalf("Probe() kind = %q, want ExtractionFailed", media.KindOf(err))
	}
	if got := media.AsError(err).Message; got != "metadata extractor is not available" {
		t.Errorf("Message = %q", got)
	}
}

func TestFetchAudioCombined(t *testing.T) {
	runner := execxtest.New().Handle("yt-dlp", writeOutput("mp3", 2000))
	c := New(WithRunner(runner), WithFFmpegLocation("/opt/bin"))
	dir := newTestDir(t)

	cons := media.Constraints{MaxFileSizeBytes: 50 << 20, Format: media.AudioFormat{Codec: "mp3", Bitrate: "128k", SampleRate: 44100}}
	path, err := c.FetchAudio(context.Background(), dir, "https://example.com/supported/video", cons)
	if err != nil {
		t.Fatalf("FetchAudio() unexpected error: %v", err)
	}
	if path != filepath.Join(dir.dir, "audio.mp3") {
		t.Errorf("path = %q", path)
	}

	call := runner.CallsTo("yt-dlp")[0]
	checks := map[string]string{
		"-f":                   "bestaudio/best",
		"--audio-format":       "mp3",
		"--audio-quality":      "128K",
		"--postprocessor-args": "ExtractAudio:-ar 44100",
		"--ffmpeg-location":    "/opt/bin",
		"--max-filesize":       "52428800",
	}
	for flag, want := range checks {
		if got := call.ArgAfter(flag); got != want {
			t.Errorf("%s = %q, want %q", flag, got, want)
		}
	}
	if !strings.Contains(call.Joined(), " -x ") {
		t.Errorf("combined mode must pass -x, got %q", call.Joined())
	}
}

func TestFetchAudioCombinedFailures(t *testing.T) {
	tests := []struct {
		name     string
		handler  execxtest.Handler
		wantKind media.Kind
	}{
		{name: "non-zero exit", handler: execxtest.Fail("ERROR: unable to download"), wantKind: media.KindRetrievalFailed},
		{name: "exit zero without output", handler: execxtest.Output("[download] done"), wantKind: media.KindRetrievalFailed},
		{name: "empty output file", handler: writeOutput("mp3", 0), wantKind: media.KindRetrievalFailed},
		{
			name:     "aborted over max-filesize",
			handler:  execxtest.Output("[download] File is larger than max-filesize (209715200 bytes > 104857600 bytes). Aborting."),
			wantKind: media.KindSizeExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(WithRunner(execxtest.New().Handle("yt-dlp", tt.handler)))
			_, err := c.FetchAudio(context.Background(), newTestDir(t), "https://example.com/v", media.Constraints{Format: media.DefaultAudioFormat})
			if got := media.KindOf(err); got != tt.wantKind {
				t.Fatalf("FetchAudio() kind = %q, want %q (err=%v)", got, tt.wantKind, err)
			}
			if tt.wantKind == media.KindSizeExceeded {
				e := media.AsError(err)
				if e.Measured != 209715200 || e.Limit != 104857600 {
					t.Errorf("size error = %+v", e)
				}
			}
		})
	}
}

type fakeTranscoder struct {
	calls  int
	fail   bool
	input  string
	sawVid bool
}

func (f *fakeTranscoder) Transcode(ctx context.Context, in, out string, format media.AudioFormat) error {
	f.calls++
	f.input = in
	_, err := os.Stat(in)
	f.sawVid = err == nil
	if f.fail {
		return errors.New("ffmpeg exited 1")
	}
	return os.WriteFile(out, make([]byte, 1500), 0o644)
}

func TestFetchAudioTwoStep(t *testing.T) {
	runner := execxtest.New().Handle("yt-dlp", writeOutput("mp4", 4096))
	tr := &fakeTranscoder{}
	c := New(WithRunner(runner), WithMode(ModeTwoStep), WithTranscoder(tr))
	dir := newTestDir(t)

	path, err := c.FetchAudio(context.Background(), dir, "https://example.com/v", media.Constraints{Format: media.DefaultAudioFormat})
	if err != nil {
		t.Fatalf("FetchAudio() unexpected error: %v", err)
	}
	if tr.calls != 1 || !tr.sawVid {
		t.Fatalf("transcoder should have run once on the downloaded video, calls=%d sawVideo=%v", tr.calls, tr.sawVid)
	}
	if filepath.Base(tr.input) != "video.mp4" {
		t.Errorf("transcoder input = %q", tr.input)
	}
	if _, err := os.Stat(tr.input); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("intermediate video should be removed after transcoding, stat err = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("audio output missing: %v", err)
	}

	call := runner.CallsTo("yt-dlp")[0]
	if got := call.ArgAfter("-f"); got != "best[ext=mp4]/best" {
		t.Errorf("-f = %q", got)
	}
	if strings.Contains(call.Joined(), " -x ") {
		t.Error("two-step download must not ask yt-dlp to extract audio")
	}
}

func TestFetchAudioTwoStepFailures(t *testing.T) {
	t.Run("download fails", func(t *testing.T) {
		tr := &fakeTranscoder{}
		c := New(WithRunner(execxtest.New().Handle("yt-dlp", execxtest.Fail("ERROR: 404"))), WithMode(ModeTwoStep), WithTranscoder(tr))
		_, err := c.FetchAudio(context.Background(), newTestDir(t), "https://example.com/v", media.Constraints{})
		if media.KindOf(err) != media.KindRetrievalFailed {
			t.Fatalf("kind = %q", media.KindOf(err))
		}
		if tr.calls != 0 {
			t.Error("transcoder must not run when the download failed")
		}
	})

	t.Run("only partial download present", func(t *testing.T) {
		c := New(WithRunner(execxtest.New().Handle("yt-dlp", writeOutput("mp4.part", 10))), WithMode(ModeTwoStep), WithTranscoder(&fakeTranscoder{}))
		_, err := c.FetchAudio(context.Background(), newTestDir(t), "https://example.com/v", media.Constraints{})
		if media.KindOf(err) != media.KindRetrievalFailed {
			t.Fatalf("kind = %q", media.KindOf(err))
		}
	})

	t.Run("transcode fails", func(t *testing.T) {
		c := New(WithRunner(execxtest.New().Handle("yt-dlp", writeOutput("mp4", 10))), WithMode(ModeTwoStep), WithTranscoder(&fakeTranscoder{fail: true}))
		_, err := c.FetchAudio(context.Background(), newTestDir(t), "https://example.com/v", media.Constraints{})
		if media.KindOf(err) != media.KindRetrievalFailed {
			t.Fatalf("kind = %q", media.KindOf(err))
		}
	})

	t.Run("no transcoder", func(t *testing.T) {
		c := New(WithRunner(execxtest.New().Handle("yt-dlp", writeOutput("mp4", 10))), WithMode(ModeTwoStep))
		_, err := c.FetchAudio(context.Background(), newTestDir(t), "https://example.com/v", media.Constraints{})
		if media.KindOf(err) != media.KindRetrievalFailed {
			t.Fatalf("kind = %q", media.KindOf(err))
		}
	})
}

func TestVersion(t *testing.T) {
	c := New(WithBinary("/usr/local/bin/yt-dlp"), WithRunner(execxtest.New().Handle("/usr/local/bin/yt-dlp", execxtest.Output("2025.09.26\n"))))
	v, err := c.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() unexpected error: %v", err)
	}
	if v != "2025.09.26" {
		t.Errorf("Version() = %q", v)
	}
	if c.Mode() != ModeCombined {
		t.Errorf("default mode = %q, want %q", c.Mode(), ModeCombined)
	}
}
