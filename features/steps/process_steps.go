//go:build integration

package steps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"vidaudio/internal/api"
	"vidaudio/internal/execx/execxtest"
	"vidaudio/internal/ffmpeg"
	"vidaudio/internal/logging"
	"vidaudio/internal/media"
	"vidaudio/internal/pipeline"
	"vidaudio/internal/sessions"
	"vidaudio/internal/workspace"
	"vidaudio/internal/ytdlp"
)

const (
	fakeYtdlp  = "yt-dlp"
	fakeFFmpeg = "ffmpeg"
)

// processContext drives the real router, pipeline and yt-dlp adapter against a
// scripted command runner and a per-scenario temp root.
type processContext struct {
	root        string
	maxDuration int64
	staleMaxAge time.Duration
	durations   map[string]float64
	audioSize   int
	failStderr  string

	runner   *execxtest.Runner
	recorder *httptest.ResponseRecorder
	body     map[string]any
}

// SharedProcessContext is reset before each scenario via Before hook
var SharedProcessContext *processContext

func getProcessContext() *processContext {
	return SharedProcessContext
}

func InitializeProcessScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		root, err := os.MkdirTemp("", "vidaudio-features-")
		if err != nil {
			return c, err
		}
		SharedProcessContext = &processContext{
			root:        root,
			maxDuration: 600,
			staleMaxAge: time.Hour,
			durations:   make(map[string]float64),
			audioSize:   1024,
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if pc := getProcessContext(); pc != nil {
			_ = os.RemoveAll(pc.root)
		}
		SharedProcessContext = nil
		return c, nil
	})

	ctx.Step(`^the maximum video duration is (\d+) seconds$`, theMaximumVideoDurationIs)
	ctx.Step(`^the video "([^"]*)" lasts (\d+) seconds$`, theVideoLasts)
	ctx.Step(`^the downloader produces (\d+) bytes of audio$`, theDownloaderProduces)
	ctx.Step(`^the downloader fails with "([^"]*)"$`, theDownloaderFailsWith)
	ctx.Step(`^I request JSON processing of "([^"]*)"$`, iRequestJSONProcessingOf)
	ctx.Step(`^I request binary processing of "([^"]*)"$`, iRequestBinaryProcessingOf)
	ctx.Step(`^I post '([^']*)' to "([^"]*)"$`, iPostTo)
	ctx.Step(`^I post "([^"]*)" to "([^"]*)"$`, iPostTo)
	ctx.Step(`^I get "([^"]*)"$`, iGet)
	ctx.Step(`^the response status should be (\d+)$`, theResponseStatusShouldBe)
	ctx.Step(`^the response audio size should be (\d+)$`, theResponseAudioSizeShouldBe)
	ctx.Step(`^the response video duration should be (\d+)$`, theResponseVideoDurationShouldBe)
	ctx.Step(`^the error kind should be "([^"]*)"$`, theErrorKindShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, theResponseFieldShouldBe)
	ctx.Step(`^the response body should be (\d+) bytes long$`, theResponseBodyShouldBeBytesLong)
	ctx.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, theResponseHeaderShouldBe)
	ctx.Step(`^the response should not mention the temp directory$`, theResponseShouldNotMentionTheTempDirectory)
	ctx.Step(`^the downloader should not have been invoked$`, theDownloaderShouldNotHaveBeenInvoked)
	ctx.Step(`^the temp directory should be empty$`, theTempDirectoryShouldBeEmpty)
}

func theMaximumVideoDurationIs(seconds int) error {
	getProcessContext().maxDuration = int64(seconds)
	return nil
}

func theVideoLasts(url string, seconds int) error {
	getProcessContext().durations[url] = float64(seconds)
	return nil
}

func theDownloaderProduces(size int) error {
	pc := getProcessContext()
	pc.audioSize = size
	pc.failStderr = ""
	return nil
}

func theDownloaderFailsWith(stderr string) error {
	getProcessContext().failStderr = stderr
	return nil
}

// ytdlpHandler answers -J with probe JSON and writes the -o target otherwise.
func (pc *processContext) ytdlpHandler(ctx context.Context, name string, args []string) ([]byte, error) {
	if slices.Contains(args, "--version") {
		return []byte("2025.01.15\n"), nil
	}
	url := args[len(args)-1]
	if slices.Contains(args, "-J") {
		duration, ok := pc.durations[url]
		if !ok {
			return execxtest.Fail("ERROR: Unsupported URL: " + url)(ctx, name, args)
		}
		return json.Marshal(map[string]any{
			"title":    "Feature Video",
			"duration": duration,
			"uploader": "Feature Channel",
		})
	}
	if pc.failStderr != "" {
		return execxtest.Fail(pc.failStderr)(ctx, name, args)
	}
	i := slices.Index(args, "-o")
	if i < 0 || i+1 >= len(args) {
		return nil, errors.New("no output template")
	}
	out := strings.ReplaceAll(args[i+1], "%(ext)s", "mp3")
	if err := os.WriteFile(out, make([]byte, pc.audioSize), 0o600); err != nil {
		return nil, err
	}
	return []byte("[ExtractAudio] Destination: " + out + "\n"), nil
}

func (pc *processContext) handler() (http.Handler, error) {
	pc.runner = execxtest.New().
		Handle(fakeYtdlp, pc.ytdlpHandler).
		Handle(fakeFFmpeg, execxtest.Output("ffmpeg version 6.1.1-3ubuntu5 Copyright (c) 2000-2023 the FFmpeg developers\n"))

	logger := logging.Discard()
	transcoder := ffmpeg.New(ffmpeg.WithPath(fakeFFmpeg), ffmpeg.WithRunner(pc.runner))
	client := ytdlp.New(ytdlp.WithBinary(fakeYtdlp), ytdlp.WithRunner(pc.runner), ytdlp.WithTranscoder(transcoder))

	ws, err := workspace.NewManager(pc.root, workspace.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	svc := pipeline.New(
		media.NewValidator([]string{"example.com"}),
		client, client, ws,
		pipeline.Limits{
			MaxDurationSeconds: pc.maxDuration,
			MaxFileSizeBytes:   50 << 20,
			Format:             media.DefaultAudioFormat,
		},
		pipeline.WithLedger(sessions.NewMemoryStore(time.Hour)),
		pipeline.WithLogger(logger),
	)
	h := api.NewHandler(svc, pipeline.NewDependencies(client, transcoder), api.Options{
		Version:     "features",
		StaleMaxAge: pc.staleMaxAge,
	}, logger)
	return api.NewRouter(h), nil
}

func (pc *processContext) do(method, target, body string) error {
	h, err := pc.handler()
	if err != nil {
		return err
	}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	pc.recorder = httptest.NewRecorder()
	h.ServeHTTP(pc.recorder, req)

	pc.body = nil
	if strings.HasPrefix(pc.recorder.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(pc.recorder.Body.Bytes(), &pc.body); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func iRequestJSONProcessingOf(url string) error {
	return getProcessContext().do(http.MethodPost, "/process?format=json", fmt.Sprintf(`{"url":%q}`, url))
}

func iRequestBinaryProcessingOf(url string) error {
	return getProcessContext().do(http.MethodPost, "/process", fmt.Sprintf(`{"url":%q}`, url))
}

func iPostTo(body, path string) error {
	return getProcessContext().do(http.MethodPost, path, body)
}

func iGet(path string) error {
	return getProcessContext().do(http.MethodGet, path, "")
}

func theResponseStatusShouldBe(status int) error {
	pc := getProcessContext()
	if pc.recorder.Code != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, pc.recorder.Code, pc.recorder.Body.String())
	}
	return nil
}

// field walks a dotted path through the decoded JSON body.
func (pc *processContext) field(path string) (any, error) {
	var cur any = pc.body
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("response has no field %q", path)
		}
		if cur, ok = m[key]; !ok {
			return nil, fmt.Errorf("response has no field %q", path)
		}
	}
	return cur, nil
}

func (pc *processContext) numberField(path string, want int) error {
	v, err := pc.field(path)
	if err != nil {
		return err
	}
	n, ok := v.(float64)
	if !ok || int(n) != want {
		return fmt.Errorf("expected %s to be %d, got %v", path, want, v)
	}
	return nil
}

func theResponseAudioSizeShouldBe(size int) error {
	pc := getProcessContext()
	if err := pc.numberField("audio.size", size); err != nil {
		return err
	}
	data, err := pc.field("audio.data")
	if err != nil {
		return err
	}
	if s, _ := data.(string); len(s) != 2*size {
		return fmt.Errorf("expected %d hex characters, got %d", 2*size, len(s))
	}
	return nil
}

func theResponseVideoDurationShouldBe(seconds int) error {
	return getProcessContext().numberField("video_info.duration", seconds)
}

func theErrorKindShouldBe(kind string) error {
	return theResponseFieldShouldBe("kind", kind)
}

func theResponseFieldShouldBe(path, want string) error {
	v, err := getProcessContext().field(path)
	if err != nil {
		return err
	}
	if fmt.Sprint(v) != want {
		return fmt.Errorf("expected %s to be %q, got %v", path, want, v)
	}
	return nil
}

func theResponseBodyShouldBeBytesLong(n int) error {
	if got := getProcessContext().recorder.Body.Len(); got != n {
		return fmt.Errorf("expected %d body bytes, got %d", n, got)
	}
	return nil
}

func theResponseHeaderShouldBe(name, want string) error {
	if got := getProcessContext().recorder.Header().Get(name); got != want {
		return fmt.Errorf("expected header %s to be %q, got %q", name, want, got)
	}
	return nil
}

func theResponseShouldNotMentionTheTempDirectory() error {
	pc := getProcessContext()
	if strings.Contains(pc.recorder.Body.String(), pc.root) {
		return fmt.Errorf("response leaks the temp directory: %s", pc.recorder.Body.String())
	}
	return nil
}

func theDownloaderShouldNotHaveBeenInvoked() error {
	pc := getProcessContext()
	if pc.runner == nil {
		return nil
	}
	for _, call := range pc.runner.CallsTo(fakeYtdlp) {
		if !slices.Contains(call.Args, "-J") && !slices.Contains(call.Args, "--version") {
			return fmt.Errorf("downloader was invoked: %v", call.Args)
		}
	}
	return nil
}

func theTempDirectoryShouldBeEmpty() error {
	entries, err := os.ReadDir(getProcessContext().root)
	if err != nil {
		return err
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		return fmt.Errorf("temp directory not empty: %v", names)
	}
	return nil
}
