package ffmpeg

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"vidaudio/internal/execx/execxtest"
	"vidaudio/internal/media"
)

func TestArgs(t *testing.T) {
	got := Args("/tmp/s/video.mp4", "/tmp/s/audio.mp3", media.AudioFormat{Codec: "mp3", Bitrate: "128k", SampleRate: 44100})
	want := []string{
		"-y", "-nostdin", "-loglevel", "error",
		"-i", "/tmp/s/video.mp4",
		"-vn", "-acodec", "libmp3lame", "-ab", "128k", "-ar", "44100",
		"/tmp/s/audio.mp3",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Args() = %v, want %v", got, want)
	}

	noRate := Args("in", "out", media.AudioFormat{Bitrate: "192k"})
	for _, a := range noRate {
		if a == "-ar" {
			t.Error("Args() should omit -ar when no sample rate is set")
		}
	}
}

func TestTranscodeUsesConfiguredBinary(t *testing.T) {
	runner := execxtest.New().Handle("/opt/ffmpeg", execxtest.Output(""))
	tr := New(WithPath("/opt/ffmpeg"), WithRunner(runner))

	if err := tr.Transcode(context.Background(), "in.mp4", "out.mp3", media.DefaultAudioFormat); err != nil {
		t.Fatalf("Transcode() unexpected error: %v", err)
	}
	calls := runner.CallsTo("/opt/ffmpeg")
	if len(calls) != 1 {
		t.Fatalf("expected 1 ffmpeg call, got %d", len(calls))
	}
	if calls[0].ArgAfter("-ab") != "192k" {
		t.Errorf("bitrate arg = %q, want 192k", calls[0].ArgAfter("-ab"))
	}
}

func TestTranscodeFailure(t *testing.T) {
	runner := execxtest.New().Handle("ffmpeg", execxtest.Fail("Output file #0 does not contain any stream"))
	tr := New(WithRunner(runner))

	err := tr.Transcode(context.Background(), "in.mp4", "out.mp3", media.DefaultAudioFormat)
	if err == nil {
		t.Fatal("Transcode() expected error")
	}
	var cmdErr interface{ ExitCode() int }
	if !errors.As(err, &cmdErr) {
		t.Errorf("Transcode() error should wrap the command error, got %v", err)
	}
}

func TestVersion(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   string
	}{
		{name: "distro build", stdout: "ffmpeg version 6.1.1-3ubuntu5 Copyright (c) 2000-2023\nbuilt with gcc", want: "6.1.1"},
		{name: "plain release", stdout: "ffmpeg version 7.0 Copyright", want: "7.0"},
		{name: "unexpected banner", stdout: "something else", want: "something else"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(WithRunner(execxtest.New().Handle("ffmpeg", execxtest.Output(tt.stdout))))
			got, err := tr.Version(context.Background())
			if err != nil {
				t.Fatalf("Version() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Version() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVersionMissingBinary(t *testing.T) {
	tr := New(WithRunner(execxtest.New()))
	if _, err := tr.Version(context.Background()); err == nil {
		t.Fatal("Version() expected error when ffmpeg is missing")
	}
}
