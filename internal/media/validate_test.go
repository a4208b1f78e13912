package media

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantURL   string
		wantStyle string
		wantErr   bool
	}{
		{name: "url field", body: `{"url":"https://www.youtube.com/watch?v=abc"}`, wantURL: "https://www.youtube.com/watch?v=abc"},
		{name: "video_url alias", body: `{"video_url":"https://www.tiktok.com/@u/video/1"}`, wantURL: "https://www.tiktok.com/@u/video/1"},
		{name: "url wins over alias", body: `{"url":"https://a.com/x","video_url":"https://b.com/y"}`, wantURL: "https://a.com/x"},
		{name: "style passed through", body: `{"url":"https://a.com/x","style":" humorous "}`, wantURL: "https://a.com/x", wantStyle: "humorous"},
		{name: "missing url", body: `{}`, wantErr: true},
		{name: "blank url", body: `{"url":"   "}`, wantErr: true},
		{name: "malformed json", body: `{"url":`, wantErr: true},
		{name: "empty body", body: ``, wantErr: true},
		{name: "wrong type", body: `{"url":42}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRequest(strings.NewReader(tt.body))
			if tt.wantErr {
				if KindOf(err) != KindInvalidRequest {
					t.Fatalf("DecodeRequest() error kind = %q, want %q (err=%v)", KindOf(err), KindInvalidRequest, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeRequest() unexpected error: %v", err)
			}
			if got.URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", got.URL, tt.wantURL)
			}
			if got.Style != tt.wantStyle {
				t.Errorf("Style = %q, want %q", got.Style, tt.wantStyle)
			}
		})
	}
}

func TestDecodeRequestNilReader(t *testing.T) {
	if _, err := DecodeRequest(nil); KindOf(err) != KindInvalidRequest {
		t.Fatalf("DecodeRequest(nil) kind = %q, want %q", KindOf(err), KindInvalidRequest)
	}
}

func TestValidatorValidate(t *testing.T) {
	allow := NewValidator([]string{"douyin.com", " TikTok.com ", ".youtube.com", "bilibili.com", ""})

	tests := []struct {
		name     string
		v        *Validator
		url      string
		wantKind Kind
	}{
		{name: "exact domain", v: allow, url: "https://douyin.com/video/1"},
		{name: "subdomain", v: allow, url: "https://www.youtube.com/watch?v=abc"},
		{name: "case insensitive host", v: allow, url: "https://WWW.TIKTOK.COM/@x/video/1"},
		{name: "host with port", v: allow, url: "https://m.bilibili.com:443/video/BV1"},
		{name: "lookalike suffix rejected", v: allow, url: "https://notyoutube.com/watch", wantKind: KindUnsupportedPlatform},
		{name: "unlisted host", v: allow, url: "https://vimeo.com/1", wantKind: KindUnsupportedPlatform},
		{name: "empty allow-list accepts anything", v: NewValidator(nil), url: "https://example.com/supported/video"},
		{name: "nil validator accepts anything", v: nil, url: "https://example.com/supported/video"},
		{name: "missing scheme", v: allow, url: "youtube.com/watch?v=abc", wantKind: KindInvalidRequest},
		{name: "ftp scheme", v: allow, url: "ftp://youtube.com/file", wantKind: KindInvalidRequest},
		{name: "no host", v: allow, url: "https:///path", wantKind: KindInvalidRequest},
		{name: "unparseable", v: allow, url: "https://exa mple.com/%zz", wantKind: KindInvalidRequest},
		{name: "empty url", v: allow, url: "", wantKind: KindInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.v.Validate(VideoRequest{URL: tt.url})
			if got := KindOf(err); got != tt.wantKind {
				t.Errorf("Validate(%q) kind = %q, want %q (err=%v)", tt.url, got, tt.wantKind, err)
			}
		})
	}
}

func TestNewValidatorNormalises(t *testing.T) {
	v := NewValidator([]string{" .Example.COM ", "", "   "})
	if len(v.AllowedDomains) != 1 || v.AllowedDomains[0] != "example.com" {
		t.Fatalf("AllowedDomains = %v, want [example.com]", v.AllowedDomains)
	}
}

func TestErrorHelpers(t *testing.T) {
	cause := errors.New("exit status 1")
	err := RetrievalFailed("audio extraction failed", cause)
	if !errors.Is(err, cause) {
		t.Error("RetrievalFailed should unwrap to its cause")
	}
	if KindOf(err) != KindRetrievalFailed {
		t.Errorf("KindOf = %q", KindOf(err))
	}
	if KindOf(errors.New("boom")) != KindInternalFault {
		t.Error("foreign errors should map to InternalFault")
	}
	if KindOf(nil) != "" {
		t.Error("KindOf(nil) should be empty")
	}

	d := DurationExceeded(900, 600)
	if !d.HasLimit() || d.Measured != 900 || d.Limit != 600 {
		t.Errorf("DurationExceeded = %+v", d)
	}
	if RetrievalFailed("x", nil).HasLimit() {
		t.Error("RetrievalFailed should not carry limits")
	}
}
