package media

import (
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strings"
)

// MaxRequestBody bounds how much of a request body DecodeRequest reads.
const MaxRequestBody = 1 << 20

type requestBody struct {
	URL      string `json:"url"`
	VideoURL string `json:"video_url"`
	Style    string `json:"style"`
}

// DecodeRequest parses a JSON body into a VideoRequest. "video_url" is accepted
// as an alias for "url".
func DecodeRequest(r io.Reader) (VideoRequest, error) {
	if r == nil {
		return VideoRequest{}, InvalidRequest("missing request body")
	}
	var body requestBody
	dec := json.NewDecoder(io.LimitReader(r, MaxRequestBody))
	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return VideoRequest{}, InvalidRequest("missing request body")
		}
		return VideoRequest{}, InvalidRequest("malformed JSON body")
	}
	u := strings.TrimSpace(body.URL)
	if u == "" {
		u = strings.TrimSpace(body.VideoURL)
	}
	if u == "" {
		return VideoRequest{}, InvalidRequest("missing required parameter: url")
	}
	return VideoRequest{URL: u, Style: strings.TrimSpace(body.Style)}, nil
}

// Validator checks URL shape and, when AllowedDomains is non-empty, the host allow-list.
type Validator struct {
	AllowedDomains []string
}

// NewValidator normalises the allow-list entries.
func NewValidator(domains []string) *Validator {
	v := &Validator{}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimPrefix(d, ".")
		if d != "" {
			v.AllowedDomains = append(v.AllowedDomains, d)
		}
	}
	return v
}

// Validate returns req unchanged when it is acceptable.
func (v *Validator) Validate(req VideoRequest) (VideoRequest, error) {
	if req.URL == "" {
		return req, InvalidRequest("missing required parameter: url")
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return req, InvalidRequest("url is not a valid URI")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return req, InvalidRequest("url must use http or https")
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return req, InvalidRequest("url has no host")
	}
	if !v.allowed(host) {
		return req, UnsupportedPlatform(host)
	}
	return req, nil
}

func (v *Validator) allowed(host string) bool {
	if v == nil || len(v.AllowedDomains) == 0 {
		return true
	}
	for _, d := range v.AllowedDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
