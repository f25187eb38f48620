// Package media rewrites externally hosted media links into forms that can be
// rendered inline: direct image URLs and embeddable player URLs.
package media

import (
	"encoding/json"
	"regexp"
	"strings"
)

const (
	directImageHost   = "lh3.googleusercontent.com/d/"
	directImagePrefix = "https://" + directImageHost
)

var (
	driveFilePattern = regexp.MustCompile(`drive\.google\.com/file/d/([a-zA-Z0-9_-]+)`)
	idParamPattern   = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)
	pathIDPattern    = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`)
	youtubePattern   = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([^&\n?#]+)`)
)

// NormalizeImageURL turns Google Drive share links into direct image links.
// Already direct links and unrecognised URLs are returned trimmed but
// otherwise unchanged.
func NormalizeImageURL(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	if strings.Contains(value, directImageHost) {
		return value
	}
	for _, p := range []*regexp.Regexp{driveFilePattern, idParamPattern, pathIDPattern} {
		if m := p.FindStringSubmatch(value); m != nil {
			return directImagePrefix + m[1]
		}
	}
	return value
}

// EmbedURL turns YouTube watch/short links and Drive file links into their
// embeddable player URLs.
func EmbedURL(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	if m := youtubePattern.FindStringSubmatch(value); m != nil {
		return "https://www.youtube.com/embed/" + m[1]
	}
	if m := driveFilePattern.FindStringSubmatch(value); m != nil {
		return "https://drive.google.com/file/d/" + m[1] + "/preview"
	}
	return value
}

// NormalizeImageContent normalises the URL held by an image block. The
// content is either a JSON object with a url key or a bare URL; the shape is
// preserved. Extra JSON keys survive the rewrite.
func NormalizeImageContent(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return content
	}
	if !strings.HasPrefix(trimmed, "{") {
		return NormalizeImageURL(trimmed)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return NormalizeImageURL(trimmed)
	}
	url, ok := fields["url"].(string)
	if !ok || url == "" {
		return content
	}
	fields["url"] = NormalizeImageURL(url)
	out, err := json.Marshal(fields)
	if err != nil {
		return content
	}
	return string(out)
}
