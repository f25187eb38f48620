package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeImageURL(t *testing.T) {
	cases := map[string]string{
		"":    "",
		"   ": "",
		"https://drive.google.com/file/d/1AbC-_x9/view?usp=sharing": "https://lh3.googleusercontent.com/d/1AbC-_x9",
		"https://drive.google.com/open?id=1AbC-_x9":                 "https://lh3.googleusercontent.com/d/1AbC-_x9",
		"https://drive.google.com/uc?export=view&id=1AbC-_x9":       "https://lh3.googleusercontent.com/d/1AbC-_x9",
		"https://docs.google.com/d/1AbC-_x9/edit":                   "https://lh3.googleusercontent.com/d/1AbC-_x9",
		"https://lh3.googleusercontent.com/d/1AbC-_x9":              "https://lh3.googleusercontent.com/d/1AbC-_x9",
		" https://example.com/photo.jpg ":                           "https://example.com/photo.jpg",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeImageURL(in), in)
	}
}

func TestShareAndIDLinksConverge(t *testing.T) {
	share := NormalizeImageURL("https://drive.google.com/file/d/XYZ123/view")
	byID := NormalizeImageURL("https://drive.google.com/open?id=XYZ123")
	assert.Equal(t, share, byID)
}

func TestEmbedURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/embed/dQw4w9WgXcQ", EmbedURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42"))
	assert.Equal(t, "https://www.youtube.com/embed/dQw4w9WgXcQ", EmbedURL("https://youtu.be/dQw4w9WgXcQ?si=abc"))
	assert.Equal(t, "https://drive.google.com/file/d/FILE_1/preview", EmbedURL("https://drive.google.com/file/d/FILE_1/view"))
	assert.Equal(t, "https://vimeo.com/1", EmbedURL("https://vimeo.com/1"))
	assert.Equal(t, "https://www.youtube.com/embed/abc", EmbedURL("https://www.youtube.com/embed/abc"))
}

func TestNormalizeImageContent(t *testing.T) {
	assert.Equal(t, "https://lh3.googleusercontent.com/d/A1", NormalizeImageContent("https://drive.google.com/file/d/A1/view"))
	assert.JSONEq(t,
		`{"url":"https://lh3.googleusercontent.com/d/A1","caption":"Old bridge"}`,
		NormalizeImageContent(`{"url":"https://drive.google.com/open?id=A1","caption":"Old bridge"}`))
	assert.Equal(t, `{"caption":"no url"}`, NormalizeImageContent(`{"caption":"no url"}`))
	assert.Equal(t, "", NormalizeImageContent(""))
}
