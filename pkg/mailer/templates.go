package mailer

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
	"sync"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names.
const (
	TemplateVerification  = "verification"
	TemplatePasswordReset = "password_reset"
	TemplateContribution  = "contribution"
)

// LinkData feeds the verification and password reset templates.
type LinkData struct {
	Username string
	Link     string
	ValidFor string
}

// ContributionData feeds the contribution template. Message is escaped on
// render, so user input never reaches the inbox as markup.
type ContributionData struct {
	Username string
	Email    string
	Message  string
}

// Templates renders the embedded HTML email bodies.
type Templates struct {
	once sync.Once
	set  *template.Template
	err  error
}

// NewTemplates returns a lazily parsed template set.
func NewTemplates() *Templates {
	return &Templates{}
}

// Render executes the named template with data.
func (t *Templates) Render(name string, data interface{}) (string, error) {
	t.once.Do(func() {
		t.set, t.err = template.ParseFS(templateFS, "templates/*.html")
	})
	if t.err != nil {
		return "", fmt.Errorf("parse email templates: %w", t.err)
	}
	var buf strings.Builder
	if err := t.set.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return "", fmt.Errorf("render email template %s: %w", name, err)
	}
	return buf.String(), nil
}
