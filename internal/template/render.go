// Package template renders the files that diskup init writes.
package template

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed all:templates
var templateFS embed.FS

const (
	ConfigTemplate = "templates/config.yaml.tmpl"
	AppSettings    = "templates/appsettings.json"
)

// TemplateData holds the answers collected by init.
type TemplateData struct {
	Backend   string
	Jobs      int
	RateLimit int

	DiskAPIURL string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string // optional, for S3-compatible services
	S3PathStyle bool

	SFTPHost    string
	SFTPPort    int
	SFTPUser    string
	SFTPKeyFile string
	SFTPRoot    string
}

// RenderTemplate renders the named embedded template with data.
func RenderTemplate(name string, data *TemplateData) ([]byte, error) {
	content, err := templateFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", name, err)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// RenderConfig renders config.yaml for the chosen backend.
func RenderConfig(data *TemplateData) ([]byte, error) {
	return RenderTemplate(ConfigTemplate, data)
}

// GetStaticFile returns an embedded file unchanged.
func GetStaticFile(name string) ([]byte, error) {
	content, err := templateFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read static file %s: %w", name, err)
	}
	return content, nil
}
