package converter

import (
	"bytes"
	"fmt"
	"go/format"
	"text/template"
)

// TemplateData is the preprocessed content of one generated test file.
type TemplateData struct {
	TestPath    string
	Fingerprint string
	BuildTag    string
	PackageName string
	Imports     []string // import specs, grouped; "" separates groups
	OmitReasons []string
	FuncName    string
	Advice      string
	UsesClient  bool
	Body        []string
}

const headerTemplate = `{{define "header"}}// Code generated by grnconv from {{.TestPath}}. DO NOT EDIT.
` + fingerprintPrefix + `{{.Fingerprint}}
{{if .BuildTag}}
//go:build {{.BuildTag}}
{{end}}{{end}}`

const packageTemplate = `{{define "package"}}package {{.PackageName}}{{end}}`

const importsTemplate = `{{define "imports"}}
import (
{{- range .Imports}}
	{{.}}
{{- end}}
)
{{end}}`

const testTemplate = `{{define "test"}}
{{range .OmitReasons}}// OMIT: {{.}}
{{end -}}
func {{.FuncName}}(t *testing.T) {
	dbDirectory := t.TempDir()
	dbPath := filepath.Join(dbDirectory, "db")
	advice := {{.Advice}}
	if reason, omit := grntestkit.ShouldOmit(advice); omit {
		t.Skip(reason)
	}

	ctx, cancel := advice.Context(context.Background())
	defer cancel()

	g := groongar.Open(ctx, t, groongar.Options{DBPath: dbPath, Env: advice.Env})
{{- if not .UsesClient}}
	_ = g
{{- end}}

{{range .Body}}{{.}}
{{end -}}
}
{{end}}`

const masterTemplate = `{{define "main"}}{{template "header" .}}
{{template "package" .}}
{{template "imports" .}}
{{template "test" .}}{{end}}`

// TemplateRegistry holds the components of a generated test file.
type TemplateRegistry struct {
	templates map[string]string
}

// NewTemplateRegistry creates a registry with all components.
func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{templates: map[string]string{
		"header":  headerTemplate,
		"package": packageTemplate,
		"imports": importsTemplate,
		"test":    testTemplate,
		"main":    masterTemplate,
	}}
}

// GetTemplate returns a component.
func (tr *TemplateRegistry) GetTemplate(name string) (string, bool) {
	tmpl, ok := tr.templates[name]
	return tmpl, ok
}

func (tr *TemplateRegistry) parse() (*template.Template, error) {
	root := template.New("grntest")
	for _, name := range []string{"header", "package", "imports", "test", "main"} {
		if _, err := root.Parse(tr.templates[name]); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
	}
	return root, nil
}

// Render executes the templates and formats the result with gofmt.
func Render(data *TemplateData) ([]byte, error) {
	tmpl, err := NewTemplateRegistry().parse()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "main", data); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", data.TestPath, err)
	}
	return src, nil
}
