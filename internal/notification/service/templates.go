package service

import (
	"fmt"
	"strings"
	"text/template"

	"opencrvs/internal/notification/models"
)

var defaultTemplates = map[models.Kind]string{
	models.KindBirthDeclaration:  "Birth declaration for {{.Name}} has been received. Your tracking ID is {{.TrackingID}}.",
	models.KindBirthRegistration: "Birth of {{.Name}} has been registered. Please collect the certificate from your registration office.",
	models.KindDeathDeclaration:  "Death declaration for {{.Name}} has been received. Your tracking ID is {{.TrackingID}}.",
	models.KindDeathRegistration: "Death of {{.Name}} has been registered. Please collect the certificate from your registration office.",
}

// Templates renders the message body for each templated kind.
type Templates struct {
	byKind map[models.Kind]*template.Template
}

// ParseTemplates compiles the default messages, replacing any kind present
// in overrides.
func ParseTemplates(overrides map[models.Kind]string) (*Templates, error) {
	sources := make(map[models.Kind]string, len(defaultTemplates))
	for k, v := range defaultTemplates {
		sources[k] = v
	}
	for k, v := range overrides {
		if _, ok := defaultTemplates[k]; !ok {
			return nil, fmt.Errorf("no template slot for %q", k)
		}
		sources[k] = v
	}

	t := &Templates{byKind: make(map[models.Kind]*template.Template, len(sources))}
	for k, src := range sources {
		tmpl, err := template.New(string(k)).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", k, err)
		}
		t.byKind[k] = tmpl
	}
	return t, nil
}

// Render executes the template for kind.
func (t *Templates) Render(kind models.Kind, data models.TemplateData) (string, error) {
	tmpl, ok := t.byKind[kind]
	if !ok {
		return "", fmt.Errorf("no template for %q", kind)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s: %w", kind, err)
	}
	return b.String(), nil
}
