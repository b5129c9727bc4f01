package trigger

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/getwud/wud-triggers/pkg/templates"
	"github.com/getwud/wud-triggers/pkg/types"
)

// Default notification templates. They receive SimpleData or BatchData.
const (
	DefaultSimpleTitle = `New {{ .Container.UpdateKind.Kind }} found for container {{ .Container.Name }}`
	DefaultSimpleBody  = `Container {{ .Container.Name }} running with {{ .Container.UpdateKind.Kind }} ` +
		`{{ .Container.UpdateKind.LocalValue }} can be updated to {{ .Container.UpdateKind.Kind }} ` +
		`{{ .Container.UpdateKind.RemoteValue }}{{ with .Container.Result }}{{ with .Link }}` + "\n" + `{{ . }}{{ end }}{{ end }}`
	DefaultBatchTitle = `{{ len .Containers }} updates available`
)

// SimpleData is the template data for single-container notifications.
type SimpleData struct {
	Container types.Container
}

// BatchData is the template data for batch notifications.
type BatchData struct {
	Containers []types.Container
}

// Renderer produces notification titles and bodies from the configured templates.
type Renderer struct {
	simpleTitle *template.Template
	simpleBody  *template.Template
	batchTitle  *template.Template
}

// NewRenderer parses the templates of the common settings.
func NewRenderer(common Common) (*Renderer, error) {
	simpleTitle, err := parse("simpletitle", common.SimpleTitle)
	if err != nil {
		return nil, err
	}

	simpleBody, err := parse("simplebody", common.SimpleBody)
	if err != nil {
		return nil, err
	}

	batchTitle, err := parse("batchtitle", common.BatchTitle)
	if err != nil {
		return nil, err
	}

	return &Renderer{simpleTitle: simpleTitle, simpleBody: simpleBody, batchTitle: batchTitle}, nil
}

func parse(name, text string) (*template.Template, error) {
	tpl, err := template.New(name).Funcs(templates.Funcs).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %s: %w", ErrConfiguration, errTemplate, name, err)
	}

	return tpl, nil
}

func execute(tpl *template.Template, data any) (string, error) {
	var out bytes.Buffer
	if err := tpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("%w: %s: %w", errTemplate, tpl.Name(), err)
	}

	return out.String(), nil
}

// SimpleTitle renders the title for one container.
func (r *Renderer) SimpleTitle(container types.Container) (string, error) {
	return execute(r.simpleTitle, SimpleData{Container: container})
}

// SimpleBody renders the body for one container.
func (r *Renderer) SimpleBody(container types.Container) (string, error) {
	return execute(r.simpleBody, SimpleData{Container: container})
}

// BatchTitle renders the title for several containers.
func (r *Renderer) BatchTitle(containers []types.Container) (string, error) {
	return execute(r.batchTitle, BatchData{Containers: containers})
}

// BatchBody renders one "- " prefixed simple body line per container.
func (r *Renderer) BatchBody(containers []types.Container) (string, error) {
	lines := make([]string, 0, len(containers))

	for _, container := range containers {
		body, err := r.SimpleBody(container)
		if err != nil {
			return "", err
		}

		lines = append(lines, "- "+body)
	}

	return strings.Join(lines, "\n"), nil
}
