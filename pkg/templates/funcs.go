// Package templates holds the helpers callable from trigger title and body templates,
// such as {{ Short .Result.Digest }} or {{ ToJSON .Container }}.
package templates

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// shortDigestLength matches the digest length Home-Assistant shows as latest version.
const shortDigestLength = 15

// Funcs is passed to template.Template.Funcs by every trigger renderer.
var Funcs = template.FuncMap{
	"ToUpper": strings.ToUpper,
	"ToLower": strings.ToLower,
	"Title":   title,
	"Short":   short,
	"ToJSON":  toJSON,
}

// toJSON renders v as indented JSON. A value that cannot be encoded renders as the
// encoding error so that the notification is still sent.
func toJSON(v any) string {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err == nil {
		return string(raw)
	}

	logrus.WithError(err).
		WithField("type", fmt.Sprintf("%T", v)).
		Warn("Unable to encode template value as JSON")

	return "<json: " + err.Error() + ">"
}

// title capitalizes words. A Caser is stateful, so each call gets its own.
func title(value string) string {
	return cases.Title(language.AmericanEnglish).String(value)
}

// short cuts value to the first shortDigestLength characters.
func short(value string) string {
	if len(value) > shortDigestLength {
		return value[:shortDigestLength]
	}

	return value
}
