// Package template renders campaign messages with double-brace
// placeholders, e.g. "Hola {{ nombre }}". Placeholders without a binding
// render as an empty string so a partial context never leaks braces into
// an outgoing email.
package template

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// DefaultBody is the campaign body used when the caller provides none.
const DefaultBody = `Hola {{ nombre }},

Soy {{ remitente }} y trabajo con farmacias de {{ zona }}.

{{ propuesta_valor }}

Si te interesa, respondeme a este correo y lo vemos en una llamada corta.

Un saludo,
{{ firma }}`

// DefaultSubject is the campaign subject used when the caller provides none.
const DefaultSubject = "Propuesta para {{ nombre }}"

// Render substitutes every {{ name }} placeholder with its binding.
// Unbound placeholders become "". A whitespace-only template falls back
// to DefaultBody.
func Render(templateText string, bindings map[string]string) string {
	if strings.TrimSpace(templateText) == "" {
		templateText = DefaultBody
	}
	return placeholderRe.ReplaceAllStringFunc(templateText, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		return bindings[name]
	})
}
