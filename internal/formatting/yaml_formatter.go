package formatting

import (
	"fmt"

	"ahpbridge/internal/token"
	"ahpbridge/pkg/ahp"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

// FormatCalls renders calls as a YAML sequence.
func (f *YAMLFormatter) FormatCalls(calls []CallRow) string {
	redacted := make([]CallRow, len(calls))
	for i, c := range calls {
		c.URL = ahp.RedactURL(c.URL)
		redacted[i] = c
	}
	return f.marshal(redacted)
}

// FormatStatus renders the broker status as a YAML mapping.
func (f *YAMLFormatter) FormatStatus(st token.Status) string {
	return f.marshal(newStatusDoc(st))
}

// FormatResult renders the response envelope with its decoded payload.
func (f *YAMLFormatter) FormatResult(resp ahp.Response) string {
	return f.marshal(newResultDoc(resp))
}

// FormatTools renders the tool catalog as a YAML sequence.
func (f *YAMLFormatter) FormatTools(tools []ahp.ToolInfo) string {
	return f.marshal(tools)
}

// marshal converts data to YAML string
func (f *YAMLFormatter) marshal(data interface{}) string {
	yamlBytes, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Sprintf("error: \"Failed to format YAML: %v\"\n", err)
	}

	return string(yamlBytes)
}
