package formatting

import (
	"ahpbridge/internal/token"
	"ahpbridge/pkg/ahp"
)

// JSONFormatter provides structured JSON output formatting
type JSONFormatter struct {
	options Options
}

// FormatCalls renders calls as a JSON array.
func (f *JSONFormatter) FormatCalls(calls []CallRow) string {
	if calls == nil {
		calls = []CallRow{}
	}
	redacted := make([]CallRow, len(calls))
	for i, c := range calls {
		c.URL = ahp.RedactURL(c.URL)
		redacted[i] = c
	}
	return PrettyJSON(redacted)
}

// FormatStatus renders the broker status as a JSON object.
func (f *JSONFormatter) FormatStatus(st token.Status) string {
	return PrettyJSON(newStatusDoc(st))
}

// FormatResult renders the response envelope with its decoded payload.
func (f *JSONFormatter) FormatResult(resp ahp.Response) string {
	return PrettyJSON(newResultDoc(resp))
}

// FormatTools renders the tool catalog as a JSON array.
func (f *JSONFormatter) FormatTools(tools []ahp.ToolInfo) string {
	if tools == nil {
		tools = []ahp.ToolInfo{}
	}
	return PrettyJSON(tools)
}
