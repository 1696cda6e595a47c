package formatting

import (
	"fmt"
	"sort"
	"strings"

	"ahpbridge/internal/token"
	"ahpbridge/pkg/ahp"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const maxCellWidth = 100

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// FormatCalls renders calls as a table.
func (f *TableFormatter) FormatCalls(calls []CallRow) string {
	if len(calls) == 0 {
		return f.formatEmptyMessage("📋", "No AHP calls detected")
	}

	t := f.createTable()
	t.AppendHeader(table.Row{f.header("#"), f.header("TOOL"), f.header("URL"), f.header("STATE"), f.header("DETAIL")})
	for _, c := range calls {
		t.AppendRow(table.Row{
			c.Index,
			f.paint(text.FgHiCyan, c.Tool),
			Truncate(ahp.RedactURL(c.URL), maxCellWidth),
			f.stateCell(c.State),
			Truncate(c.Detail, maxCellWidth),
		})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d calls", len(calls)), "", ""})
	return t.Render()
}

// FormatStatus renders the broker status as key/value rows.
func (f *TableFormatter) FormatStatus(st token.Status) string {
	doc := newStatusDoc(st)
	t := f.createTable()
	t.AppendHeader(table.Row{f.header("KEY"), f.header("VALUE")})
	t.AppendRow(table.Row{"Server", valueOr(doc.Server, "(not set)")})
	t.AppendRow(table.Row{"Identity", valueOr(doc.Identity, "(not set)")})
	if doc.Configured {
		t.AppendRow(table.Row{"Configured", f.paint(text.FgGreen, "yes")})
	} else {
		t.AppendRow(table.Row{"Configured", f.paint(text.FgRed, "no, missing "+strings.Join(doc.Missing, ", "))})
	}
	if doc.HasToken {
		t.AppendRow(table.Row{"Token", f.paint(text.FgGreen, "cached")})
		t.AppendRow(table.Row{"Expires", doc.ExpiresAt})
		t.AppendRow(table.Row{"Remaining", doc.Remaining})
	} else {
		t.AppendRow(table.Row{"Token", f.paint(text.FgYellow, "none")})
	}
	return t.Render()
}

// FormatResult renders object payloads as key/value rows and anything else
// as indented JSON.
func (f *TableFormatter) FormatResult(resp ahp.Response) string {
	doc := newResultDoc(resp)
	if doc.Error != nil {
		t := f.createTable()
		t.AppendHeader(table.Row{f.header("ERROR"), f.header("MESSAGE")})
		t.AppendRow(table.Row{f.paint(text.FgRed, doc.Error.Kind), doc.Error.Message})
		return t.Render()
	}

	obj, ok := doc.Data.(map[string]interface{})
	if !ok || len(obj) == 0 {
		return IndentPayload(resp.Data)
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := f.createTable()
	t.AppendHeader(table.Row{f.header("KEY"), f.header("VALUE")})
	for _, k := range keys {
		value := obj[k]
		var cell string
		switch v := value.(type) {
		case string:
			cell = v
		case map[string]interface{}, []interface{}:
			cell = strings.ReplaceAll(PrettyJSON(v), "\n", " ")
		default:
			cell = fmt.Sprintf("%v", v)
		}
		t.AppendRow(table.Row{f.paint(text.FgHiCyan, k), Truncate(cell, maxCellWidth)})
	}
	return t.Render()
}

// FormatTools renders the tool catalog as a table.
func (f *TableFormatter) FormatTools(tools []ahp.ToolInfo) string {
	if len(tools) == 0 {
		return f.formatEmptyMessage("🧰", "The server lists no tools")
	}

	t := f.createTable()
	t.AppendHeader(table.Row{f.header("TOOL"), f.header("DESCRIPTION"), f.header("PARAMETERS"), f.header("SESSION")})
	for _, tool := range tools {
		session := ""
		if tool.SessionRequired {
			session = f.paint(text.FgYellow, "required")
		}
		t.AppendRow(table.Row{
			f.paint(text.FgHiCyan, tool.Name),
			Truncate(tool.Description, maxCellWidth),
			Truncate(paramList(tool.Parameters), maxCellWidth),
			session,
		})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d tools", len(tools)), "", "", ""})
	return t.Render()
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) header(s string) string {
	return f.paint(text.FgHiCyan, s)
}

func (f *TableFormatter) stateCell(state string) string {
	switch state {
	case "Injected":
		return f.paint(text.FgGreen, state)
	case "Failed":
		return f.paint(text.FgRed, state)
	case "Executing":
		return f.paint(text.FgYellow, state)
	default:
		return state
	}
}

func (f *TableFormatter) paint(c text.Color, s string) string {
	if !f.options.Color || s == "" {
		return s
	}
	return c.Sprint(s)
}

// formatEmptyMessage formats empty result messages
func (f *TableFormatter) formatEmptyMessage(icon, message string) string {
	return fmt.Sprintf("%s %s", f.paint(text.FgYellow, icon), f.paint(text.FgYellow, message))
}
