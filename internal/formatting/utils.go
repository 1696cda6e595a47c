package formatting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ahpbridge/internal/token"
	"ahpbridge/pkg/ahp"
)

// PrettyJSON formats any value as indented JSON for human-readable display.
// It falls back to fmt.Sprintf when the value cannot be marshaled.
func PrettyJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// IndentPayload indents a raw JSON payload, returning it unchanged when it
// is not valid JSON.
func IndentPayload(raw json.RawMessage) string {
	var out bytes.Buffer
	if err := json.Indent(&out, bytes.TrimSpace(raw), "", "  "); err != nil {
		return string(raw)
	}
	return out.String()
}

// paramList joins parameter names, marking required ones with "*".
func paramList(params []ahp.ToolParam) string {
	names := make([]string, 0, len(params))
	for _, p := range params {
		if p.Required {
			names = append(names, p.Name+"*")
		} else {
			names = append(names, p.Name)
		}
	}
	return strings.Join(names, ", ")
}

// Truncate shortens s to max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 3 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// statusDoc is the serialised form of a broker status.
type statusDoc struct {
	Server     string   `json:"server" yaml:"server"`
	Identity   string   `json:"identity,omitempty" yaml:"identity,omitempty"`
	Configured bool     `json:"configured" yaml:"configured"`
	Missing    []string `json:"missing,omitempty" yaml:"missing,omitempty"`
	HasToken   bool     `json:"hasToken" yaml:"hasToken"`
	ExpiresAt  string   `json:"expiresAt,omitempty" yaml:"expiresAt,omitempty"`
	Remaining  string   `json:"remaining,omitempty" yaml:"remaining,omitempty"`
}

func newStatusDoc(st token.Status) statusDoc {
	doc := statusDoc{
		Server:     st.ServerURL,
		Identity:   st.AgentIdentity,
		Configured: st.Configured(),
		Missing:    st.Missing,
		HasToken:   st.HasToken,
	}
	if st.HasToken {
		doc.ExpiresAt = st.ExpiresAt.UTC().Format(time.RFC3339)
		doc.Remaining = st.Remaining.Round(time.Second).String()
	}
	return doc
}

// errorDoc is the serialised form of a failed response.
type errorDoc struct {
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
}

type resultDoc struct {
	ID      string      `json:"id,omitempty" yaml:"id,omitempty"`
	Success bool        `json:"success" yaml:"success"`
	Data    interface{} `json:"data,omitempty" yaml:"data,omitempty"`
	Error   *errorDoc   `json:"error,omitempty" yaml:"error,omitempty"`
}

func newResultDoc(resp ahp.Response) resultDoc {
	doc := resultDoc{ID: resp.ID, Success: resp.Success}
	if !resp.Success {
		err := resp.Err()
		doc.Error = &errorDoc{Kind: string(ahp.KindOf(err)), Message: ahp.Message(err)}
		return doc
	}
	doc.Data = decodePayload(resp.Data)
	return doc
}

// decodePayload turns a JSON payload into plain values; invalid JSON is
// kept as a string.
func decodePayload(raw json.RawMessage) interface{} {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
