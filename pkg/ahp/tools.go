package ahp

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ToolInfo describes one tool published by the server.
type ToolInfo struct {
	Name            string      `json:"name" yaml:"name"`
	Description     string      `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters      []ToolParam `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	SessionRequired bool        `json:"sessionRequired,omitempty" yaml:"sessionRequired,omitempty"`
}

// ToolParam is one query parameter of a tool.
type ToolParam struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// toolSchema is one entry of the /schema listing.
type toolSchema struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  struct {
		Properties map[string]struct {
			Type string `json:"type"`
		} `json:"properties"`
		Required []string `json:"required"`
	} `json:"parameters"`
	SessionRequired bool `json:"x-ahp-session-required"`
}

// ParseToolSchemas decodes the /schema listing: either a bare array of
// tool schemas or an object holding them under "tools".
func ParseToolSchemas(body []byte) ([]ToolInfo, error) {
	var schemas []toolSchema
	if err := json.Unmarshal(body, &schemas); err != nil {
		var wrapped struct {
			Tools []toolSchema `json:"tools"`
		}
		if werr := json.Unmarshal(body, &wrapped); werr != nil || wrapped.Tools == nil {
			return nil, fmt.Errorf("unrecognized tool schema listing: %w", err)
		}
		schemas = wrapped.Tools
	}

	tools := make([]ToolInfo, 0, len(schemas))
	for _, s := range schemas {
		if s.Name == "" {
			continue
		}
		required := make(map[string]bool, len(s.Parameters.Required))
		for _, name := range s.Parameters.Required {
			required[name] = true
		}
		info := ToolInfo{Name: s.Name, Description: s.Description, SessionRequired: s.SessionRequired}
		for name, prop := range s.Parameters.Properties {
			info.Parameters = append(info.Parameters, ToolParam{Name: name, Type: prop.Type, Required: required[name]})
		}
		sortParams(info.Parameters)
		tools = append(tools, info)
	}
	sortTools(tools)
	return tools, nil
}

// openAPIDocument is the subset of an OpenAPI document naming GET tools.
type openAPIDocument struct {
	Paths map[string]map[string]struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Parameters  []struct {
			Name     string `json:"name"`
			In       string `json:"in"`
			Required bool   `json:"required"`
			Schema   struct {
				Type string `json:"type"`
			} `json:"schema"`
		} `json:"parameters"`
	} `json:"paths"`
}

// ParseOpenAPI lists the GET operations of an OpenAPI document as tools.
// Reserved endpoints and the credential parameters are left out.
func ParseOpenAPI(body []byte) ([]ToolInfo, error) {
	var doc openAPIDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	if doc.Paths == nil {
		return nil, fmt.Errorf("invalid OpenAPI document: no paths")
	}

	var tools []ToolInfo
	for path, ops := range doc.Paths {
		name := strings.Trim(path, "/")
		if reservedPaths[strings.ToLower(name)] {
			continue
		}
		op, ok := ops["get"]
		if !ok {
			continue
		}
		info := ToolInfo{Name: name, Description: op.Summary}
		if info.Description == "" {
			info.Description = op.Description
		}
		for _, p := range op.Parameters {
			if p.In != "" && p.In != "query" {
				continue
			}
			switch p.Name {
			case ParamBearerToken, ParamPreSharedKey:
				continue
			case ParamSessionID:
				info.SessionRequired = info.SessionRequired || p.Required
				continue
			}
			info.Parameters = append(info.Parameters, ToolParam{Name: p.Name, Type: p.Schema.Type, Required: p.Required})
		}
		sortParams(info.Parameters)
		tools = append(tools, info)
	}
	sortTools(tools)
	return tools, nil
}

func sortTools(tools []ToolInfo) {
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
}

// sortParams puts required parameters first, then orders by name.
func sortParams(params []ToolParam) {
	sort.Slice(params, func(i, j int) bool {
		if params[i].Required != params[j].Required {
			return params[i].Required
		}
		return params[i].Name < params[j].Name
	})
}
