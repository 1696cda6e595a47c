package ahp

import (
	"encoding/json"
	"strings"
)

// ErrorMessage inspects a JSON body for the server's error field and
// returns the message it carries. Both shapes the server produces are
// understood:
//
//	{"error": {"code": "invalid_bearer_token", "message": "Bearer token has expired."}}
//	{"error": "payment_required", "message": "This tool requires a Lightning payment to proceed."}
//
// found is false when the body is not a JSON object or has no error.
func ErrorMessage(body []byte) (message string, found bool) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", false
	}

	raw, ok := envelope["error"]
	if !ok {
		return "", false
	}
	topLevel := stringField(envelope, "message")

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asObject); err == nil && asObject != nil {
		if msg := stringField(asObject, "message"); msg != "" {
			return msg, true
		}
		if code := stringField(asObject, "code"); code != "" {
			return code, true
		}
		if topLevel != "" {
			return topLevel, true
		}
		return "tool returned an error", true
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if strings.TrimSpace(asString) == "" {
			return "", false
		}
		if topLevel != "" {
			return topLevel, true
		}
		return asString, true
	}

	var asBool bool
	if err := json.Unmarshal(raw, &asBool); err == nil {
		if !asBool {
			return "", false
		}
		if topLevel != "" {
			return topLevel, true
		}
		return "tool returned an error", true
	}

	// null or an unexpected type
	if string(raw) == "null" {
		return "", false
	}
	if topLevel != "" {
		return topLevel, true
	}
	return strings.TrimSpace(string(raw)), true
}

func stringField(obj map[string]json.RawMessage, key string) string {
	raw, ok := obj[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
