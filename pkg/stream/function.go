package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	errEmptyPayload      = errors.New("empty payload")
	errNotObject         = errors.New("payload is not a JSON object")
	errMissingType       = errors.New("missing function_type")
	errMissingResult     = errors.New("missing result")
	errResultNotJSONText = errors.New("result is not valid JSON")
)

// payloadObject returns the JSON object carried by raw. Function payloads
// arrive either as an object or as a string holding the encoded object.
func payloadObject(raw json.RawMessage) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, errEmptyPayload
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decoding payload string: %w", err)
		}
		raw = []byte(strings.TrimSpace(s))
	}

	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return nil, errNotObject
	}
	return raw, nil
}

// detectedFunction reads {function_type, description} from a
// function_call_detected payload.
func detectedFunction(raw json.RawMessage) (functionType, description string, err error) {
	obj, err := payloadObject(raw)
	if err != nil {
		return "", "", err
	}

	ft := gjson.GetBytes(obj, "function_type")
	if ft.Type != gjson.String || ft.String() == "" {
		return "", "", errMissingType
	}
	return ft.String(), gjson.GetBytes(obj, "description").String(), nil
}

// functionResult reads {function_type, result} from a function_result
// payload. The result may itself be an encoded JSON string.
func functionResult(raw json.RawMessage) (functionType string, data json.RawMessage, err error) {
	obj, err := payloadObject(raw)
	if err != nil {
		return "", nil, err
	}

	ft := gjson.GetBytes(obj, "function_type")
	if ft.Type != gjson.String || ft.String() == "" {
		return "", nil, errMissingType
	}

	res := gjson.GetBytes(obj, "result")
	if !res.Exists() {
		return "", nil, errMissingResult
	}

	if res.Type == gjson.String {
		inner := strings.TrimSpace(res.String())
		if !gjson.Valid(inner) {
			return "", nil, errResultNotJSONText
		}
		return ft.String(), json.RawMessage(inner), nil
	}
	return ft.String(), json.RawMessage(res.Raw), nil
}

// searchQuery returns result.query for web searches.
func searchQuery(functionType string, data json.RawMessage) string {
	if functionType != "web_search" {
		return ""
	}
	return gjson.GetBytes(data, "query").String()
}

// stepStatus extracts the status line from a step-progress event. Most steps
// carry a plain string; content_direct carries {function_type, status}.
func stepStatus(ev *Event) (status, functionType string) {
	if s, ok := ev.Text(); ok {
		return s, ""
	}
	if obj, err := payloadObject(ev.Content); err == nil {
		return gjson.GetBytes(obj, "status").String(), gjson.GetBytes(obj, "function_type").String()
	}
	return "", ""
}
