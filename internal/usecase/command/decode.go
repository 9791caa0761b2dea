package command

import (
	"bytes"
	"encoding/json"
)

func noDefaults[P any]() P {
	var p P
	return p
}

// decodeJSON decodes parameters over the defaults. Empty input and null keep
// the defaults. With unwrap set, a {"data": {...}} wrapper is accepted as well
// as the bare object.
func decodeJSON[P any](defaults func() P, unwrap bool) func(json.RawMessage) (P, error) {
	return func(raw json.RawMessage) (P, error) {
		p := defaults()
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			return p, nil
		}
		if unwrap {
			raw = unwrapData(raw)
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			var zero P
			return zero, err
		}
		return p, nil
	}
}

func unwrapData(raw json.RawMessage) json.RawMessage {
	var w struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return raw
	}
	if data := bytes.TrimSpace(w.Data); len(data) > 0 && data[0] == '{' {
		return data
	}
	return raw
}

type noParams struct{}

// ignoreParams accepts any input for commands without parameters.
func ignoreParams(json.RawMessage) (noParams, error) { return noParams{}, nil }
