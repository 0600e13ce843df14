package upstream

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadSettings reads the agent session-settings payload from disk and checks
// that it is a JSON object. The payload is sent verbatim as the first message
// on every agent leg, so a malformed file must fail at startup rather than
// per call.
func LoadSettings(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading agent settings: %w", err)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("agent settings %s is not a json object: %w", path, err)
	}
	if _, ok := obj["type"]; !ok {
		return nil, fmt.Errorf("agent settings %s is missing the type field", path)
	}
	return json.RawMessage(data), nil
}
