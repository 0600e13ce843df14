package protocol

import (
	"encoding/json"
	"strings"
)

// UserStartedSpeaking is the agent leg's barge-in notification: the human on
// the call has started talking and queued playback must be cleared.
type UserStartedSpeaking struct{}

// FunctionCall is one requested capability invocation. Arguments arrive as a
// JSON-encoded string so the call envelope stays independent of the argument
// encoding.
type FunctionCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// DecodeArguments deserializes the JSON-encoded argument string. An empty
// string decodes to an empty map.
func (c FunctionCall) DecodeArguments() (map[string]any, error) {
	if strings.TrimSpace(c.Arguments) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(c.Arguments), &args); err != nil {
		return nil, badEvent("function call arguments are not a json object", "arguments")
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// FunctionCallRequest is a batch of capability invocations requested by the
// agent in one control envelope.
type FunctionCallRequest struct {
	Functions []FunctionCall `json:"functions"`
}

// AgentControl is any other recognized agent control message. The relay
// ignores these; new control kinds from the agent leg are not errors.
type AgentControl struct {
	Type string
}

type agentEnvelope struct {
	Type      string         `json:"type"`
	Functions []FunctionCall `json:"functions"`
}

// DecodeAgentEvent parses one text frame from the agent leg into a tagged
// variant: UserStartedSpeaking, FunctionCallRequest, or AgentControl for
// everything else.
func DecodeAgentEvent(data []byte) (any, error) {
	var env agentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, badEvent("invalid json frame", "")
	}
	switch strings.TrimSpace(env.Type) {
	case "UserStartedSpeaking":
		return UserStartedSpeaking{}, nil
	case "FunctionCallRequest":
		return FunctionCallRequest{Functions: env.Functions}, nil
	case "":
		return nil, badEvent("missing type", "type")
	default:
		return AgentControl{Type: env.Type}, nil
	}
}

// FunctionCallResponse answers exactly one FunctionCall on the agent leg.
// Content is always a JSON-encoded string regardless of what the capability
// returned, so the outer envelope stays uniform.
type FunctionCallResponse struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// EncodeFunctionCallResponse builds the response envelope for one call. The
// result payload is re-serialized to a string; a payload that cannot be
// serialized is reported as an error payload instead of dropping the response.
func EncodeFunctionCallResponse(id, name string, result map[string]any) []byte {
	content, err := json.Marshal(result)
	if err != nil {
		content, _ = json.Marshal(map[string]any{"error": "unserializable function result"})
	}
	data, _ := json.Marshal(FunctionCallResponse{
		Type:    "FunctionCallResponse",
		ID:      id,
		Name:    name,
		Content: string(content),
	})
	return data
}
