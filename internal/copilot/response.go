package copilot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Wire values of response_type.
const (
	TypeChat = "chat"
	TypeCode = "plc_code"
)

// Route kinds reported to callers and metrics.
const (
	KindChat    = "chat"
	KindCode    = "plc_code"
	KindUnknown = "unknown"
	KindError   = "error"
)

var ErrMalformedResponse = errors.New("malformed upstream response")

// Response is one of ChatResponse, CodeResponse or UnknownResponse.
type Response interface {
	Kind() string
	isResponse()
}

type ChatResponse struct {
	Message string
}

// CodeOutput holds the generated program parts. Empty means absent.
type CodeOutput struct {
	Explanation       string
	StructuredText    string
	RequiredVariables string
	SimulationTrace   string
	VerificationNotes string
}

type VerificationStatus struct {
	Status  string
	Details string
}

type CodeResponse struct {
	Output       CodeOutput
	Verification *VerificationStatus
}

type UnknownResponse struct {
	Type string
}

func (ChatResponse) Kind() string    { return KindChat }
func (CodeResponse) Kind() string    { return KindCode }
func (UnknownResponse) Kind() string { return KindUnknown }

func (ChatResponse) isResponse()    {}
func (CodeResponse) isResponse()    {}
func (UnknownResponse) isResponse() {}

// ParseResponse validates an upstream payload and classifies it by its
// response_type discriminant. A single-element array is unwrapped, since n8n
// webhooks answer with a list of items. Fields that are missing or not strings
// are treated as absent.
func ParseResponse(data []byte) (Response, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if len(items) != 1 {
			return nil, fmt.Errorf("%w: expected a single item, got %d", ErrMalformedResponse, len(items))
		}
		data = bytes.TrimSpace(items[0])
	}

	obj, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	typ := strings.TrimSpace(stringField(obj, "response_type"))
	switch typ {
	case TypeChat:
		return ChatResponse{Message: stringField(obj, "message")}, nil
	case TypeCode:
		fields := obj
		if raw, ok := obj["final_json"]; ok {
			// a final_json that is not an object counts as empty
			fields, _ = decodeObject(raw)
		}
		resp := CodeResponse{Output: CodeOutput{
			Explanation:       stringField(fields, "explanation"),
			StructuredText:    stringField(fields, "structured_text"),
			RequiredVariables: stringField(fields, "required_variables"),
			SimulationTrace:   stringField(fields, "simulation_trace"),
			VerificationNotes: stringField(fields, "verification_notes"),
		}}
		if raw, ok := obj["verification_status"]; ok {
			if vs, err := decodeObject(raw); err == nil {
				resp.Verification = &VerificationStatus{
					Status:  stringField(vs, "status"),
					Details: stringField(vs, "details"),
				}
			}
		}
		return resp, nil
	default:
		return UnknownResponse{Type: typ}, nil
	}
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: null body", ErrMalformedResponse)
	}
	return obj, nil
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
	return s
}
