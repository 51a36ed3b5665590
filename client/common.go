package client

import (
	"encoding/json"
	"fmt"
)

// CommonRequest is an untyped JSON request for calling actions that have no
// generated model, e.g. from generic tooling. Parameters are a free-form
// JSON object.
type CommonRequest struct {
	params map[string]any
}

// NewCommonRequest returns a request carrying the given parameters. A nil
// map sends an empty JSON object.
func NewCommonRequest(params map[string]any) *CommonRequest {
	return &CommonRequest{params: params}
}

// SetParamsJSON replaces the parameters with a raw JSON object.
func (r *CommonRequest) SetParamsJSON(data []byte) error {
	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return fmt.Errorf("parsing request parameters: %w", err)
	}
	r.params = params
	return nil
}

// SetParam sets a single parameter.
func (r *CommonRequest) SetParam(name string, value any) {
	if r.params == nil {
		r.params = make(map[string]any)
	}
	r.params[name] = value
}

// Protocol implements InputModel.
func (r *CommonRequest) Protocol() Protocol { return ProtocolJSON }

// MarshalJSON encodes the parameters; an empty request encodes as {}.
func (r *CommonRequest) MarshalJSON() ([]byte, error) {
	if r.params == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.params)
}

// GetClientToken implements ClientTokenCarrier.
func (r *CommonRequest) GetClientToken() string {
	if r.params == nil {
		return ""
	}
	token, _ := r.params["ClientToken"].(string)
	return token
}

// SetClientToken implements ClientTokenCarrier.
func (r *CommonRequest) SetClientToken(token string) {
	r.SetParam("ClientToken", token)
}

// CommonResponse captures the raw Response payload for callers that decode
// it themselves.
type CommonResponse struct {
	raw       json.RawMessage
	requestID string
}

// UnmarshalJSON stores the payload and extracts the request id.
func (r *CommonResponse) UnmarshalJSON(data []byte) error {
	r.raw = append(r.raw[:0], data...)
	var probe struct {
		RequestID string `json:"RequestId"`
	}
	if err := json.Unmarshal(data, &probe); err == nil {
		r.requestID = probe.RequestID
	}
	return nil
}

// Body returns the raw Response payload.
func (r *CommonResponse) Body() []byte { return r.raw }

// RequestID returns the server-assigned request identifier, if present.
func (r *CommonResponse) RequestID() string { return r.requestID }
