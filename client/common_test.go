package client

import (
	"encoding/json"
	"testing"
)

func TestCommonRequestMarshal(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		data, err := json.Marshal(NewCommonRequest(nil))
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if string(data) != "{}" {
			t.Errorf("marshal = %s, want {}", data)
		}
	})

	t.Run("params", func(t *testing.T) {
		req := NewCommonRequest(map[string]any{"Limit": 1})
		data, err := json.Marshal(req)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if string(data) != `{"Limit":1}` {
			t.Errorf("marshal = %s", data)
		}
	})
}

func TestCommonRequestSetParamsJSON(t *testing.T) {
	req := NewCommonRequest(nil)
	if err := req.SetParamsJSON([]byte(`{"Limit": 2}`)); err != nil {
		t.Fatalf("SetParamsJSON: %v", err)
	}
	data, _ := json.Marshal(req)
	if string(data) != `{"Limit":2}` {
		t.Errorf("marshal = %s", data)
	}

	if err := req.SetParamsJSON([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed parameters")
	}
}

func TestCommonRequestClientToken(t *testing.T) {
	req := NewCommonRequest(nil)
	if got := req.GetClientToken(); got != "" {
		t.Errorf("GetClientToken = %q, want empty", got)
	}
	req.SetClientToken("tok")
	if got := req.GetClientToken(); got != "tok" {
		t.Errorf("GetClientToken = %q, want tok", got)
	}
	data, _ := json.Marshal(req)
	if string(data) != `{"ClientToken":"tok"}` {
		t.Errorf("marshal = %s", data)
	}
}

func TestCommonResponse(t *testing.T) {
	payload := []byte(`{"RequestId":"r-9","InstanceSet":[1,2]}`)
	var resp CommonResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.RequestID() != "r-9" {
		t.Errorf("RequestID = %q, want r-9", resp.RequestID())
	}
	if string(resp.Body()) != string(payload) {
		t.Errorf("Body = %s", resp.Body())
	}
}
