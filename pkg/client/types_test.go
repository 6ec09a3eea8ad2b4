package client

import (
	"encoding/json"
	"testing"
)

func TestUnmarshalKeepsRawPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		decode  func([]byte) (json.RawMessage, error)
	}{
		{
			name:    "user",
			payload: `{"id":"u-1","email":"a@acme.test","locale":"de"}`,
			decode: func(b []byte) (json.RawMessage, error) {
				var v User
				err := json.Unmarshal(b, &v)
				return v.Raw, err
			},
		},
		{
			name:    "team",
			payload: `{"id":"t-1","name":"IT","sla":{"hours":4}}`,
			decode: func(b []byte) (json.RawMessage, error) {
				var v Team
				err := json.Unmarshal(b, &v)
				return v.Raw, err
			},
		},
		{
			name:    "webhook",
			payload: `{"id":"wh-1","url":"https://hooks.acme.test","secret":"x"}`,
			decode: func(b []byte) (json.RawMessage, error) {
				var v Webhook
				err := json.Unmarshal(b, &v)
				return v.Raw, err
			},
		},
		{
			name:    "request type",
			payload: `{"id":"rt-1","title":"Hardware","fields":[]}`,
			decode: func(b []byte) (json.RawMessage, error) {
				var v RequestType
				err := json.Unmarshal(b, &v)
				return v.Raw, err
			},
		},
		{
			name:    "request",
			payload: `{"id":"req-1","subject":"S","customFields":{"asset":"LAPTOP-1"}}`,
			decode: func(b []byte) (json.RawMessage, error) {
				var v Request
				err := json.Unmarshal(b, &v)
				return v.Raw, err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.decode([]byte(tt.payload))
			if err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if string(raw) != tt.payload {
				t.Errorf("Raw = %s, want %s", raw, tt.payload)
			}
		})
	}
}

func TestUnmarshalDecodesFields(t *testing.T) {
	var r Request
	if err := json.Unmarshal([]byte(`{"id":"req-1","updatedAt":"2026-10-15T10:00:00Z","isFiled":true}`), &r); err != nil {
		t.Fatal(err)
	}
	if r.ID != "req-1" || !r.IsFiled || r.LastUpdated() != "2026-10-15T10:00:00Z" {
		t.Errorf("decoded request = %+v", r)
	}

	raw, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	var round map[string]any
	if err := json.Unmarshal(raw, &round); err != nil {
		t.Fatal(err)
	}
	if _, ok := round["Raw"]; ok {
		t.Error("Raw should not be encoded")
	}
}

func TestUnmarshalRejectsMalformed(t *testing.T) {
	var u User
	if err := json.Unmarshal([]byte(`{"id":1}`), &u); err == nil {
		t.Error("expected a type error for a numeric id")
	}
}
