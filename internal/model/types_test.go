package model

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeTokens(t *testing.T) {
	tokens := []*TokenSnapshot{{Address: "A1"}, {Address: "B2"}}

	for _, env := range []*Envelope{
		TokenUpdateEnvelope(tokens),
		PriceUpdateEnvelope(tokens),
	} {
		got := env.Tokens()
		if len(got) != 2 || got[0].Address != "A1" {
			t.Errorf("%s Tokens() = %+v, want the wrapped set", env.Type, got)
		}
	}

	if got := NewEnvelope("announce", "free text").Tokens(); got != nil {
		t.Errorf("Tokens() on non-token envelope = %v, want nil", got)
	}
}

func TestEnvelopeJSONShape(t *testing.T) {
	env := PriceUpdateEnvelope([]*TokenSnapshot{{Address: "X", PriceSOL: 0.12}})

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	var decoded struct {
		Type string `json:"type"`
		Data struct {
			Tokens []*TokenSnapshot `json:"tokens"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}

	if decoded.Type != EventPriceUpdate {
		t.Errorf("type = %q, want %q", decoded.Type, EventPriceUpdate)
	}
	if len(decoded.Data.Tokens) != 1 || decoded.Data.Tokens[0].Address != "X" {
		t.Errorf("payload = %+v, want token X under data.tokens", decoded.Data)
	}
}
