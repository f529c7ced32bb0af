package schedule

import (
	"encoding/base64"
	"testing"
)

func TestPayloadRoundTrip(t *testing.T) {
	original := Payload{Type: "digest_weekly_summary", Channel: "EMAIL"}

	encoded, err := EncodePayload(original)
	if err != nil {
		t.Fatalf("EncodePayload() error: %v", err)
	}
	if _, err := base64.StdEncoding.DecodeString(encoded); err != nil {
		t.Fatalf("encoded payload is not base64: %v", err)
	}

	decoded, err := DecodePayload(encoded)
	if err != nil {
		t.Fatalf("DecodePayload() error: %v", err)
	}
	if decoded != original {
		t.Errorf("round trip = %+v, want %+v", decoded, original)
	}
}

func TestDecodePayload_Invalid(t *testing.T) {
	if _, err := DecodePayload("not-base64!!!"); err == nil {
		t.Error("expected error for invalid base64, got nil")
	}
	// Valid base64 wrapping invalid JSON.
	if _, err := DecodePayload(base64.StdEncoding.EncodeToString([]byte("{"))); err == nil {
		t.Error("expected error for invalid JSON, got nil")
	}
}
