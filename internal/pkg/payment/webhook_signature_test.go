package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	secret := "top-secret"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	validSig := hex.EncodeToString(mac.Sum(nil))

	if !VerifyWebhookSignature(payload, validSig, secret) {
		t.Fatalf("expected signature to validate")
	}
	if !VerifyWebhookSignature(payload, strings.ToUpper(validSig), secret) {
		t.Fatalf("expected uppercase hex signature to validate")
	}
	if VerifyWebhookSignature(payload, "deadbeef", secret) {
		t.Fatalf("expected invalid signature to fail")
	}
	if VerifyWebhookSignature(payload, validSig, "other-secret") {
		t.Fatalf("expected wrong secret to fail")
	}
	if VerifyWebhookSignature(payload, "", secret) {
		t.Fatalf("expected empty signature to fail")
	}
	if VerifyWebhookSignature(payload, validSig, "") {
		t.Fatalf("expected empty secret to fail")
	}
	if VerifyWebhookSignature(payload, "not-hex!", secret) {
		t.Fatalf("expected non-hex signature to fail")
	}
}

func TestParseWebhookEvent(t *testing.T) {
	raw := []byte(`{"id":"evt_9","type":"checkout.session.completed","data":{"object":{"id":"cs_42"}}}`)
	ev, err := ParseWebhookEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.EventID != "evt_9" || ev.EventType != "checkout.session.completed" || ev.GatewaySessionID != "cs_42" {
		t.Fatalf("unexpected event: %+v", ev)
	}

	if _, err := ParseWebhookEvent([]byte(`not json`)); err == nil {
		t.Fatalf("expected malformed payload to fail")
	}
	if _, err := ParseWebhookEvent([]byte(`{"id":"evt_9","type":"x"}`)); err == nil {
		t.Fatalf("expected event without session reference to fail")
	}
}
