package payment

import (
	"errors"
	"testing"
	"time"
)

func TestVerifySignature_OK(t *testing.T) {
	secret := "whsec_dev"
	body := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{}}}`)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	header := SignHeader(secret, now.Add(-2*time.Minute), body)

	if err := VerifySignature(secret, header, body, now); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestVerifySignature_MissingHeader(t *testing.T) {
	err := VerifySignature("whsec_dev", "", []byte(`{}`), time.Now())
	if !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature, got %v", err)
	}
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	now := time.Now()
	header := SignHeader("whsec_other", now, body)

	err := VerifySignature("whsec_dev", header, body, now)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifySignature_TamperedBody(t *testing.T) {
	secret := "whsec_dev"
	body := []byte(`{"amount":100}`)
	now := time.Now()
	header := SignHeader(secret, now, body)

	err := VerifySignature(secret, header, []byte(`{"amount":999}`), now)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifySignature_StaleTimestamp(t *testing.T) {
	secret := "whsec_dev"
	body := []byte(`{}`)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	header := SignHeader(secret, now.Add(-(Tolerance + time.Second)), body)

	err := VerifySignature(secret, header, body, now)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifySignature_GarbageHeader(t *testing.T) {
	for _, header := range []string{
		"t=abc,v1=00",
		"v1=00",
		"t=1234567890",
		"t=1234567890,v1=not-hex!!!",
	} {
		err := VerifySignature("whsec_dev", header, []byte(`{}`), time.Now())
		if !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("header %q: expected ErrInvalidSignature, got %v", header, err)
		}
	}
}
