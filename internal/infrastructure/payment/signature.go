package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries the gateway signature as "t=<unix>,v1=<hex hmac>".
// The HMAC is computed over "<unix>.<raw body>"; any re-encoding of the body
// between transport and verification breaks it.
const SignatureHeader = "X-Payment-Signature"

// Tolerance bounds how far the signed timestamp may drift from now.
const Tolerance = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("missing signature header")
	ErrInvalidSignature = errors.New("invalid signature")
)

func VerifySignature(secret, header string, body []byte, now time.Time) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissingSignature
	}

	var tsPart, sigPart string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			tsPart = v
		case "v1":
			sigPart = v
		}
	}
	if tsPart == "" || sigPart == "" {
		return ErrInvalidSignature
	}

	tsInt, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	ts := time.Unix(tsInt, 0).UTC()

	// Replay window
	now = now.UTC()
	if ts.Before(now.Add(-Tolerance)) || ts.After(now.Add(Tolerance)) {
		return ErrInvalidSignature
	}

	providedSig, err := hex.DecodeString(sigPart)
	if err != nil {
		return ErrInvalidSignature
	}

	if !hmac.Equal(providedSig, computeSignature(secret, tsPart, body)) {
		return ErrInvalidSignature
	}
	return nil
}

// SignHeader builds a valid signature header for body at ts. Used by tests and
// the simulator.
func SignHeader(secret string, ts time.Time, body []byte) string {
	tsPart := strconv.FormatInt(ts.UTC().Unix(), 10)
	sig := hex.EncodeToString(computeSignature(secret, tsPart, body))
	return fmt.Sprintf("t=%s,v1=%s", tsPart, sig)
}

func computeSignature(secret, tsPart string, body []byte) []byte {
	msg := make([]byte, 0, len(tsPart)+1+len(body))
	msg = append(msg, tsPart...)
	msg = append(msg, '.')
	msg = append(msg, body...)

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(msg)
	return mac.Sum(nil)
}
