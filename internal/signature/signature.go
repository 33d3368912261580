// Package signature produces and checks HMAC-SHA256 MACs for the gateway
// protocol. Requests to the gateway and callbacks from it use different keys;
// the two directions have distinct types so a key cannot be used for the
// wrong boundary.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Delimiter joins MAC fields. It is part of the gateway wire contract.
const Delimiter = "|"

type key []byte

func (k key) sum(message string) []byte {
	h := hmac.New(sha256.New, k)
	h.Write([]byte(message))
	return h.Sum(nil)
}

func (k key) mac(message string) string {
	return hex.EncodeToString(k.sum(message))
}

func (k key) equal(message, mac string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(mac))
	if err != nil {
		return false
	}
	return hmac.Equal(k.sum(message), got)
}

// RequestSigner signs requests sent to the gateway (the gateway's key1).
type RequestSigner struct {
	k key
}

func NewRequestSigner(secret string) *RequestSigner {
	return &RequestSigner{k: key(secret)}
}

// Sign joins fields with Delimiter, in the given order, and returns the hex MAC.
func (s *RequestSigner) Sign(fields ...string) string {
	return s.k.mac(strings.Join(fields, Delimiter))
}

func (s *RequestSigner) Verify(mac string, fields ...string) bool {
	return s.k.equal(strings.Join(fields, Delimiter), mac)
}

// SignStatusQuery returns the MAC for a status query: app_id|app_trans_id|key.
func (s *RequestSigner) SignStatusQuery(appID, transactionID string) string {
	return s.Sign(appID, transactionID, string(s.k))
}

// CallbackVerifier authenticates callbacks claimed to come from the gateway
// (the gateway's key2). The MAC covers the raw data blob exactly as received.
type CallbackVerifier struct {
	k key
}

func NewCallbackVerifier(secret string) *CallbackVerifier {
	return &CallbackVerifier{k: key(secret)}
}

func (v *CallbackVerifier) Verify(blob, mac string) bool {
	if mac == "" {
		return false
	}
	return v.k.equal(blob, mac)
}

// Sign computes the MAC the gateway would attach to blob. Used by operator
// tooling and tests.
func (v *CallbackVerifier) Sign(blob string) string {
	return v.k.mac(blob)
}
