package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureVerifier checks gateway signatures for client payment proofs and
// webhook deliveries.
type SignatureVerifier interface {
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

type hmacSignatureVerifier struct {
	keySecret     []byte
	webhookSecret []byte
}

func NewHMACSignatureVerifier(keySecret, webhookSecret string) SignatureVerifier {
	return &hmacSignatureVerifier{
		keySecret:     []byte(keySecret),
		webhookSecret: []byte(webhookSecret),
	}
}

// VerifyPaymentSignature checks hex(HMAC-SHA256(keySecret, orderID|paymentID)).
func (v *hmacSignatureVerifier) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if len(v.keySecret) == 0 || orderID == "" || paymentID == "" {
		return false
	}
	return compareHex(SignPaymentProof(v.keySecret, orderID, paymentID), signature)
}

// VerifyWebhookSignature checks hex(HMAC-SHA256(webhookSecret, body)).
func (v *hmacSignatureVerifier) VerifyWebhookSignature(body []byte, signature string) bool {
	if len(v.webhookSecret) == 0 {
		return false
	}
	return compareHex(SignWebhookBody(v.webhookSecret, body), signature)
}

func SignPaymentProof(secret []byte, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func SignWebhookBody(secret []byte, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func compareHex(expected, provided string) bool {
	want, err := hex.DecodeString(expected)
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(provided))
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}
