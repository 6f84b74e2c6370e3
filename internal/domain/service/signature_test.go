package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyPaymentSignature(t *testing.T) {
	v := NewHMACSignatureVerifier("key_secret", "webhook_secret")
	valid := SignPaymentProof([]byte("key_secret"), "order_1", "pay_1")

	assert.True(t, v.VerifyPaymentSignature("order_1", "pay_1", valid))
	assert.False(t, v.VerifyPaymentSignature("order_1", "pay_2", valid))
	assert.False(t, v.VerifyPaymentSignature("order_2", "pay_1", valid))
	assert.False(t, v.VerifyPaymentSignature("order_1", "pay_1", "not-hex"))
	assert.False(t, v.VerifyPaymentSignature("order_1", "pay_1", SignPaymentProof([]byte("other"), "order_1", "pay_1")))
	assert.False(t, v.VerifyPaymentSignature("", "pay_1", valid))
}

func TestVerifyWebhookSignature(t *testing.T) {
	v := NewHMACSignatureVerifier("key_secret", "webhook_secret")
	body := []byte(`{"event":"payment.captured"}`)
	valid := SignWebhookBody([]byte("webhook_secret"), body)

	assert.True(t, v.VerifyWebhookSignature(body, valid))
	assert.True(t, v.VerifyWebhookSignature(body, " "+valid+"\n"))
	assert.False(t, v.VerifyWebhookSignature([]byte(`{"event":"payment.failed"}`), valid))
	assert.False(t, v.VerifyWebhookSignature(body, ""))

	unconfigured := NewHMACSignatureVerifier("", "")
	assert.False(t, unconfigured.VerifyWebhookSignature(body, SignWebhookBody(nil, body)))
}
