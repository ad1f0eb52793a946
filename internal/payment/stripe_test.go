package payment

import (
	"context"
	"testing"

	"boutique_back_end/internal/storeerr"

	"github.com/stretchr/testify/assert"
)

func TestCreateIntent_RejectsNonPositiveAmount(t *testing.T) {
	// Le montant est validé avant tout appel réseau : aucune clé Stripe
	// n'est nécessaire pour ces cas.
	for _, amount := range []int64{0, -500} {
		_, _, err := CreateIntent(context.Background(), amount, nil)
		assert.ErrorIs(t, err, storeerr.ErrInvalidAmount, "montant %d", amount)
	}
}

func TestParseWebhook_TestModeDecodesPayload(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	event, err := ParseWebhook(payload, "")
	assert.NoError(t, err)
	assert.Equal(t, "payment_intent.succeeded", string(event.Type))
}

func TestParseWebhook_InvalidJSON(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	_, err := ParseWebhook([]byte("pas du json"), "")
	assert.ErrorIs(t, err, storeerr.ErrPayment)
}

func TestParseWebhook_BadSignature(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	_, err := ParseWebhook(payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, storeerr.ErrPayment)
}

func TestIntentStatus_UnknownWithoutRedis(t *testing.T) {
	assert.Equal(t, "", IntentStatus(context.Background(), "pi_inconnu"))
}
