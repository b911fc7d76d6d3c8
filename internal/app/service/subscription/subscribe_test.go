package subscription

import (
	"testing"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stretchr/testify/assert"
)

func TestPaymentClientSecret(t *testing.T) {
	tests := []struct {
		name string
		sub  *stripe.Subscription
		want string
	}{
		{name: "nil subscription", sub: nil, want: ""},
		{name: "no invoice", sub: &stripe.Subscription{}, want: ""},
		{
			name: "invoice without intent",
			sub:  &stripe.Subscription{LatestInvoice: &stripe.Invoice{}},
			want: "",
		},
		{
			name: "payable intent",
			sub: &stripe.Subscription{LatestInvoice: &stripe.Invoice{
				PaymentIntent: &stripe.PaymentIntent{ClientSecret: "pi_secret_abc"},
			}},
			want: "pi_secret_abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, paymentClientSecret(tt.sub))
		})
	}
}
