package shopify

import (
	"errors"
	"net/http"
	"testing"

	"storebridge-sync-core/internal/domain"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil passes through", nil, nil},
		{"401 is authentication", goshopify.ResponseError{Status: http.StatusUnauthorized}, domain.ErrAuthenticationFailed},
		{"403 is authentication", goshopify.ResponseError{Status: http.StatusForbidden}, domain.ErrAuthenticationFailed},
		{"404 is remote not found", goshopify.ResponseError{Status: http.StatusNotFound}, domain.ErrRemoteNotFound},
		{"422 is validation", goshopify.ResponseError{Status: http.StatusUnprocessableEntity}, domain.ErrValidation},
		{"500 is transient", goshopify.ResponseError{Status: http.StatusInternalServerError}, domain.ErrTransientUpstream},
		{"503 is transient", goshopify.ResponseError{Status: http.StatusServiceUnavailable}, domain.ErrTransientUpstream},
		{"transport failure is transient", errors.New("connection reset by peer"), domain.ErrTransientUpstream},
		{
			"429 is rate limited",
			goshopify.RateLimitError{ResponseError: goshopify.ResponseError{Status: http.StatusTooManyRequests}},
			domain.ErrRateLimitExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError("op", tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			require.Error(t, got)
			assert.True(t, errors.Is(got, tt.want), "got %v, want wrapped %v", got, tt.want)
		})
	}
}

func TestOrderToEvent_RoundTrip(t *testing.T) {
	order := &goshopify.Order{
		Id:    450789469,
		Name:  "#1001",
		Email: "jon@example.com",
	}

	event, err := orderToEvent(order)
	require.NoError(t, err)
	assert.Equal(t, int64(450789469), event.ID)
	assert.Equal(t, "450789469", event.ExternalID())
	assert.Equal(t, "#1001", event.Name)
	assert.Equal(t, "jon@example.com", event.Email)
}

func TestToPortWebhook(t *testing.T) {
	webhook := &goshopify.Webhook{
		Id:      4759306,
		Topic:   "orders/create",
		Address: "https://sync.example.com/webhooks/shopify",
	}

	ported, err := toPortWebhook(webhook)
	require.NoError(t, err)
	assert.Equal(t, int64(4759306), ported.ID)
	assert.Equal(t, "orders/create", ported.Topic)
	assert.Equal(t, "https://sync.example.com/webhooks/shopify", ported.Address)
}
