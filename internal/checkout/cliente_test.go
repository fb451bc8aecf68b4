package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willjrcristo/veoverse-checkout/internal/domain"
)

func TestClienteHTTP(t *testing.T) {
	ctx := context.Background()

	t.Run("sucesso - cria intenção e assinatura", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			w.Header().Set("Content-Type", "application/json")

			switch r.URL.Path {
			case "/api/create-payment-intent":
				var req domain.IntencaoPagamentoRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, 275.0, req.CoachingAmount)
				w.Write([]byte(`{"clientSecret":"pi_1_secret_a"}`))
			case "/api/create-subscription":
				w.Write([]byte(`{"subscriptionId":"sub_1","clientSecret":"pi_2_secret_b"}`))
			default:
				http.NotFound(w, r)
			}
		}))
		defer srv.Close()

		c := NewClienteHTTP(srv.URL + "/")

		secret, err := c.CriarIntencao(ctx, domain.IntencaoPagamentoRequest{Amount: 300, CoachingAmount: 275})
		require.NoError(t, err)
		assert.Equal(t, "pi_1_secret_a", secret)

		resp, err := c.CriarAssinatura(ctx, domain.AssinaturaRequest{Amount: 25})
		require.NoError(t, err)
		assert.Equal(t, "sub_1", resp.SubscriptionID)
		assert.Equal(t, "pi_2_secret_b", resp.ClientSecret)
	})

	t.Run("erro - mensagem do servidor vira ErroAPI", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"Invalid amount"}`))
		}))
		defer srv.Close()

		_, err := NewClienteHTTP(srv.URL).CriarIntencao(ctx, domain.IntencaoPagamentoRequest{})
		var apiErr *ErroAPI
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
		assert.Equal(t, "Invalid amount", apiErr.Mensagem)
	})

	t.Run("erro - corpo sem JSON", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("bad gateway"))
		}))
		defer srv.Close()

		_, err := NewClienteHTTP(srv.URL).CriarAssinatura(ctx, domain.AssinaturaRequest{})
		var apiErr *ErroAPI
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "Unknown error", apiErr.Mensagem)
	})
}
