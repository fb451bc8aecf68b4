package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/willjrcristo/veoverse-checkout/internal/service"
)

// StripeWebhookHandler recebe os eventos da Stripe. Fica separado do checkout
// porque precisa do corpo cru para conferir a assinatura.
type StripeWebhookHandler struct {
	service CheckoutService
}

func NewStripeWebhookHandler(s CheckoutService) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		service: s,
	}
}

// @Summary      Webhook da Stripe
// @Description  Confere a assinatura do evento e atualiza pagamentos e assinaturas
// @Tags         webhook
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature  header    string  true  "Assinatura do evento"
// @Success      200               {object}  map[string]bool
// @Failure      400               {object}  map[string]string
// @Failure      500               {object}  map[string]string
// @Router       /api/webhook/stripe [post]
func (h *StripeWebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("Erro ao ler o corpo do webhook", "error", err)
		respondWithError(w, http.StatusServiceUnavailable, "Failed to read request body")
		return
	}

	signature := r.Header.Get("Stripe-Signature")

	err = h.service.HandleStripeWebhook(r.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, service.ErrWebhookStripe) {
			respondWithError(w, http.StatusBadRequest, "Webhook signature verification failed")
		} else {
			slog.Error("Erro ao processar webhook", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Webhook processing failed")
		}
		return
	}

	// 200 para a Stripe não reenviar o evento.
	respondWithJSON(w, http.StatusOK, map[string]bool{"received": true})
}
