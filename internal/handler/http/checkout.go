package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/willjrcristo/veoverse-checkout/internal/domain"
	"github.com/willjrcristo/veoverse-checkout/internal/service"
)

// CheckoutHandler atende as rotas que o formulário de checkout chama em /api.
type CheckoutHandler struct {
	service CheckoutService
}

// NewCheckoutHandler cria uma nova instância do CheckoutHandler.
func NewCheckoutHandler(s CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		service: s,
	}
}

// Routes define as rotas de checkout.
func (h *CheckoutHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/create-payment-intent", h.CreatePaymentIntent) // POST /api/create-payment-intent
	r.Post("/create-subscription", h.CreateSubscription)     // POST /api/create-subscription

	return r
}

// @Summary      Cria a cobrança do coaching
// @Description  Cria um PaymentIntent na Stripe só com o valor do coaching e devolve o client secret
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        pedido  body      domain.IntencaoPagamentoRequest  true  "Valores e dados do cliente"
// @Success      200     {object}  domain.IntencaoPagamentoResponse
// @Failure      400     {object}  map[string]string
// @Failure      500     {object}  map[string]string
// @Router       /api/create-payment-intent [post]
func (h *CheckoutHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req domain.IntencaoPagamentoRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	secret, err := h.service.CreateCoachingPaymentIntent(r.Context(), req)
	if err != nil {
		code, msg := erroCheckout(err)
		respondWithError(w, code, msg)
		return
	}

	respondWithJSON(w, http.StatusOK, domain.IntencaoPagamentoResponse{ClientSecret: secret})
}

// @Summary      Cria a assinatura do plano básico
// @Description  Cria cliente, preço e assinatura na Stripe e devolve o client secret da primeira fatura
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        pedido  body      domain.AssinaturaRequest  true  "Valor do plano e dados do cliente"
// @Success      200     {object}  domain.AssinaturaResponse
// @Failure      400     {object}  map[string]string
// @Failure      500     {object}  map[string]string
// @Router       /api/create-subscription [post]
func (h *CheckoutHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req domain.AssinaturaRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.service.CreateBasicSubscription(r.Context(), req)
	if err != nil {
		code, msg := erroCheckout(err)
		respondWithError(w, code, msg)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// erroCheckout traduz os erros do serviço para o status e a mensagem que o navegador mostra.
func erroCheckout(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValorInvalido):
		return http.StatusBadRequest, "Invalid amount"
	case errors.Is(err, service.ErrDadosClienteObrigatorios):
		return http.StatusBadRequest, "Customer information is required"
	case errors.Is(err, service.ErrSomenteCoaching):
		return http.StatusBadRequest, "This endpoint is only for coaching packages"
	case errors.Is(err, service.ErrValorAssinaturaInvalido):
		return http.StatusBadRequest, "Invalid subscription amount"
	case errors.Is(err, service.ErrUsuarioIndisponivel):
		return http.StatusInternalServerError, "Failed to process user information"
	case errors.Is(err, service.ErrClienteStripe):
		return http.StatusInternalServerError, "Failed to create customer"
	case errors.Is(err, service.ErrPrecoStripe):
		return http.StatusInternalServerError, "Failed to create pricing"
	}

	// Para intent e assinatura a mensagem da Stripe vai direto ao cliente, como "Your card was declined."
	var externo *service.ErroExterno
	if errors.As(err, &externo) && externo.Mensagem != "" {
		return http.StatusInternalServerError, externo.Mensagem
	}
	if errors.Is(err, service.ErrAssinaturaStripe) {
		return http.StatusInternalServerError, "Failed to create subscription"
	}
	if errors.Is(err, service.ErrIntencaoStripe) {
		return http.StatusInternalServerError, "Failed to create payment intent"
	}

	slog.Error("Erro inesperado no checkout", "error", err)
	return http.StatusInternalServerError, "Internal server error"
}

const maxBodyBytes = int64(65536) // Limite de 64KB

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}
