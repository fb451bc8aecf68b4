package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/willjrcristo/veoverse-checkout/internal/domain"
	"github.com/willjrcristo/veoverse-checkout/internal/service"
)

// CheckoutService é o que os handlers precisam da camada de serviço.
// Depender da interface deixa os testes trocarem o serviço por um mock.
type CheckoutService interface {
	CreateCoachingPaymentIntent(ctx context.Context, req domain.IntencaoPagamentoRequest) (string, error)
	CreateBasicSubscription(ctx context.Context, req domain.AssinaturaRequest) (*domain.AssinaturaResponse, error)
	HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error
	GetUserByID(ctx context.Context, id string) (*domain.Usuario, error)
	ListUserSubscriptions(ctx context.Context, usuarioID string) ([]domain.Assinatura, error)
}

// UsuarioHandler expõe a consulta de usuários e das assinaturas ativas em /usuarios.
type UsuarioHandler struct {
	service CheckoutService
}

// NewUsuarioHandler cria uma nova instância do UsuarioHandler.
func NewUsuarioHandler(s CheckoutService) *UsuarioHandler {
	return &UsuarioHandler{
		service: s,
	}
}

// Routes define as rotas de /usuarios.
func (h *UsuarioHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{id}", h.GetUserByID)                      // GET /usuarios/{id}
	r.Get("/{id}/assinaturas", h.ListUserSubscriptions) // GET /usuarios/{id}/assinaturas

	return r
}

// @Summary      Busca um usuário por ID
// @Description  Retorna os dados de um usuário criado durante o checkout
// @Tags         usuarios
// @Produce      json
// @Param        id   path      string  true  "ID do Usuário (UUID)"
// @Success      200  {object}  domain.Usuario
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /usuarios/{id} [get]
func (h *UsuarioHandler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	usuario, err := h.service.GetUserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUsuarioNaoEncontrado) {
			respondWithError(w, http.StatusNotFound, "User not found")
		} else {
			slog.Error("Erro ao buscar usuário", "user_id", id, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to fetch user")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, usuario)
}

// @Summary      Lista as assinaturas ativas
// @Description  Retorna as assinaturas confirmadas pelo webhook da Stripe
// @Tags         usuarios
// @Produce      json
// @Param        id   path      string  true  "ID do Usuário (UUID)"
// @Success      200  {array}   domain.Assinatura
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /usuarios/{id}/assinaturas [get]
func (h *UsuarioHandler) ListUserSubscriptions(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	assinaturas, err := h.service.ListUserSubscriptions(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUsuarioNaoEncontrado) {
			respondWithError(w, http.StatusNotFound, "User not found")
		} else {
			slog.Error("Erro ao listar assinaturas", "user_id", id, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to fetch subscriptions")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, assinaturas)
}

// parseID valida o {id} da rota. IDs são UUIDs gerados no cadastro.
func parseID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return "", false
	}
	return id.String(), true
}

// --- FUNÇÕES AUXILIARES ---

func respondWithError(w http.ResponseWriter, code int, message string) {
	slog.Error("API Error", "code", code, "message", message)
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
