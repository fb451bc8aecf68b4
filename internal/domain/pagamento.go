package domain

import "time"

// Status possíveis de um pagamento avulso.
const (
	PagamentoPendente = "pending"
	PagamentoAprovado = "succeeded"
	PagamentoRecusado = "failed"
)

// PacoteCoachingAddon identifica a cobrança avulsa do coaching.
const PacoteCoachingAddon = "coaching_addon"

// Pagamento registra uma tentativa de cobrança avulsa feita na Stripe.
// O StripePaymentIntentID é único e é a chave usada pelo webhook para achar a linha.
type Pagamento struct {
	ID                    string `json:"id"`
	UsuarioID             string `json:"user_id"`
	StripePaymentIntentID string `json:"stripe_payment_intent_id"`

	// Valor em centavos (unidade mínima da moeda).
	Valor  int64  `json:"amount"`
	Moeda  string `json:"currency"`
	Status string `json:"status"`

	Pacote         string            `json:"package_type"`
	IncluiCoaching bool              `json:"include_coaching"`
	Metadados      map[string]string `json:"metadata,omitempty"`

	CriadoEm     time.Time `json:"created_at"`
	AtualizadoEm time.Time `json:"updated_at"`
}

// StatusPagamentoValido diz se o status pode ser gravado na tabela de pagamentos.
func StatusPagamentoValido(status string) bool {
	switch status {
	case PagamentoPendente, PagamentoAprovado, PagamentoRecusado:
		return true
	}
	return false
}
