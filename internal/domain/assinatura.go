package domain

import "time"

// Pacotes vendidos no checkout.
const (
	PacoteBasic   = "basic"
	PacotePremium = "premium"
)

// Status de uma assinatura.
//
// Uma assinatura nasce "provisional" quando o checkout é iniciado e só vira
// "active" quando o webhook da Stripe confirma o pagamento. Assim o webhook é a
// única fonte da verdade sobre o acesso do usuário.
const (
	AssinaturaProvisoria = "provisional"
	AssinaturaAtiva      = "active"
	AssinaturaCancelada  = "canceled"
)

// Assinatura é um direito de acesso concedido ao usuário.
type Assinatura struct {
	ID             string     `json:"id"`
	UsuarioID      string     `json:"user_id"`
	Pacote         string     `json:"package_type"`
	IncluiCoaching bool       `json:"include_coaching"`
	Status         string     `json:"status"`
	ExpiraEm       *time.Time `json:"expires_at,omitempty"`
	CriadoEm       time.Time  `json:"created_at"`
	AtualizadoEm   time.Time  `json:"updated_at"`
}

// PacoteDoCoaching devolve o pacote correspondente à flag de coaching.
func PacoteDoCoaching(incluiCoaching bool) string {
	if incluiCoaching {
		return PacotePremium
	}
	return PacoteBasic
}
