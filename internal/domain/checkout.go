package domain

import (
	"math"
	"strings"
)

// MetadadosCheckout são os campos que o formulário de checkout envia junto do valor.
// Todos chegam como string, inclusive a flag de coaching ("true"/"false").
type MetadadosCheckout struct {
	CustomerEmail   string `json:"customerEmail"`
	CustomerName    string `json:"customerName"`
	IncludeCoaching string `json:"includeCoaching,omitempty"`
	ReferralCode    string `json:"referralCode,omitempty"`
	Package         string `json:"package,omitempty"`
}

// ClienteInformado diz se email e nome do cliente vieram preenchidos.
func (m MetadadosCheckout) ClienteInformado() bool {
	return strings.TrimSpace(m.CustomerEmail) != "" && strings.TrimSpace(m.CustomerName) != ""
}

// QuerCoaching interpreta a flag textual de coaching.
func (m MetadadosCheckout) QuerCoaching() bool {
	return m.IncludeCoaching == "true"
}

// Mapa converte os metadados para o formato chave/valor usado na Stripe e no banco.
// Campos vazios são omitidos.
func (m MetadadosCheckout) Mapa() map[string]string {
	out := map[string]string{
		"customerEmail": m.CustomerEmail,
		"customerName":  m.CustomerName,
	}
	if m.IncludeCoaching != "" {
		out["includeCoaching"] = m.IncludeCoaching
	}
	if m.ReferralCode != "" {
		out["referralCode"] = m.ReferralCode
	}
	if m.Package != "" {
		out["package"] = m.Package
	}
	return out
}

// IntencaoPagamentoRequest é o corpo de POST /api/create-payment-intent.
type IntencaoPagamentoRequest struct {
	Amount         float64           `json:"amount"`
	CoachingAmount float64           `json:"coachingAmount,omitempty"`
	Currency       string            `json:"currency,omitempty"`
	Metadata       MetadadosCheckout `json:"metadata"`
}

// IntencaoPagamentoResponse devolve o segredo que o navegador usa para confirmar o pagamento.
type IntencaoPagamentoResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// AssinaturaRequest é o corpo de POST /api/create-subscription.
type AssinaturaRequest struct {
	Amount         float64           `json:"amount"`
	CoachingAmount float64           `json:"coachingAmount,omitempty"`
	Metadata       MetadadosCheckout `json:"metadata"`
}

// AssinaturaResponse devolve o ID da assinatura na Stripe e o segredo do pagamento da primeira fatura.
type AssinaturaResponse struct {
	SubscriptionID string `json:"subscriptionId"`
	ClientSecret   string `json:"clientSecret"`
}

// Plano descreve o produto recorrente vendido na Stripe.
// A Chave é estável e serve de lookup_key do preço, evitando criar produto e preço a cada checkout.
type Plano struct {
	Chave     string
	Nome      string
	Descricao string
	Valor     float64
	Moeda     string
	Intervalo string
}

// ValorCentavos converte o valor do plano para a unidade mínima da moeda.
func (p Plano) ValorCentavos() int64 {
	return ParaCentavos(p.Valor)
}

// PlanoBasicoMensal monta o plano básico com o preço configurado.
func PlanoBasicoMensal(valor float64, moeda string) Plano {
	return Plano{
		Chave:     "veoverse_basic_monthly",
		Nome:      "VEO VERSE - AI Prompt Generator",
		Descricao: "Monthly subscription to AI Prompt Generator with Discord community access",
		Valor:     valor,
		Moeda:     moeda,
		Intervalo: "month",
	}
}

// ParaCentavos arredonda um valor em unidades da moeda para centavos.
func ParaCentavos(valor float64) int64 {
	return int64(math.Round(valor * 100))
}
