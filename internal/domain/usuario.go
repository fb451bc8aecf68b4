package domain

import (
	"strings"
	"time"
)

// Usuario é o comprador. O email é único e é a chave de busca usada no checkout.
type Usuario struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Nome      string `json:"first_name"`
	Sobrenome string `json:"last_name"`

	// Código de indicação informado no checkout (opcional).
	CodigoIndicacao *string `json:"referral_code,omitempty"`

	CriadoEm     time.Time `json:"created_at"`
	AtualizadoEm time.Time `json:"updated_at"`
}

// NomeCompleto junta nome e sobrenome como o cliente digitou.
func (u Usuario) NomeCompleto() string {
	return strings.TrimSpace(u.Nome + " " + u.Sobrenome)
}

// DividirNome separa "Maria da Silva" em "Maria" e "da Silva".
// O primeiro termo vira o nome e o restante o sobrenome (que pode ficar vazio).
func DividirNome(nomeCompleto string) (nome, sobrenome string) {
	partes := strings.Fields(nomeCompleto)
	if len(partes) == 0 {
		return "", ""
	}
	return partes[0], strings.Join(partes[1:], " ")
}
