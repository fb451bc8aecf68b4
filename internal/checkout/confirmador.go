package checkout

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/willjrcristo/veoverse-checkout/internal/gateway"
)

// Cobranca são os dados de cobrança enviados junto com o cartão.
type Cobranca struct {
	Nome  string
	Email string
}

// Confirmador conclui o pagamento direto com o processador, usando o client secret.
// Devolve o status final do payment intent.
type Confirmador interface {
	Confirmar(ctx context.Context, clientSecret, cartao string, cobranca Cobranca) (string, error)
}

// ErrClientSecretInvalido indica um client secret fora do formato pi_xxx_secret_yyy.
var ErrClientSecretInvalido = errors.New("client secret inválido")

// ErroPagamento carrega a mensagem que o processador quer mostrar ao cliente.
type ErroPagamento struct {
	Mensagem string
	Err      error
}

func (e *ErroPagamento) Error() string { return e.Mensagem }
func (e *ErroPagamento) Unwrap() error { return e.Err }

// ConfirmadorStripe faz a confirmação com a chave publicável, como o navegador faria.
// cartao é um token de cartão (ex: tok_visa) gerado pelo formulário.
type ConfirmadorStripe struct {
	api *client.API
}

// NewConfirmadorStripe cria o confirmador. apiURL vazio usa a API real.
func NewConfirmadorStripe(chavePublicavel, apiURL string) *ConfirmadorStripe {
	var backends *stripe.Backends
	if apiURL != "" {
		backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:               stripe.String(apiURL),
			MaxNetworkRetries: stripe.Int64(0),
			LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
		})
		backends = &stripe.Backends{API: backend, Connect: backend, Uploads: backend}
	}
	return &ConfirmadorStripe{api: client.New(chavePublicavel, backends)}
}

func (c *ConfirmadorStripe) Confirmar(ctx context.Context, clientSecret, cartao string, cobranca Cobranca) (string, error) {
	intentID, err := IntencaoDoSecret(clientSecret)
	if err != nil {
		return "", err
	}

	pmParams := &stripe.PaymentMethodParams{
		Type: stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card: &stripe.PaymentMethodCardParams{Token: stripe.String(cartao)},
		BillingDetails: &stripe.PaymentMethodBillingDetailsParams{
			Name:  stripe.String(cobranca.Nome),
			Email: stripe.String(cobranca.Email),
		},
	}
	pmParams.Context = ctx
	pm, err := c.api.PaymentMethods.New(pmParams)
	if err != nil {
		return "", &ErroPagamento{Mensagem: gateway.MensagemStripe(err), Err: err}
	}

	params := &stripe.PaymentIntentConfirmParams{PaymentMethod: stripe.String(pm.ID)}
	params.Context = ctx
	// Com chave publicável a Stripe exige o client secret na confirmação.
	params.AddExtra("client_secret", clientSecret)
	pi, err := c.api.PaymentIntents.Confirm(intentID, params)
	if err != nil {
		return "", &ErroPagamento{Mensagem: gateway.MensagemStripe(err), Err: err}
	}
	return string(pi.Status), nil
}

// IntencaoDoSecret extrai o ID do payment intent de um client secret.
func IntencaoDoSecret(clientSecret string) (string, error) {
	id, _, ok := strings.Cut(clientSecret, "_secret_")
	if !ok || !strings.HasPrefix(id, "pi_") {
		return "", ErrClientSecretInvalido
	}
	return id, nil
}
