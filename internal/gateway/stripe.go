package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/willjrcristo/veoverse-checkout/internal/domain"
)

// ErrSemPaymentIntent indica que a Stripe devolveu a assinatura sem o pagamento da primeira fatura.
var ErrSemPaymentIntent = errors.New("assinatura criada sem payment intent na fatura")

// NovaIntencao são os dados da cobrança avulsa a ser criada.
type NovaIntencao struct {
	ValorCentavos int64
	Moeda         string
	Descricao     string
	Metadados     map[string]string
}

// Intencao é o PaymentIntent criado na Stripe.
type Intencao struct {
	ID           string
	ClientSecret string
}

// AssinaturaExterna é a assinatura criada na Stripe.
type AssinaturaExterna struct {
	ID           string
	ClientSecret string
}

// StripeGateway fala com a API da Stripe usando um cliente próprio (sem a chave global do pacote stripe).
// IDs de clientes e preços ficam em cache para não repetir buscas a cada checkout.
type StripeGateway struct {
	api   *client.API
	cache *cache.Cache
}

// NewStripeGateway cria o gateway. apiURL vazio usa a API real da Stripe;
// qualquer outro valor aponta para um servidor compatível (stripe-mock, testes).
func NewStripeGateway(secretKey, apiURL string) *StripeGateway {
	var backends *stripe.Backends
	if apiURL != "" {
		backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:               stripe.String(apiURL),
			MaxNetworkRetries: stripe.Int64(0),
			LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
		})
		backends = &stripe.Backends{API: backend, Connect: backend, Uploads: backend}
	}

	return &StripeGateway{
		api:   client.New(secretKey, backends),
		cache: cache.New(30*time.Minute, time.Hour),
	}
}

// CreatePaymentIntent cria a cobrança avulsa com métodos de pagamento automáticos.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, nova NovaIntencao) (*Intencao, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(nova.ValorCentavos),
		Currency:    stripe.String(nova.Moeda),
		Description: stripe.String(nova.Descricao),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range nova.Metadados {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, err
	}
	return &Intencao{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// FindOrCreateCustomer busca o cliente da Stripe pelo email e cria um novo se não existir.
func (g *StripeGateway) FindOrCreateCustomer(ctx context.Context, email, nome string, metadados map[string]string) (string, error) {
	chave := "customer:" + email
	if id, ok := g.cache.Get(chave); ok {
		return id.(string), nil
	}

	listParams := &stripe.CustomerListParams{Email: stripe.String(email)}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)

	iter := g.api.Customers.List(listParams)
	for iter.Next() {
		c := iter.Customer()
		g.cache.Set(chave, c.ID, cache.DefaultExpiration)
		return c.ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", err
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(nome),
	}
	params.Context = ctx
	for k, v := range metadados {
		params.AddMetadata(k, v)
	}

	c, err := g.api.Customers.New(params)
	if err != nil {
		return "", err
	}
	slog.Info("Cliente criado na Stripe", "customer_id", c.ID)
	g.cache.Set(chave, c.ID, cache.DefaultExpiration)
	return c.ID, nil
}

// EnsurePlanPrice devolve o preço recorrente do plano, criando produto e preço só na primeira vez.
// O preço é localizado pela lookup_key, que é a chave estável do plano.
func (g *StripeGateway) EnsurePlanPrice(ctx context.Context, plano domain.Plano) (string, error) {
	chave := "price:" + plano.Chave
	if id, ok := g.cache.Get(chave); ok {
		return id.(string), nil
	}

	listParams := &stripe.PriceListParams{
		LookupKeys: stripe.StringSlice([]string{plano.Chave}),
		Active:     stripe.Bool(true),
	}
	listParams.Context = ctx

	iter := g.api.Prices.List(listParams)
	for iter.Next() {
		p := iter.Price()
		if p.UnitAmount != plano.ValorCentavos() || string(p.Currency) != plano.Moeda {
			// Preço antigo com outro valor: criamos um novo e transferimos a lookup_key.
			slog.Warn("Preço do plano mudou, criando um novo", "lookup_key", plano.Chave, "price_id", p.ID)
			break
		}
		g.cache.Set(chave, p.ID, cache.NoExpiration)
		return p.ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", err
	}

	prodParams := &stripe.ProductParams{
		Name:        stripe.String(plano.Nome),
		Description: stripe.String(plano.Descricao),
	}
	prodParams.Context = ctx
	produto, err := g.api.Products.New(prodParams)
	if err != nil {
		return "", fmt.Errorf("erro ao criar produto: %w", err)
	}

	priceParams := &stripe.PriceParams{
		Currency:          stripe.String(plano.Moeda),
		UnitAmount:        stripe.Int64(plano.ValorCentavos()),
		Product:           stripe.String(produto.ID),
		LookupKey:         stripe.String(plano.Chave),
		TransferLookupKey: stripe.Bool(true),
		Recurring: &stripe.PriceRecurringParams{
			Interval: stripe.String(plano.Intervalo),
		},
	}
	priceParams.Context = ctx
	preco, err := g.api.Prices.New(priceParams)
	if err != nil {
		return "", fmt.Errorf("erro ao criar preço: %w", err)
	}

	slog.Info("Plano criado na Stripe", "product_id", produto.ID, "price_id", preco.ID, "lookup_key", plano.Chave)
	g.cache.Set(chave, preco.ID, cache.NoExpiration)
	return preco.ID, nil
}

// CreateSubscription cria a assinatura incompleta e devolve o client secret do pagamento da primeira fatura.
func (g *StripeGateway) CreateSubscription(ctx context.Context, customerID, priceID string, metadados map[string]string) (*AssinaturaExterna, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.payment_intent")
	for k, v := range metadados {
		params.AddMetadata(k, v)
	}

	sub, err := g.api.Subscriptions.New(params)
	if err != nil {
		return nil, err
	}
	if sub.LatestInvoice == nil || sub.LatestInvoice.PaymentIntent == nil {
		return nil, fmt.Errorf("assinatura %s: %w", sub.ID, ErrSemPaymentIntent)
	}
	return &AssinaturaExterna{ID: sub.ID, ClientSecret: sub.LatestInvoice.PaymentIntent.ClientSecret}, nil
}

// MensagemStripe extrai a mensagem legível de um erro da Stripe.
func MensagemStripe(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return err.Error()
}
