package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/willjrcristo/veoverse-checkout/internal/domain"
	"github.com/willjrcristo/veoverse-checkout/internal/gateway"
	"github.com/willjrcristo/veoverse-checkout/internal/repository"
)

// Erros de negócio do checkout. O handler traduz cada um para o status HTTP adequado.
var (
	ErrValorInvalido            = errors.New("valor inválido")
	ErrDadosClienteObrigatorios = errors.New("email e nome do cliente são obrigatórios")
	ErrSomenteCoaching          = errors.New("endpoint exclusivo para pacotes com coaching")
	ErrValorAssinaturaInvalido  = errors.New("valor da assinatura inválido")
	ErrUsuarioIndisponivel      = errors.New("não foi possível registrar o usuário")
	ErrUsuarioNaoEncontrado     = errors.New("usuário não encontrado")
	ErrIntencaoStripe           = errors.New("erro ao criar payment intent na stripe")
	ErrClienteStripe            = errors.New("erro ao criar cliente na stripe")
	ErrPrecoStripe              = errors.New("erro ao criar preço na stripe")
	ErrAssinaturaStripe         = errors.New("erro ao criar assinatura na stripe")
	ErrWebhookStripe            = errors.New("erro ao processar webhook da stripe")
)

// ErroExterno envolve uma falha da Stripe junto com a mensagem que pode ser mostrada ao cliente.
type ErroExterno struct {
	Tipo     error
	Mensagem string
	Err      error
}

func (e *ErroExterno) Error() string {
	return fmt.Sprintf("%v: %v", e.Tipo, e.Err)
}

func (e *ErroExterno) Unwrap() []error {
	return []error{e.Tipo, e.Err}
}

func erroStripe(tipo, err error) *ErroExterno {
	return &ErroExterno{Tipo: tipo, Mensagem: gateway.MensagemStripe(err), Err: err}
}

// PaymentGateway é o que o serviço precisa da Stripe. *gateway.StripeGateway implementa.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, nova gateway.NovaIntencao) (*gateway.Intencao, error)
	FindOrCreateCustomer(ctx context.Context, email, nome string, metadados map[string]string) (string, error)
	EnsurePlanPrice(ctx context.Context, plano domain.Plano) (string, error)
	CreateSubscription(ctx context.Context, customerID, priceID string, metadados map[string]string) (*gateway.AssinaturaExterna, error)
}

// Opcoes reúne a configuração do checkout.
type Opcoes struct {
	// PrecoBasico é o preço fixo do plano mensal, em unidades da moeda.
	PrecoBasico float64

	// PrecoCoaching é o valor anunciado do coaching. O valor cobrado continua sendo o do pedido.
	PrecoCoaching float64

	Moeda         string
	WebhookSecret string

	// Agora permite fixar o relógio nos testes.
	Agora func() time.Time
}

// CheckoutService encapsula a lógica de negócio do checkout, das assinaturas e do webhook.
type CheckoutService struct {
	store   repository.Store
	gateway PaymentGateway

	plano         domain.Plano
	precoCoaching float64
	moeda         string
	webhookSecret string
	agora         func() time.Time
}

// NewCheckoutService cria uma nova instância do CheckoutService.
func NewCheckoutService(store repository.Store, gw PaymentGateway, opcoes Opcoes) *CheckoutService {
	moeda := strings.ToLower(opcoes.Moeda)
	if moeda == "" {
		moeda = "usd"
	}
	agora := opcoes.Agora
	if agora == nil {
		agora = func() time.Time { return time.Now().UTC() }
	}
	return &CheckoutService{
		store:         store,
		gateway:       gw,
		plano:         domain.PlanoBasicoMensal(opcoes.PrecoBasico, moeda),
		precoCoaching: opcoes.PrecoCoaching,
		moeda:         moeda,
		webhookSecret: opcoes.WebhookSecret,
		agora:         agora,
	}
}

// GetUserByID busca um usuário pelo ID.
func (s *CheckoutService) GetUserByID(ctx context.Context, id string) (*domain.Usuario, error) {
	usuario, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if usuario == nil {
		return nil, ErrUsuarioNaoEncontrado
	}
	return usuario, nil
}

// ListUserSubscriptions lista as assinaturas ativas e ainda dentro da validade.
func (s *CheckoutService) ListUserSubscriptions(ctx context.Context, usuarioID string) ([]domain.Assinatura, error) {
	if _, err := s.GetUserByID(ctx, usuarioID); err != nil {
		return nil, err
	}
	ativas, err := s.store.ListSubscriptions(ctx, usuarioID, domain.AssinaturaAtiva)
	if err != nil {
		return nil, err
	}

	agora := s.agora()
	vigentes := ativas[:0]
	for _, a := range ativas {
		if a.ExpiraEm != nil && !a.ExpiraEm.After(agora) {
			continue
		}
		vigentes = append(vigentes, a)
	}
	return vigentes, nil
}

// findOrCreateUser busca o usuário pelo email e cria se ainda não existir.
// Se outra requisição criar o mesmo email no meio do caminho, buscamos o registro que ela gravou.
func (s *CheckoutService) findOrCreateUser(ctx context.Context, m domain.MetadadosCheckout) (*domain.Usuario, error) {
	email := strings.TrimSpace(m.CustomerEmail)

	usuario, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if usuario != nil {
		return usuario, nil
	}

	nome, sobrenome := domain.DividirNome(m.CustomerName)
	novo := domain.Usuario{Email: email, Nome: nome, Sobrenome: sobrenome}
	if m.ReferralCode != "" {
		codigo := m.ReferralCode
		novo.CodigoIndicacao = &codigo
	}

	usuario, err = s.store.CreateUser(ctx, novo)
	if errors.Is(err, repository.ErrEmailDuplicado) {
		slog.Info("Usuário já existe, buscando o registro existente", "email", email)
		usuario, err = s.store.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if usuario == nil {
			return nil, errors.New("usuário existe mas não pôde ser recuperado")
		}
		return usuario, nil
	}
	if err != nil {
		return nil, err
	}

	slog.Info("Usuário criado", "user_id", usuario.ID, "email", email)
	return usuario, nil
}

// formatarValor escreve 25 como "25" e 27.5 como "27.5".
func formatarValor(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
