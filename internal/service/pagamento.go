package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/willjrcristo/veoverse-checkout/internal/domain"
	"github.com/willjrcristo/veoverse-checkout/internal/gateway"
)

// CreateCoachingPaymentIntent cria a cobrança avulsa do coaching e devolve o client secret.
//
// Só o valor do coaching é cobrado aqui; a parte recorrente é tratada pela assinatura.
// Falhas ao gravar usuário, pagamento ou assinatura provisória são só registradas em log:
// o pagamento na Stripe segue valendo e o webhook reconcilia depois.
func (s *CheckoutService) CreateCoachingPaymentIntent(ctx context.Context, req domain.IntencaoPagamentoRequest) (string, error) {
	if req.Amount <= 0 {
		return "", ErrValorInvalido
	}
	if !req.Metadata.ClienteInformado() {
		return "", ErrDadosClienteObrigatorios
	}
	if !req.Metadata.QuerCoaching() || req.CoachingAmount <= 0 {
		return "", ErrSomenteCoaching
	}

	if s.precoCoaching > 0 && req.CoachingAmount != s.precoCoaching {
		slog.Warn("Valor do coaching diferente do anunciado", "enviado", req.CoachingAmount, "anunciado", s.precoCoaching)
	}

	moeda := strings.ToLower(req.Currency)
	if moeda == "" {
		moeda = s.moeda
	}
	valor := domain.ParaCentavos(req.CoachingAmount)

	metadados := req.Metadata.Mapa()
	metadados["coaching_fee"] = "true"
	metadados["subscription_amount"] = formatarValor(s.plano.Valor)

	intencao, err := s.gateway.CreatePaymentIntent(ctx, gateway.NovaIntencao{
		ValorCentavos: valor,
		Moeda:         moeda,
		Descricao:     fmt.Sprintf("VEO VERSE - Premium Coaching Add-on (%s)", formatarValor(req.CoachingAmount)),
		Metadados:     metadados,
	})
	if err != nil {
		slog.Error("Falha ao criar payment intent na Stripe", "error", err)
		intencoesCriadas.WithLabelValues("erro_stripe").Inc()
		return "", erroStripe(ErrIntencaoStripe, err)
	}

	if err := s.registrarIntencao(ctx, req.Metadata, intencao.ID, valor, moeda, metadados); err != nil {
		slog.Error("Erro ao gravar dados do pagamento", "payment_intent", intencao.ID, "error", err)
		intencoesCriadas.WithLabelValues("sem_registro").Inc()
	} else {
		intencoesCriadas.WithLabelValues("ok").Inc()
	}

	return intencao.ClientSecret, nil
}

// registrarIntencao grava usuário, pagamento pendente e a assinatura premium provisória.
func (s *CheckoutService) registrarIntencao(ctx context.Context, m domain.MetadadosCheckout, intentID string, valor int64, moeda string, metadados map[string]string) error {
	usuario, err := s.findOrCreateUser(ctx, m)
	if err != nil {
		return fmt.Errorf("usuário: %w", err)
	}

	registro := make(map[string]string, len(metadados)+1)
	for k, v := range metadados {
		registro[k] = v
	}
	registro["stripe_payment_intent_id"] = intentID

	if _, err := s.store.CreatePayment(ctx, domain.Pagamento{
		UsuarioID:             usuario.ID,
		StripePaymentIntentID: intentID,
		Valor:                 valor,
		Moeda:                 moeda,
		Status:                domain.PagamentoPendente,
		Pacote:                domain.PacoteCoachingAddon,
		IncluiCoaching:        true,
		Metadados:             registro,
	}); err != nil {
		return fmt.Errorf("pagamento: %w", err)
	}

	if _, err := s.store.CreateSubscription(ctx, domain.Assinatura{
		UsuarioID:      usuario.ID,
		Pacote:         domain.PacotePremium,
		IncluiCoaching: true,
		Status:         domain.AssinaturaProvisoria,
	}); err != nil {
		return fmt.Errorf("assinatura provisória: %w", err)
	}

	slog.Info("Pagamento registrado", "email", usuario.Email, "payment_intent", intentID)
	return nil
}
