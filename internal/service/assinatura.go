package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/willjrcristo/veoverse-checkout/internal/domain"
)

// CreateBasicSubscription cria a assinatura mensal do plano básico.
//
// Diferente do coaching, não conseguir registrar o usuário aqui é fatal: o ID dele vai nos
// metadados do cliente e da assinatura na Stripe.
func (s *CheckoutService) CreateBasicSubscription(ctx context.Context, req domain.AssinaturaRequest) (*domain.AssinaturaResponse, error) {
	if req.Amount <= 0 || req.Amount != s.plano.Valor {
		return nil, ErrValorAssinaturaInvalido
	}
	if !req.Metadata.ClienteInformado() {
		return nil, ErrDadosClienteObrigatorios
	}

	usuario, err := s.findOrCreateUser(ctx, req.Metadata)
	if err != nil {
		slog.Error("Erro ao registrar usuário", "email", req.Metadata.CustomerEmail, "error", err)
		assinaturasCriadas.WithLabelValues("erro_usuario").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUsuarioIndisponivel, err)
	}

	customerID, err := s.gateway.FindOrCreateCustomer(ctx, usuario.Email, usuario.NomeCompleto(), map[string]string{
		"user_id":       usuario.ID,
		"referral_code": req.Metadata.ReferralCode,
	})
	if err != nil {
		slog.Error("Falha ao criar cliente na Stripe", "error", err)
		assinaturasCriadas.WithLabelValues("erro_stripe").Inc()
		return nil, erroStripe(ErrClienteStripe, err)
	}

	priceID, err := s.gateway.EnsurePlanPrice(ctx, s.plano)
	if err != nil {
		slog.Error("Falha ao preparar o preço do plano na Stripe", "error", err)
		assinaturasCriadas.WithLabelValues("erro_stripe").Inc()
		return nil, erroStripe(ErrPrecoStripe, err)
	}

	sub, err := s.gateway.CreateSubscription(ctx, customerID, priceID, map[string]string{
		"user_id":          usuario.ID,
		"package_type":     domain.PacoteBasic,
		"include_coaching": "false",
	})
	if err != nil {
		slog.Error("Falha ao criar assinatura na Stripe", "customer_id", customerID, "error", err)
		assinaturasCriadas.WithLabelValues("erro_stripe").Inc()
		return nil, erroStripe(ErrAssinaturaStripe, err)
	}

	if _, err := s.store.CreateSubscription(ctx, domain.Assinatura{
		UsuarioID: usuario.ID,
		Pacote:    domain.PacoteBasic,
		Status:    domain.AssinaturaProvisoria,
	}); err != nil {
		slog.Error("Erro ao gravar assinatura provisória", "user_id", usuario.ID, "subscription_id", sub.ID, "error", err)
		assinaturasCriadas.WithLabelValues("sem_registro").Inc()
	} else {
		slog.Info("Assinatura criada", "email", usuario.Email, "subscription_id", sub.ID)
		assinaturasCriadas.WithLabelValues("ok").Inc()
	}

	return &domain.AssinaturaResponse{SubscriptionID: sub.ID, ClientSecret: sub.ClientSecret}, nil
}
