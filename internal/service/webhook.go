package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/willjrcristo/veoverse-checkout/internal/domain"
	"github.com/willjrcristo/veoverse-checkout/internal/repository"
)

// HandleStripeWebhook processa os eventos recebidos da Stripe.
//
// Depois que a assinatura confere, falhas na atualização do banco são apenas registradas:
// devolver erro faria a Stripe reenviar um pagamento que ela já considera concluído.
// Só assinatura inválida (ErrWebhookStripe) e payload ilegível viram erro para o handler.
func (s *CheckoutService) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error {
	if signature == "" || s.webhookSecret == "" {
		slog.Error("Webhook sem assinatura ou segredo não configurado")
		eventosWebhook.WithLabelValues("desconhecido", "rejeitado").Inc()
		return ErrWebhookStripe
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		slog.Error("Erro ao verificar a assinatura do webhook", "error", err)
		eventosWebhook.WithLabelValues("desconhecido", "rejeitado").Inc()
		return ErrWebhookStripe
	}

	tipo := string(event.Type)

	var tratar func(context.Context)
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			eventosWebhook.WithLabelValues(tipo, "erro").Inc()
			return fmt.Errorf("payment intent ilegível no evento %s: %w", event.ID, err)
		}
		if event.Type == stripe.EventTypePaymentIntentSucceeded {
			tratar = func(ctx context.Context) { s.pagamentoAprovado(ctx, &pi) }
		} else {
			tratar = func(ctx context.Context) { s.pagamentoRecusado(ctx, &pi) }
		}

	case stripe.EventTypeInvoicePaymentSucceeded:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			eventosWebhook.WithLabelValues(tipo, "erro").Inc()
			return fmt.Errorf("fatura ilegível no evento %s: %w", event.ID, err)
		}
		tratar = func(ctx context.Context) { s.faturaPaga(ctx, &inv) }

	case stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			eventosWebhook.WithLabelValues(tipo, "erro").Inc()
			return fmt.Errorf("assinatura ilegível no evento %s: %w", event.ID, err)
		}
		tratar = func(ctx context.Context) { s.assinaturaEncerrada(ctx, &sub) }

	default:
		slog.Info("Webhook da Stripe recebido, mas não tratado", "event_type", tipo)
		eventosWebhook.WithLabelValues(tipo, "ignorado").Inc()
		return nil
	}

	novo, err := s.store.RecordWebhookEvent(ctx, event.ID, tipo)
	if err != nil {
		eventosWebhook.WithLabelValues(tipo, "erro").Inc()
		return fmt.Errorf("registrando evento %s: %w", event.ID, err)
	}
	if !novo {
		slog.Info("Evento da Stripe já processado", "event_id", event.ID, "event_type", tipo)
		eventosWebhook.WithLabelValues(tipo, "duplicado").Inc()
		return nil
	}

	tratar(ctx)
	eventosWebhook.WithLabelValues(tipo, "processado").Inc()
	return nil
}

func (s *CheckoutService) pagamentoAprovado(ctx context.Context, pi *stripe.PaymentIntent) {
	if pi.Invoice != nil {
		// Cobrança de fatura de assinatura; invoice.payment_succeeded cuida dela.
		slog.Info("Payment intent de fatura, ignorando", "payment_intent", pi.ID, "invoice", pi.Invoice.ID)
		return
	}

	// Sem a linha do pagamento o acesso é liberado do mesmo jeito: a Stripe já cobrou
	// e os metadados trazem o email do comprador.
	if _, err := s.store.UpdatePaymentStatus(ctx, pi.ID, domain.PagamentoAprovado); err != nil {
		slog.Error("Erro ao atualizar pagamento", "payment_intent", pi.ID, "error", err)
	}

	email := strings.TrimSpace(pi.Metadata["customerEmail"])
	if email == "" {
		slog.Error("Payment intent sem email do cliente nos metadados", "payment_intent", pi.ID)
		return
	}
	usuario, err := s.store.GetUserByEmail(ctx, email)
	if err != nil || usuario == nil {
		slog.Error("Usuário do pagamento não encontrado", "payment_intent", pi.ID, "email", email, "error", err)
		return
	}

	incluiCoaching := pi.Metadata["includeCoaching"] == "true" || pi.Metadata["coaching_fee"] == "true"
	pacote := domain.PacoteDoCoaching(incluiCoaching)

	a, err := s.store.ConfirmSubscription(ctx, usuario.ID, pacote, incluiCoaching, s.agora().AddDate(1, 0, 0))
	if err != nil {
		slog.Error("Erro ao confirmar assinatura", "user_id", usuario.ID, "package", pacote, "error", err)
		return
	}
	slog.Info("Pagamento aprovado", "payment_intent", pi.ID, "user_id", usuario.ID, "subscription_id", a.ID, "package", pacote)
}

func (s *CheckoutService) pagamentoRecusado(ctx context.Context, pi *stripe.PaymentIntent) {
	motivo := ""
	if pi.LastPaymentError != nil {
		motivo = pi.LastPaymentError.Msg
	}

	_, err := s.store.UpdatePaymentStatus(ctx, pi.ID, domain.PagamentoRecusado)
	switch {
	case errors.Is(err, repository.ErrNaoEncontrado) && pi.Invoice != nil:
		slog.Info("Pagamento de fatura recusado", "payment_intent", pi.ID, "invoice", pi.Invoice.ID, "reason", motivo)
	case err != nil:
		slog.Error("Erro ao atualizar pagamento recusado", "payment_intent", pi.ID, "error", err)
	default:
		slog.Warn("Pagamento recusado", "payment_intent", pi.ID, "reason", motivo)
	}
}

func (s *CheckoutService) faturaPaga(ctx context.Context, inv *stripe.Invoice) {
	email := strings.TrimSpace(inv.CustomerEmail)
	if email == "" {
		slog.Error("Fatura paga sem email do cliente", "invoice", inv.ID)
		return
	}
	usuario, err := s.store.GetUserByEmail(ctx, email)
	if err != nil || usuario == nil {
		slog.Error("Usuário da fatura não encontrado", "invoice", inv.ID, "email", email, "error", err)
		return
	}

	a, err := s.store.ConfirmSubscription(ctx, usuario.ID, domain.PacoteBasic, false, s.agora().AddDate(0, 1, 0))
	if err != nil {
		slog.Error("Erro ao confirmar assinatura básica", "user_id", usuario.ID, "invoice", inv.ID, "error", err)
		return
	}
	slog.Info("Fatura paga", "invoice", inv.ID, "user_id", usuario.ID, "subscription_id", a.ID)
}

func (s *CheckoutService) assinaturaEncerrada(ctx context.Context, sub *stripe.Subscription) {
	usuarioID := sub.Metadata["user_id"]
	if usuarioID == "" {
		slog.Error("Assinatura encerrada sem user_id nos metadados", "subscription", sub.ID)
		return
	}
	pacote := sub.Metadata["package_type"]
	if pacote != domain.PacotePremium {
		pacote = domain.PacoteBasic
	}

	n, err := s.store.CancelSubscriptions(ctx, usuarioID, pacote)
	if err != nil {
		slog.Error("Erro ao cancelar assinatura", "user_id", usuarioID, "subscription", sub.ID, "error", err)
		return
	}
	slog.Info("Assinatura cancelada", "subscription", sub.ID, "user_id", usuarioID, "package", pacote, "rows", n)
}
