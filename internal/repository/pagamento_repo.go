package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/willjrcristo/veoverse-checkout/internal/domain"
)

// PagamentoRepository persiste as cobranças avulsas.
type PagamentoRepository interface {
	CreatePayment(ctx context.Context, pagamento domain.Pagamento) (*domain.Pagamento, error)
	// UpdatePaymentStatus localiza o pagamento pelo ID do PaymentIntent da Stripe.
	// Devolve ErrNaoEncontrado se nenhuma linha casar.
	UpdatePaymentStatus(ctx context.Context, paymentIntentID, status string) (*domain.Pagamento, error)
	GetPaymentByIntentID(ctx context.Context, paymentIntentID string) (*domain.Pagamento, error)
}

var colunasPagamento = []string{
	"id", "usuario_id", "stripe_payment_intent_id", "valor", "moeda", "status",
	"pacote", "inclui_coaching", "metadados", "criado_em", "atualizado_em",
}

func (r *sqliteRepository) CreatePayment(ctx context.Context, p domain.Pagamento) (*domain.Pagamento, error) {
	if !domain.StatusPagamentoValido(p.Status) {
		return nil, fmt.Errorf("status de pagamento inválido: %q", p.Status)
	}

	metadados, err := json.Marshal(p.Metadados)
	if err != nil {
		return nil, err
	}

	agora := r.now()
	p.ID = uuid.NewString()
	p.CriadoEm = agora
	p.AtualizadoEm = agora

	query, args, err := sq.Insert("pagamentos").
		Columns(colunasPagamento...).
		Values(p.ID, p.UsuarioID, p.StripePaymentIntentID, p.Valor, p.Moeda, p.Status,
			p.Pacote, p.IncluiCoaching, string(metadados), agora, agora).
		ToSql()
	if err != nil {
		return nil, err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *sqliteRepository) UpdatePaymentStatus(ctx context.Context, paymentIntentID, status string) (*domain.Pagamento, error) {
	if !domain.StatusPagamentoValido(status) {
		return nil, fmt.Errorf("status de pagamento inválido: %q", status)
	}

	query, args, err := sq.Update("pagamentos").
		Set("status", status).
		Set("atualizado_em", r.now()).
		Where(sq.Eq{"stripe_payment_intent_id": paymentIntentID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("pagamento %s: %w", paymentIntentID, ErrNaoEncontrado)
	}

	return r.GetPaymentByIntentID(ctx, paymentIntentID)
}

func (r *sqliteRepository) GetPaymentByIntentID(ctx context.Context, paymentIntentID string) (*domain.Pagamento, error) {
	query, args, err := sq.Select(colunasPagamento...).
		From("pagamentos").
		Where(sq.Eq{"stripe_payment_intent_id": paymentIntentID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var (
		p         domain.Pagamento
		metadados string
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&p.ID, &p.UsuarioID, &p.StripePaymentIntentID, &p.Valor, &p.Moeda, &p.Status,
		&p.Pacote, &p.IncluiCoaching, &metadados, &p.CriadoEm, &p.AtualizadoEm,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("pagamento %s: %w", paymentIntentID, ErrNaoEncontrado)
		}
		return nil, err
	}

	if metadados != "" {
		if err := json.Unmarshal([]byte(metadados), &p.Metadados); err != nil {
			return nil, fmt.Errorf("metadados corrompidos no pagamento %s: %w", p.ID, err)
		}
	}
	return &p, nil
}
