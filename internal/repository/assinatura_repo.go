package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/willjrcristo/veoverse-checkout/internal/domain"
)

// AssinaturaRepository persiste os direitos de acesso dos usuários.
type AssinaturaRepository interface {
	CreateSubscription(ctx context.Context, assinatura domain.Assinatura) (*domain.Assinatura, error)
	// ListSubscriptions lista as assinaturas do usuário. Status vazio lista todas.
	ListSubscriptions(ctx context.Context, usuarioID, status string) ([]domain.Assinatura, error)
	// ConfirmSubscription renova a assinatura ativa do pacote ou, se não houver, promove a provisória
	// mais antiga para "active". Sem nenhuma das duas, cria uma nova já ativa.
	ConfirmSubscription(ctx context.Context, usuarioID, pacote string, incluiCoaching bool, expiraEm time.Time) (*domain.Assinatura, error)
	// CancelSubscriptions cancela as assinaturas ativas e provisórias do pacote.
	CancelSubscriptions(ctx context.Context, usuarioID, pacote string) (int64, error)
}

var colunasAssinatura = []string{
	"id", "usuario_id", "pacote", "inclui_coaching", "status", "expira_em", "criado_em", "atualizado_em",
}

func (r *sqliteRepository) CreateSubscription(ctx context.Context, a domain.Assinatura) (*domain.Assinatura, error) {
	return r.insertSubscription(ctx, r.db, a)
}

// execer é satisfeito tanto por *sql.DB quanto por *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *sqliteRepository) insertSubscription(ctx context.Context, db execer, a domain.Assinatura) (*domain.Assinatura, error) {
	agora := r.now()
	a.ID = uuid.NewString()
	a.CriadoEm = agora
	a.AtualizadoEm = agora
	if a.Status == "" {
		a.Status = domain.AssinaturaProvisoria
	}

	query, args, err := sq.Insert("assinaturas").
		Columns(colunasAssinatura...).
		Values(a.ID, a.UsuarioID, a.Pacote, a.IncluiCoaching, a.Status, a.ExpiraEm, agora, agora).
		ToSql()
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *sqliteRepository) ListSubscriptions(ctx context.Context, usuarioID, status string) ([]domain.Assinatura, error) {
	filtro := sq.Eq{"usuario_id": usuarioID}
	if status != "" {
		filtro["status"] = status
	}

	query, args, err := sq.Select(colunasAssinatura...).
		From("assinaturas").
		Where(filtro).
		OrderBy("criado_em", "id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assinaturas := []domain.Assinatura{}
	for rows.Next() {
		a, err := scanAssinatura(rows)
		if err != nil {
			return nil, err
		}
		assinaturas = append(assinaturas, *a)
	}
	return assinaturas, rows.Err()
}

func (r *sqliteRepository) ConfirmSubscription(ctx context.Context, usuarioID, pacote string, incluiCoaching bool, expiraEm time.Time) (*domain.Assinatura, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Renovação: a assinatura já ativa do pacote só ganha a nova validade.
	atual, err := buscarAssinatura(ctx, tx, sq.Eq{"usuario_id": usuarioID, "pacote": pacote, "status": domain.AssinaturaAtiva})
	if err != nil {
		return nil, err
	}
	if atual == nil {
		atual, err = buscarAssinatura(ctx, tx, sq.Eq{"usuario_id": usuarioID, "pacote": pacote, "status": domain.AssinaturaProvisoria})
		if err != nil {
			return nil, err
		}
	}
	if atual == nil {
		// Nenhuma assinatura: o pagamento foi confirmado sem checkout registrado aqui.
		criada, err := r.insertSubscription(ctx, tx, domain.Assinatura{
			UsuarioID:      usuarioID,
			Pacote:         pacote,
			IncluiCoaching: incluiCoaching,
			Status:         domain.AssinaturaAtiva,
			ExpiraEm:       &expiraEm,
		})
		if err != nil {
			return nil, err
		}
		return criada, tx.Commit()
	}

	validade := expiraEm
	if atual.Status == domain.AssinaturaAtiva {
		// Evento atrasado nunca encurta o acesso nem tira o coaching já pago.
		if atual.ExpiraEm != nil && atual.ExpiraEm.After(validade) {
			validade = *atual.ExpiraEm
		}
		incluiCoaching = incluiCoaching || atual.IncluiCoaching
	}

	query, args, err := sq.Update("assinaturas").
		Set("status", domain.AssinaturaAtiva).
		Set("inclui_coaching", incluiCoaching).
		Set("expira_em", validade).
		Set("atualizado_em", r.now()).
		Where(sq.Eq{"id": atual.ID}).
		ToSql()
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}

	confirmada, err := buscarAssinatura(ctx, tx, sq.Eq{"id": atual.ID})
	if err != nil {
		return nil, err
	}
	return confirmada, tx.Commit()
}

func (r *sqliteRepository) CancelSubscriptions(ctx context.Context, usuarioID, pacote string) (int64, error) {
	query, args, err := sq.Update("assinaturas").
		Set("status", domain.AssinaturaCancelada).
		Set("atualizado_em", r.now()).
		Where(sq.Eq{
			"usuario_id": usuarioID,
			"pacote":     pacote,
			"status":     []string{domain.AssinaturaAtiva, domain.AssinaturaProvisoria},
		}).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// buscarAssinatura devolve a mais antiga que bate com o filtro, ou nil.
func buscarAssinatura(ctx context.Context, tx *sql.Tx, filtro sq.Eq) (*domain.Assinatura, error) {
	query, args, err := sq.Select(colunasAssinatura...).
		From("assinaturas").
		Where(filtro).
		OrderBy("criado_em", "id").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	a, err := scanAssinatura(tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// scanner é satisfeito por *sql.Row e *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAssinatura(s scanner) (*domain.Assinatura, error) {
	var (
		a        domain.Assinatura
		expiraEm sql.NullTime
	)
	if err := s.Scan(&a.ID, &a.UsuarioID, &a.Pacote, &a.IncluiCoaching, &a.Status, &expiraEm, &a.CriadoEm, &a.AtualizadoEm); err != nil {
		return nil, err
	}
	if expiraEm.Valid {
		t := expiraEm.Time
		a.ExpiraEm = &t
	}
	return &a, nil
}
