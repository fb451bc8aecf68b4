package repository

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"
)

// EventoRepository guarda os IDs de eventos da Stripe já processados.
// A Stripe reenvia eventos quando não recebe 200 a tempo, então o mesmo ID pode chegar mais de uma vez.
type EventoRepository interface {
	// RecordWebhookEvent devolve true se o evento ainda não tinha sido visto.
	RecordWebhookEvent(ctx context.Context, eventoID, tipo string) (bool, error)
}

func (r *sqliteRepository) RecordWebhookEvent(ctx context.Context, eventoID, tipo string) (bool, error) {
	query, args, err := sq.Insert("eventos_webhook").
		Columns("id", "tipo", "recebido_em").
		Values(eventoID, tipo, r.now()).
		ToSql()
	if err != nil {
		return false, err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
