package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/willjrcristo/veoverse-checkout/internal/domain"
)

// Erros de persistência que as camadas de cima precisam distinguir.
var (
	ErrNaoEncontrado  = errors.New("registro não encontrado")
	ErrEmailDuplicado = errors.New("já existe um usuário com este email")
)

// UsuarioRepository define as operações de persistência de usuários.
// Usar uma interface nos permite 'mockar' o repositório em testes.
type UsuarioRepository interface {
	CreateUser(ctx context.Context, usuario domain.Usuario) (*domain.Usuario, error)
	// GetUserByEmail e GetUserByID devolvem nil, nil quando o usuário não existe.
	GetUserByEmail(ctx context.Context, email string) (*domain.Usuario, error)
	GetUserByID(ctx context.Context, id string) (*domain.Usuario, error)
}

// Store junta todos os repositórios usados pelo serviço de checkout.
type Store interface {
	UsuarioRepository
	PagamentoRepository
	AssinaturaRepository
	EventoRepository
}

// sqliteRepository é a implementação do Store para SQLite.
// Ela precisa de uma conexão com o banco de dados (*sql.DB) para funcionar.
type sqliteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository cria o repositório em cima de uma conexão já migrada (veja Open).
func NewSQLiteRepository(db *sql.DB) Store {
	return &sqliteRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

var colunasUsuario = []string{"id", "email", "nome", "sobrenome", "codigo_indicacao", "criado_em", "atualizado_em"}

func (r *sqliteRepository) CreateUser(ctx context.Context, usuario domain.Usuario) (*domain.Usuario, error) {
	agora := r.now()
	usuario.ID = uuid.NewString()
	usuario.Email = strings.TrimSpace(usuario.Email)
	usuario.CriadoEm = agora
	usuario.AtualizadoEm = agora

	query, args, err := sq.Insert("usuarios").
		Columns(colunasUsuario...).
		Values(usuario.ID, usuario.Email, usuario.Nome, usuario.Sobrenome, usuario.CodigoIndicacao, agora, agora).
		ToSql()
	if err != nil {
		return nil, err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isEmailDuplicado(err) {
			return nil, ErrEmailDuplicado
		}
		return nil, err
	}
	return &usuario, nil
}

func (r *sqliteRepository) GetUserByEmail(ctx context.Context, email string) (*domain.Usuario, error) {
	return r.getUser(ctx, sq.Eq{"email": strings.TrimSpace(email)})
}

func (r *sqliteRepository) GetUserByID(ctx context.Context, id string) (*domain.Usuario, error) {
	return r.getUser(ctx, sq.Eq{"id": id})
}

func (r *sqliteRepository) getUser(ctx context.Context, filtro sq.Eq) (*domain.Usuario, error) {
	query, args, err := sq.Select(colunasUsuario...).From("usuarios").Where(filtro).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}

	var (
		u      domain.Usuario
		codigo sql.NullString
	)
	row := r.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&u.ID, &u.Email, &u.Nome, &u.Sobrenome, &codigo, &u.CriadoEm, &u.AtualizadoEm); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if codigo.Valid {
		u.CodigoIndicacao = &codigo.String
	}
	return &u, nil
}

// isEmailDuplicado reconhece a violação da constraint usuarios_email_key,
// que acontece quando duas requisições tentam criar o mesmo usuário ao mesmo tempo.
func isEmailDuplicado(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique &&
		strings.Contains(sqliteErr.Error(), "usuarios.email")
}
