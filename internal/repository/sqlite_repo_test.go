package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willjrcristo/veoverse-checkout/internal/domain"
)

// novoBancoEmMemoria abre um SQLite em memória com todas as migrações aplicadas.
// Uma única conexão garante que todas as queries vejam o mesmo banco.
func novoBancoEmMemoria(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_Idempotente(t *testing.T) {
	db := novoBancoEmMemoria(t)
	assert.NoError(t, Migrate(db))
}

func TestSQLiteRepository_Usuarios(t *testing.T) {
	ctx := context.Background()

	t.Run("sucesso - cria e busca por email e por id", func(t *testing.T) {
		repo := NewSQLiteRepository(novoBancoEmMemoria(t))
		codigo := "AMIGO10"

		criado, err := repo.CreateUser(ctx, domain.Usuario{Email: "a@b.com", Nome: "A", Sobrenome: "B", CodigoIndicacao: &codigo})
		require.NoError(t, err)
		assert.NotEmpty(t, criado.ID)

		porEmail, err := repo.GetUserByEmail(ctx, "a@b.com")
		require.NoError(t, err)
		require.NotNil(t, porEmail)
		assert.Equal(t, criado.ID, porEmail.ID)
		assert.Equal(t, "A B", porEmail.NomeCompleto())
		require.NotNil(t, porEmail.CodigoIndicacao)
		assert.Equal(t, "AMIGO10", *porEmail.CodigoIndicacao)

		porID, err := repo.GetUserByID(ctx, criado.ID)
		require.NoError(t, err)
		require.NotNil(t, porID)
		assert.Equal(t, "a@b.com", porID.Email)
	})

	t.Run("sucesso - usuário inexistente devolve nil sem erro", func(t *testing.T) {
		repo := NewSQLiteRepository(novoBancoEmMemoria(t))

		u, err := repo.GetUserByEmail(ctx, "ninguem@b.com")
		assert.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("erro - email duplicado", func(t *testing.T) {
		repo := NewSQLiteRepository(novoBancoEmMemoria(t))

		_, err := repo.CreateUser(ctx, domain.Usuario{Email: "dup@b.com", Nome: "Dup"})
		require.NoError(t, err)

		_, err = repo.CreateUser(ctx, domain.Usuario{Email: "dup@b.com", Nome: "Outro"})
		assert.ErrorIs(t, err, ErrEmailDuplicado)
	})
}

func TestSQLiteRepository_Pagamentos(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(novoBancoEmMemoria(t))

	usuario, err := repo.CreateUser(ctx, domain.Usuario{Email: "c@d.com", Nome: "C", Sobrenome: "D"})
	require.NoError(t, err)

	_, err = repo.CreatePayment(ctx, domain.Pagamento{
		UsuarioID:             usuario.ID,
		StripePaymentIntentID: "pi_123",
		Valor:                 27500,
		Moeda:                 "usd",
		Status:                domain.PagamentoPendente,
		Pacote:                domain.PacoteCoachingAddon,
		IncluiCoaching:        true,
		Metadados:             map[string]string{"coaching_fee": "true"},
	})
	require.NoError(t, err)

	t.Run("sucesso - atualiza status pelo payment intent", func(t *testing.T) {
		p, err := repo.UpdatePaymentStatus(ctx, "pi_123", domain.PagamentoAprovado)
		require.NoError(t, err)
		assert.Equal(t, domain.PagamentoAprovado, p.Status)
		assert.Equal(t, int64(27500), p.Valor)
		assert.True(t, p.IncluiCoaching)
		assert.Equal(t, "true", p.Metadados["coaching_fee"])
	})

	t.Run("erro - payment intent desconhecido", func(t *testing.T) {
		_, err := repo.UpdatePaymentStatus(ctx, "pi_nao_existe", domain.PagamentoRecusado)
		assert.ErrorIs(t, err, ErrNaoEncontrado)
	})

	t.Run("erro - status fora do domínio", func(t *testing.T) {
		_, err := repo.UpdatePaymentStatus(ctx, "pi_123", "refunded")
		assert.Error(t, err)
	})

	t.Run("erro - payment intent repetido", func(t *testing.T) {
		_, err := repo.CreatePayment(ctx, domain.Pagamento{
			UsuarioID:             usuario.ID,
			StripePaymentIntentID: "pi_123",
			Valor:                 100,
			Moeda:                 "usd",
			Status:                domain.PagamentoPendente,
			Pacote:                domain.PacoteCoachingAddon,
		})
		assert.Error(t, err)
	})
}

func TestSQLiteRepository_Assinaturas(t *testing.T) {
	ctx := context.Background()
	expira := time.Now().UTC().AddDate(1, 0, 0)

	t.Run("sucesso - confirma a provisória em vez de criar outra", func(t *testing.T) {
		repo := NewSQLiteRepository(novoBancoEmMemoria(t))
		usuario, err := repo.CreateUser(ctx, domain.Usuario{Email: "p@q.com", Nome: "P"})
		require.NoError(t, err)

		provisoria, err := repo.CreateSubscription(ctx, domain.Assinatura{
			UsuarioID:      usuario.ID,
			Pacote:         domain.PacotePremium,
			IncluiCoaching: true,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.AssinaturaProvisoria, provisoria.Status)

		ativas, err := repo.ListSubscriptions(ctx, usuario.ID, domain.AssinaturaAtiva)
		require.NoError(t, err)
		assert.Empty(t, ativas)

		confirmada, err := repo.ConfirmSubscription(ctx, usuario.ID, domain.PacotePremium, true, expira)
		require.NoError(t, err)
		assert.Equal(t, provisoria.ID, confirmada.ID)
		assert.Equal(t, domain.AssinaturaAtiva, confirmada.Status)
		require.NotNil(t, confirmada.ExpiraEm)
		assert.WithinDuration(t, expira, *confirmada.ExpiraEm, time.Second)

		todas, err := repo.ListSubscriptions(ctx, usuario.ID, "")
		require.NoError(t, err)
		assert.Len(t, todas, 1)
	})

	t.Run("sucesso - sem provisória cria assinatura ativa", func(t *testing.T) {
		repo := NewSQLiteRepository(novoBancoEmMemoria(t))
		usuario, err := repo.CreateUser(ctx, domain.Usuario{Email: "r@s.com", Nome: "R"})
		require.NoError(t, err)

		confirmada, err := repo.ConfirmSubscription(ctx, usuario.ID, domain.PacoteBasic, false, expira)
		require.NoError(t, err)
		assert.Equal(t, domain.AssinaturaAtiva, confirmada.Status)

		ativas, err := repo.ListSubscriptions(ctx, usuario.ID, domain.AssinaturaAtiva)
		require.NoError(t, err)
		require.Len(t, ativas, 1)
		assert.Equal(t, domain.PacoteBasic, ativas[0].Pacote)
	})

	t.Run("sucesso - renovação estende a ativa sem criar outra linha", func(t *testing.T) {
		repo := NewSQLiteRepository(novoBancoEmMemoria(t))
		usuario, err := repo.CreateUser(ctx, domain.Usuario{Email: "v@w.com", Nome: "V"})
		require.NoError(t, err)
		_, err = repo.CreateSubscription(ctx, domain.Assinatura{UsuarioID: usuario.ID, Pacote: domain.PacoteBasic})
		require.NoError(t, err)

		primeiro := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
		segundo := primeiro.AddDate(0, 1, 0)

		a1, err := repo.ConfirmSubscription(ctx, usuario.ID, domain.PacoteBasic, false, primeiro)
		require.NoError(t, err)
		a2, err := repo.ConfirmSubscription(ctx, usuario.ID, domain.PacoteBasic, false, segundo)
		require.NoError(t, err)
		assert.Equal(t, a1.ID, a2.ID)

		// Evento atrasado não encurta a validade.
		a3, err := repo.ConfirmSubscription(ctx, usuario.ID, domain.PacoteBasic, false, primeiro)
		require.NoError(t, err)
		require.NotNil(t, a3.ExpiraEm)
		assert.True(t, segundo.Equal(*a3.ExpiraEm))

		ativas, err := repo.ListSubscriptions(ctx, usuario.ID, domain.AssinaturaAtiva)
		require.NoError(t, err)
		require.Len(t, ativas, 1)
		assert.True(t, segundo.Equal(*ativas[0].ExpiraEm))
	})

	t.Run("sucesso - cancela ativas e provisórias do pacote", func(t *testing.T) {
		repo := NewSQLiteRepository(novoBancoEmMemoria(t))
		usuario, err := repo.CreateUser(ctx, domain.Usuario{Email: "x@y.com", Nome: "X"})
		require.NoError(t, err)
		_, err = repo.ConfirmSubscription(ctx, usuario.ID, domain.PacoteBasic, false, expira)
		require.NoError(t, err)
		_, err = repo.CreateSubscription(ctx, domain.Assinatura{UsuarioID: usuario.ID, Pacote: domain.PacoteBasic})
		require.NoError(t, err)
		_, err = repo.ConfirmSubscription(ctx, usuario.ID, domain.PacotePremium, true, expira)
		require.NoError(t, err)

		n, err := repo.CancelSubscriptions(ctx, usuario.ID, domain.PacoteBasic)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		canceladas, err := repo.ListSubscriptions(ctx, usuario.ID, domain.AssinaturaCancelada)
		require.NoError(t, err)
		assert.Len(t, canceladas, 2)
		ativas, err := repo.ListSubscriptions(ctx, usuario.ID, domain.AssinaturaAtiva)
		require.NoError(t, err)
		require.Len(t, ativas, 1)
		assert.Equal(t, domain.PacotePremium, ativas[0].Pacote)
	})

	t.Run("erro - pacote desconhecido viola a constraint", func(t *testing.T) {
		repo := NewSQLiteRepository(novoBancoEmMemoria(t))
		usuario, err := repo.CreateUser(ctx, domain.Usuario{Email: "t@u.com", Nome: "T"})
		require.NoError(t, err)

		_, err = repo.CreateSubscription(ctx, domain.Assinatura{UsuarioID: usuario.ID, Pacote: "gold"})
		assert.Error(t, err)
	})
}

func TestSQLiteRepository_RecordWebhookEvent(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(novoBancoEmMemoria(t))

	novo, err := repo.RecordWebhookEvent(ctx, "evt_1", "payment_intent.succeeded")
	require.NoError(t, err)
	assert.True(t, novo)

	novo, err = repo.RecordWebhookEvent(ctx, "evt_1", "payment_intent.succeeded")
	require.NoError(t, err)
	assert.False(t, novo)
}
