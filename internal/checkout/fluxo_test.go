package checkout

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willjrcristo/veoverse-checkout/internal/domain"
)

// fakeAPI registra os pedidos e responde com o que cada teste configurar.
type fakeAPI struct {
	intencoes   []domain.IntencaoPagamentoRequest
	assinaturas []domain.AssinaturaRequest

	CriarIntencaoFn   func(req domain.IntencaoPagamentoRequest) (string, error)
	CriarAssinaturaFn func(req domain.AssinaturaRequest) (*domain.AssinaturaResponse, error)
}

func (f *fakeAPI) CriarIntencao(ctx context.Context, req domain.IntencaoPagamentoRequest) (string, error) {
	f.intencoes = append(f.intencoes, req)
	if f.CriarIntencaoFn != nil {
		return f.CriarIntencaoFn(req)
	}
	return "pi_coaching_secret_1", nil
}

func (f *fakeAPI) CriarAssinatura(ctx context.Context, req domain.AssinaturaRequest) (*domain.AssinaturaResponse, error) {
	f.assinaturas = append(f.assinaturas, req)
	if f.CriarAssinaturaFn != nil {
		return f.CriarAssinaturaFn(req)
	}
	return &domain.AssinaturaResponse{SubscriptionID: "sub_1", ClientSecret: "pi_basico_secret_1"}, nil
}

type fakeConfirmador struct {
	chamadas int
	secret   string
	cobranca Cobranca
	status   string
	err      error
	// durante roda no meio da confirmação, enquanto o fluxo está em Enviando.
	durante func()
}

func (f *fakeConfirmador) Confirmar(ctx context.Context, clientSecret, cartao string, cobranca Cobranca) (string, error) {
	f.chamadas++
	f.secret, f.cobranca = clientSecret, cobranca
	if f.durante != nil {
		f.durante()
	}
	return f.status, f.err
}

var dadosAna = DadosCliente{Email: "ana@exemplo.com", FirstName: "Ana", LastName: "Souza", CodigoIndicacao: "AMIGO10"}

func TestFluxo_SolicitaIntencao(t *testing.T) {
	ctx := context.Background()

	t.Run("sucesso - dados incompletos não chamam o servidor", func(t *testing.T) {
		api := &fakeAPI{}
		f := NewFluxo(api, &fakeConfirmador{}, Opcoes{})

		require.NoError(t, f.AtualizarDados(ctx, DadosCliente{Email: "ana@exemplo.com", FirstName: "Ana"}))
		estado, _ := f.Estado()
		assert.Equal(t, Ocioso, estado)
		assert.Empty(t, api.intencoes)
		assert.Empty(t, api.assinaturas)
	})

	t.Run("sucesso - sem coaching pede a assinatura básica", func(t *testing.T) {
		api := &fakeAPI{}
		f := NewFluxo(api, &fakeConfirmador{}, Opcoes{})

		require.NoError(t, f.AtualizarDados(ctx, dadosAna))
		estado, _ := f.Estado()
		assert.Equal(t, IntencaoPronta, estado)
		assert.Equal(t, 25.0, f.Total())

		require.Len(t, api.assinaturas, 1)
		req := api.assinaturas[0]
		assert.Equal(t, 25.0, req.Amount)
		assert.Equal(t, "false", req.Metadata.IncludeCoaching)
		assert.Equal(t, domain.PacoteBasic, req.Metadata.Package)
		assert.Equal(t, "Ana Souza", req.Metadata.CustomerName)
		assert.Equal(t, "AMIGO10", req.Metadata.ReferralCode)
	})

	t.Run("sucesso - ligar o coaching pede a cobrança de 300 com 275 de coaching", func(t *testing.T) {
		api := &fakeAPI{}
		f := NewFluxo(api, &fakeConfirmador{}, Opcoes{})
		require.NoError(t, f.AtualizarDados(ctx, dadosAna))

		require.NoError(t, f.AlternarCoaching(ctx, true))
		assert.Equal(t, 300.0, f.Total())
		require.Len(t, api.intencoes, 1)
		req := api.intencoes[0]
		assert.Equal(t, 300.0, req.Amount)
		assert.Equal(t, 275.0, req.CoachingAmount)
		assert.Equal(t, "true", req.Metadata.IncludeCoaching)
		assert.Equal(t, domain.PacotePremium, req.Metadata.Package)
	})

	t.Run("erro - falha do servidor permite tentar de novo", func(t *testing.T) {
		falhar := true
		api := &fakeAPI{
			CriarAssinaturaFn: func(req domain.AssinaturaRequest) (*domain.AssinaturaResponse, error) {
				if falhar {
					return nil, &ErroAPI{Status: 500, Mensagem: "Failed to create customer"}
				}
				return &domain.AssinaturaResponse{SubscriptionID: "sub_2", ClientSecret: "pi_2_secret_x"}, nil
			},
		}
		f := NewFluxo(api, &fakeConfirmador{}, Opcoes{})

		err := f.AtualizarDados(ctx, dadosAna)
		require.Error(t, err)
		estado, msg := f.Estado()
		assert.Equal(t, ErroIntencao, estado)
		assert.Equal(t, "Failed to create customer", msg)
		assert.ErrorIs(t, f.Enviar(ctx, "tok_visa"), ErrIntencaoNaoPronta)

		falhar = false
		require.NoError(t, f.AtualizarDados(ctx, dadosAna))
		estado, msg = f.Estado()
		assert.Equal(t, IntencaoPronta, estado)
		assert.Empty(t, msg)
	})

	t.Run("erro - falha sem mensagem usa o texto padrão", func(t *testing.T) {
		api := &fakeAPI{
			CriarAssinaturaFn: func(req domain.AssinaturaRequest) (*domain.AssinaturaResponse, error) {
				return nil, errors.New("connection refused")
			},
		}
		f := NewFluxo(api, &fakeConfirmador{}, Opcoes{})

		require.Error(t, f.AtualizarDados(ctx, dadosAna))
		_, msg := f.Estado()
		assert.Equal(t, MsgFalhaInicializacao, msg)
	})

	t.Run("sucesso - resposta atrasada de um pedido antigo é descartada", func(t *testing.T) {
		var f *Fluxo
		api := &fakeAPI{}
		api.CriarAssinaturaFn = func(req domain.AssinaturaRequest) (*domain.AssinaturaResponse, error) {
			// O cliente liga o coaching antes da resposta do plano básico chegar.
			require.NoError(t, f.AlternarCoaching(ctx, true))
			return &domain.AssinaturaResponse{SubscriptionID: "sub_velha", ClientSecret: "pi_velho_secret_x"}, nil
		}
		conf := &fakeConfirmador{status: "succeeded"}
		f = NewFluxo(api, conf, Opcoes{})

		require.NoError(t, f.AtualizarDados(ctx, dadosAna))
		estado, _ := f.Estado()
		assert.Equal(t, IntencaoPronta, estado)

		require.NoError(t, f.Enviar(ctx, "tok_visa"))
		assert.Equal(t, "pi_coaching_secret_1", conf.secret)
	})
}

func TestFluxo_Enviar(t *testing.T) {
	ctx := context.Background()
	agora := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

	t.Run("erro - sem client secret ou sem cartão", func(t *testing.T) {
		conf := &fakeConfirmador{status: "succeeded"}
		f := NewFluxo(&fakeAPI{}, conf, Opcoes{})

		assert.ErrorIs(t, f.Enviar(ctx, "tok_visa"), ErrIntencaoNaoPronta)

		require.NoError(t, f.AtualizarDados(ctx, dadosAna))
		assert.ErrorIs(t, f.Enviar(ctx, "  "), ErrCartaoObrigatorio)
		assert.Equal(t, 0, conf.chamadas)
	})

	t.Run("sucesso - grava a sessão e chama o callback", func(t *testing.T) {
		armazenamento := NewArmazenamentoLocal(filepath.Join(t.TempDir(), "storage.json"))
		var compras []Compra
		conf := &fakeConfirmador{status: "succeeded"}
		f := NewFluxo(&fakeAPI{}, conf, Opcoes{
			Armazenamento: armazenamento,
			AoConcluir:    func(c Compra) { compras = append(compras, c) },
			Agora:         func() time.Time { return agora },
		})
		require.NoError(t, f.AtualizarDados(ctx, dadosAna))
		require.NoError(t, f.AlternarCoaching(ctx, true))

		require.NoError(t, f.Enviar(ctx, "tok_visa"))

		estado, _ := f.Estado()
		assert.Equal(t, Sucesso, estado)
		assert.Equal(t, "pi_coaching_secret_1", conf.secret)
		assert.Equal(t, Cobranca{Nome: "Ana Souza", Email: "ana@exemplo.com"}, conf.cobranca)

		require.Len(t, compras, 1)
		assert.Equal(t, domain.PacotePremium, compras[0].Pacote)
		assert.True(t, compras[0].IncluiCoaching)
		assert.Equal(t, 300.0, compras[0].Total)

		sessao, err := armazenamento.Carregar()
		require.NoError(t, err)
		require.NotNil(t, sessao)
		assert.Equal(t, "ana@exemplo.com", sessao.Email)
		assert.Equal(t, domain.PacotePremium, sessao.PackageType)
		require.NotNil(t, sessao.IncludeCoaching)
		assert.True(t, *sessao.IncludeCoaching)
		require.NotNil(t, sessao.PurchaseDate)
		assert.True(t, agora.Equal(*sessao.PurchaseDate))

		assert.ErrorIs(t, f.Enviar(ctx, "tok_visa"), ErrCheckoutConcluido)
		assert.ErrorIs(t, f.AlternarCoaching(ctx, false), ErrCheckoutConcluido)
		assert.Len(t, compras, 1)
	})

	t.Run("erro - mensagem do processador aparece sem alteração", func(t *testing.T) {
		conf := &fakeConfirmador{err: &ErroPagamento{Mensagem: "Your card was declined.", Err: errors.New("card_declined")}}
		chamado := false
		f := NewFluxo(&fakeAPI{}, conf, Opcoes{AoConcluir: func(Compra) { chamado = true }})
		require.NoError(t, f.AtualizarDados(ctx, dadosAna))

		err := f.Enviar(ctx, "tok_chargeDeclined")
		require.Error(t, err)
		estado, msg := f.Estado()
		assert.Equal(t, Falhou, estado)
		assert.Equal(t, "Your card was declined.", msg)
		assert.False(t, chamado)

		t.Run("pode reenviar com outro cartão", func(t *testing.T) {
			conf.err, conf.status = nil, "succeeded"
			require.NoError(t, f.Enviar(ctx, "tok_visa"))
			assert.True(t, chamado)
		})
	})

	t.Run("erro - status diferente de succeeded", func(t *testing.T) {
		conf := &fakeConfirmador{status: "requires_action"}
		f := NewFluxo(&fakeAPI{}, conf, Opcoes{})
		require.NoError(t, f.AtualizarDados(ctx, dadosAna))

		err := f.Enviar(ctx, "tok_visa")
		assert.ErrorIs(t, err, ErrPagamentoIncompleto)
		_, msg := f.Estado()
		assert.Equal(t, MsgPagamentoIncompleto, msg)
	})

	t.Run("erro - envio duplo é recusado", func(t *testing.T) {
		conf := &fakeConfirmador{status: "succeeded"}
		f := NewFluxo(&fakeAPI{}, conf, Opcoes{})
		require.NoError(t, f.AtualizarDados(ctx, dadosAna))

		conf.durante = func() {
			assert.ErrorIs(t, f.Enviar(ctx, "tok_visa"), ErrEnvioEmAndamento)
			assert.ErrorIs(t, f.AtualizarDados(ctx, dadosAna), ErrEnvioEmAndamento)
		}
		require.NoError(t, f.Enviar(ctx, "tok_visa"))
		assert.Equal(t, 1, conf.chamadas)
	})
}

func TestFluxo_EdicaoConcorrenteComEnvio(t *testing.T) {
	ctx := context.Background()

	// Quem conseguir a trava primeiro vence; o outro lado tem de ver o estado já decidido.
	for i := 0; i < 200; i++ {
		conf := &fakeConfirmador{status: "succeeded"}
		f := NewFluxo(&fakeAPI{}, conf, Opcoes{})
		require.NoError(t, f.AtualizarDados(ctx, dadosAna))

		var estadoDurante Estado
		conf.durante = func() { estadoDurante, _ = f.Estado() }

		var (
			wg                 sync.WaitGroup
			errEnvio, errEdita error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			errEnvio = f.Enviar(ctx, "tok_visa")
		}()
		go func() {
			defer wg.Done()
			errEdita = f.AlternarCoaching(ctx, true)
		}()
		wg.Wait()

		if errEnvio == nil {
			// A confirmação rodou com o client secret intacto e ninguém mexeu no estado no meio dela.
			assert.Equal(t, Enviando, estadoDurante)
			assert.NotEmpty(t, conf.secret)
			estado, _ := f.Estado()
			assert.Equal(t, Sucesso, estado)
		} else {
			assert.ErrorIs(t, errEnvio, ErrIntencaoNaoPronta)
			assert.NoError(t, errEdita)
			assert.Zero(t, conf.chamadas)
		}
		if errEdita != nil {
			assert.True(t, errors.Is(errEdita, ErrEnvioEmAndamento) || errors.Is(errEdita, ErrCheckoutConcluido), errEdita)
		}
	}
}
