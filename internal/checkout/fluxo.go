package checkout

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/stripe/stripe-go/v78"

	"github.com/willjrcristo/veoverse-checkout/internal/domain"
)

// Estado é a etapa em que o checkout está.
type Estado int

const (
	Ocioso             Estado = iota // faltam dados do cliente
	IntencaoSolicitada               // pedindo o client secret ao servidor
	IntencaoPronta                   // pronto para enviar o cartão
	ErroIntencao                     // o servidor recusou; editar os dados tenta de novo
	Enviando                         // confirmando com o processador
	Sucesso
	Falhou // o processador recusou; o mesmo client secret pode ser reenviado
)

func (e Estado) String() string {
	switch e {
	case Ocioso:
		return "ocioso"
	case IntencaoSolicitada:
		return "solicitando"
	case IntencaoPronta:
		return "pronto"
	case ErroIntencao:
		return "erro_intencao"
	case Enviando:
		return "enviando"
	case Sucesso:
		return "sucesso"
	case Falhou:
		return "falhou"
	}
	return "desconhecido"
}

var (
	ErrDadosIncompletos    = errors.New("email e nome são obrigatórios")
	ErrIntencaoNaoPronta   = errors.New("pagamento ainda não está pronto")
	ErrCartaoObrigatorio   = errors.New("informe o cartão")
	ErrEnvioEmAndamento    = errors.New("pagamento já está sendo processado")
	ErrCheckoutConcluido   = errors.New("checkout já concluído")
	ErrPagamentoIncompleto = errors.New("pagamento não concluído")
)

// Mensagens mostradas ao cliente quando nem o servidor nem o processador mandam uma.
const (
	MsgFalhaInicializacao  = "Failed to initialize payment. Please refresh the page."
	MsgPagamentoIncompleto = "Payment was not completed successfully."
)

// DadosCliente são os campos do formulário.
type DadosCliente struct {
	Email           string
	FirstName       string
	LastName        string
	CodigoIndicacao string
}

func (d DadosCliente) completos() bool {
	return strings.TrimSpace(d.Email) != "" && strings.TrimSpace(d.FirstName) != "" && strings.TrimSpace(d.LastName) != ""
}

func (d DadosCliente) nomeCompleto() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// Precos são os valores exibidos no checkout, em unidades da moeda.
type Precos struct {
	Basico   float64
	Coaching float64
}

// PrecosPadrao são 25/mês do plano básico mais 275 do coaching.
var PrecosPadrao = Precos{Basico: 25, Coaching: 275}

// Compra é o que o callback de sucesso recebe.
type Compra struct {
	Email          string
	Pacote         string
	IncluiCoaching bool
	Total          float64
	ClientSecret   string
	SubscriptionID string
}

// Opcoes configura o Fluxo.
type Opcoes struct {
	Precos        Precos
	Armazenamento Armazenamento

	// AoConcluir é chamado uma vez, depois que o pagamento é confirmado.
	AoConcluir func(Compra)
	Agora      func() time.Time
}

// Fluxo conduz o checkout: pede o client secret quando os dados ficam completos,
// refaz o pedido quando o coaching é ligado ou desligado e confirma o cartão.
//
// Cada pedido de intenção recebe uma geração; respostas de gerações antigas são
// descartadas, então alternar o coaching no meio de um pedido não mistura os valores.
type Fluxo struct {
	api         API
	confirmador Confirmador
	opcoes      Opcoes

	mu             sync.Mutex
	estado         Estado
	dados          DadosCliente
	coaching       bool
	clientSecret   string
	subscriptionID string
	erro           string
	geracao        int
}

// NewFluxo cria o fluxo no estado Ocioso, com o coaching desligado.
func NewFluxo(api API, confirmador Confirmador, opcoes Opcoes) *Fluxo {
	if opcoes.Precos == (Precos{}) {
		opcoes.Precos = PrecosPadrao
	}
	if opcoes.Agora == nil {
		opcoes.Agora = time.Now
	}
	return &Fluxo{api: api, confirmador: confirmador, opcoes: opcoes}
}

// Estado devolve a etapa atual e a última mensagem de erro.
func (f *Fluxo) Estado() (Estado, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.estado, f.erro
}

// Total é o valor mostrado no resumo do pedido.
func (f *Fluxo) Total() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total()
}

func (f *Fluxo) total() float64 {
	if f.coaching {
		return f.opcoes.Precos.Basico + f.opcoes.Precos.Coaching
	}
	return f.opcoes.Precos.Basico
}

// AtualizarDados troca os dados do formulário. Com os dados completos, pede um novo client secret.
func (f *Fluxo) AtualizarDados(ctx context.Context, dados DadosCliente) error {
	f.mu.Lock()
	if err := f.editavel(); err != nil {
		f.mu.Unlock()
		return err
	}
	f.dados = dados
	if !dados.completos() {
		f.estado, f.clientSecret, f.erro = Ocioso, "", ""
		f.geracao++
		f.mu.Unlock()
		return nil
	}
	p := f.novoPedido()
	f.mu.Unlock()
	return f.solicitarIntencao(ctx, p)
}

// AlternarCoaching liga ou desliga o coaching. Muda o endpoint e o valor, então pede outro client secret.
func (f *Fluxo) AlternarCoaching(ctx context.Context, incluir bool) error {
	f.mu.Lock()
	if err := f.editavel(); err != nil {
		f.mu.Unlock()
		return err
	}
	f.coaching = incluir
	if !f.dados.completos() {
		f.mu.Unlock()
		return nil
	}
	p := f.novoPedido()
	f.mu.Unlock()
	return f.solicitarIntencao(ctx, p)
}

func (f *Fluxo) editavel() error {
	switch f.estado {
	case Enviando:
		return ErrEnvioEmAndamento
	case Sucesso:
		return ErrCheckoutConcluido
	}
	return nil
}

// pedido é o retrato do formulário no momento em que o client secret foi pedido.
type pedido struct {
	geracao  int
	dados    DadosCliente
	coaching bool
	precos   Precos
	total    float64
}

// novoPedido abre uma nova geração e limpa o client secret anterior. Exige f.mu travado,
// na mesma seção crítica que conferiu editavel(), para que um Enviar não comece no meio.
func (f *Fluxo) novoPedido() pedido {
	f.geracao++
	f.estado, f.clientSecret, f.subscriptionID, f.erro = IntencaoSolicitada, "", "", ""
	return pedido{
		geracao:  f.geracao,
		dados:    f.dados,
		coaching: f.coaching,
		precos:   f.opcoes.Precos,
		total:    f.total(),
	}
}

func (f *Fluxo) solicitarIntencao(ctx context.Context, p pedido) error {
	metadados := domain.MetadadosCheckout{
		CustomerEmail:   strings.TrimSpace(p.dados.Email),
		CustomerName:    p.dados.nomeCompleto(),
		ReferralCode:    p.dados.CodigoIndicacao,
		IncludeCoaching: "false",
		Package:         domain.PacoteBasic,
	}

	var (
		secret, subID string
		err           error
	)
	if p.coaching {
		metadados.IncludeCoaching = "true"
		metadados.Package = domain.PacotePremium
		secret, err = f.api.CriarIntencao(ctx, domain.IntencaoPagamentoRequest{
			Amount:         p.total,
			CoachingAmount: p.precos.Coaching,
			Metadata:       metadados,
		})
	} else {
		var resp *domain.AssinaturaResponse
		resp, err = f.api.CriarAssinatura(ctx, domain.AssinaturaRequest{
			Amount:   p.precos.Basico,
			Metadata: metadados,
		})
		if resp != nil {
			secret, subID = resp.ClientSecret, resp.SubscriptionID
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if p.geracao != f.geracao {
		// Outro pedido começou depois deste; o resultado dele é que vale.
		return nil
	}
	if err != nil {
		slog.Error("Erro ao preparar o pagamento", "coaching", p.coaching, "error", err)
		f.estado, f.erro = ErroIntencao, mensagemDe(err, MsgFalhaInicializacao)
		return err
	}
	f.estado, f.clientSecret, f.subscriptionID = IntencaoPronta, secret, subID
	return nil
}

// Enviar confirma o pagamento com o cartão informado.
func (f *Fluxo) Enviar(ctx context.Context, cartao string) error {
	f.mu.Lock()
	switch {
	case f.estado == Enviando:
		f.mu.Unlock()
		return ErrEnvioEmAndamento
	case f.estado == Sucesso:
		f.mu.Unlock()
		return ErrCheckoutConcluido
	case f.clientSecret == "" || (f.estado != IntencaoPronta && f.estado != Falhou):
		f.mu.Unlock()
		return ErrIntencaoNaoPronta
	case strings.TrimSpace(cartao) == "":
		f.mu.Unlock()
		return ErrCartaoObrigatorio
	}
	f.estado, f.erro = Enviando, ""
	secret, subID, dados, coaching, total := f.clientSecret, f.subscriptionID, f.dados, f.coaching, f.total()
	f.mu.Unlock()

	status, err := f.confirmador.Confirmar(ctx, secret, cartao, Cobranca{
		Nome:  dados.nomeCompleto(),
		Email: strings.TrimSpace(dados.Email),
	})
	if err == nil && status != string(stripe.PaymentIntentStatusSucceeded) {
		err = ErrPagamentoIncompleto
	}
	if err != nil {
		f.mu.Lock()
		msg := mensagemDe(err, err.Error())
		if errors.Is(err, ErrPagamentoIncompleto) {
			msg = MsgPagamentoIncompleto
		}
		f.estado, f.erro = Falhou, msg
		f.mu.Unlock()
		slog.Warn("Pagamento não concluído", "status", status, "error", err)
		return err
	}

	pacote := domain.PacoteDoCoaching(coaching)
	if f.opcoes.Armazenamento != nil {
		agora := f.opcoes.Agora().UTC()
		if err := f.opcoes.Armazenamento.Salvar(Sessao{
			Email:           strings.TrimSpace(dados.Email),
			FirstName:       dados.FirstName,
			LastName:        dados.LastName,
			PackageType:     pacote,
			IncludeCoaching: &coaching,
			PurchaseDate:    &agora,
		}); err != nil {
			// O pagamento já foi feito; a sessão local só afeta a navegação.
			slog.Error("Erro ao gravar a sessão local", "error", err)
		}
	}

	f.mu.Lock()
	f.estado = Sucesso
	f.mu.Unlock()

	if f.opcoes.AoConcluir != nil {
		f.opcoes.AoConcluir(Compra{
			Email:          strings.TrimSpace(dados.Email),
			Pacote:         pacote,
			IncluiCoaching: coaching,
			Total:          total,
			ClientSecret:   secret,
			SubscriptionID: subID,
		})
	}
	return nil
}

// mensagemDe escolhe o texto mostrado ao cliente: o do servidor ou do processador quando houver.
func mensagemDe(err error, padrao string) string {
	var api *ErroAPI
	if errors.As(err, &api) && api.Mensagem != "" {
		return api.Mensagem
	}
	var pag *ErroPagamento
	if errors.As(err, &pag) && pag.Mensagem != "" {
		return pag.Mensagem
	}
	return padrao
}
