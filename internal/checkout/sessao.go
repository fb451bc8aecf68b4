package checkout

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ChaveSessao é a chave sob a qual o navegador guarda o usuário logado ou que comprou.
const ChaveSessao = "veoverse_user"

// Destinos da navegação a partir dos botões de compra.
const (
	DestinoCheckout = "/checkout"
	DestinoConta    = "/account"
)

// Sessao é o blob gravado localmente. Só serve para decidir a navegação: não é
// prova de login nem de pagamento, quem decide isso é o servidor.
type Sessao struct {
	Email           string     `json:"email"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	LoginMethod     string     `json:"loginMethod,omitempty"`
	LoginDate       *time.Time `json:"loginDate,omitempty"`
	SignupDate      *time.Time `json:"signupDate,omitempty"`
	PackageType     string     `json:"packageType,omitempty"`
	IncludeCoaching *bool      `json:"includeCoaching,omitempty"`
	PurchaseDate    *time.Time `json:"purchaseDate,omitempty"`
}

// Armazenamento guarda e recupera a sessão local.
type Armazenamento interface {
	Salvar(s Sessao) error
	// Carregar devolve nil, nil quando não há sessão.
	Carregar() (*Sessao, error)
	Limpar() error
}

// ArmazenamentoLocal imita o localStorage: um arquivo JSON com pares chave/valor,
// onde o valor de ChaveSessao é o blob da sessão serializado.
type ArmazenamentoLocal struct {
	mu      sync.Mutex
	arquivo string
}

// NewArmazenamentoLocal usa o arquivo informado, criando o diretório na primeira gravação.
func NewArmazenamentoLocal(arquivo string) *ArmazenamentoLocal {
	return &ArmazenamentoLocal{arquivo: arquivo}
}

func (a *ArmazenamentoLocal) Salvar(s Sessao) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	itens, err := a.ler()
	if err != nil {
		return err
	}
	blob, err := json.Marshal(s)
	if err != nil {
		return err
	}
	itens[ChaveSessao] = string(blob)
	return a.gravar(itens)
}

func (a *ArmazenamentoLocal) Carregar() (*Sessao, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	itens, err := a.ler()
	if err != nil {
		return nil, err
	}
	blob, ok := itens[ChaveSessao]
	if !ok || blob == "" {
		return nil, nil
	}
	var s Sessao
	if err := json.Unmarshal([]byte(blob), &s); err != nil {
		return nil, fmt.Errorf("sessão local corrompida: %w", err)
	}
	return &s, nil
}

func (a *ArmazenamentoLocal) Limpar() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	itens, err := a.ler()
	if err != nil {
		return err
	}
	delete(itens, ChaveSessao)
	return a.gravar(itens)
}

func (a *ArmazenamentoLocal) ler() (map[string]string, error) {
	dados, err := os.ReadFile(a.arquivo)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	itens := map[string]string{}
	if len(dados) == 0 {
		return itens, nil
	}
	if err := json.Unmarshal(dados, &itens); err != nil {
		return nil, fmt.Errorf("armazenamento local inválido em %s: %w", a.arquivo, err)
	}
	return itens, nil
}

func (a *ArmazenamentoLocal) gravar(itens map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(a.arquivo), 0o700); err != nil {
		return err
	}
	dados, err := json.MarshalIndent(itens, "", "  ")
	if err != nil {
		return err
	}
	// Grava num temporário e renomeia para não deixar o arquivo pela metade.
	tmp := a.arquivo + ".tmp"
	if err := os.WriteFile(tmp, dados, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, a.arquivo)
}

// Destino decide para onde os botões de compra levam: checkout se há sessão, conta se não.
func Destino(a Armazenamento) (string, error) {
	s, err := a.Carregar()
	if err != nil {
		return "", err
	}
	if s == nil {
		return DestinoConta, nil
	}
	return DestinoCheckout, nil
}

// Métodos de login aceitos pela página de conta.
const (
	LoginGoogle = "google"
	LoginEmail  = "email"
)

// ErrMetodoLogin indica um método de login desconhecido.
var ErrMetodoLogin = errors.New("método de login inválido")

// Entrar grava a sessão do login simulado. Não há autenticação de verdade:
// com cadastro=true a data vai em signupDate, senão em loginDate.
func Entrar(a Armazenamento, email, nome, metodo string, cadastro bool, agora time.Time) (*Sessao, error) {
	if metodo != LoginGoogle && metodo != LoginEmail {
		return nil, fmt.Errorf("%w: %q", ErrMetodoLogin, metodo)
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrDadosIncompletos
	}

	primeiro, resto, _ := strings.Cut(strings.TrimSpace(nome), " ")
	s := Sessao{
		Email:       email,
		FirstName:   primeiro,
		LastName:    strings.TrimSpace(resto),
		LoginMethod: metodo,
	}
	quando := agora.UTC()
	if cadastro {
		s.SignupDate = &quando
	} else {
		s.LoginDate = &quando
	}

	if err := a.Salvar(s); err != nil {
		return nil, err
	}
	return &s, nil
}
