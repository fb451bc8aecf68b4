package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/willjrcristo/veoverse-checkout/internal/domain"
)

// API é o que o fluxo precisa do servidor de checkout.
type API interface {
	CriarIntencao(ctx context.Context, req domain.IntencaoPagamentoRequest) (string, error)
	CriarAssinatura(ctx context.Context, req domain.AssinaturaRequest) (*domain.AssinaturaResponse, error)
}

// ErroAPI é uma resposta de erro do servidor, com a mensagem de {"error": ...}.
type ErroAPI struct {
	Status   int
	Mensagem string
}

func (e *ErroAPI) Error() string {
	return e.Mensagem
}

// ClienteHTTP chama os endpoints /api do servidor de checkout.
type ClienteHTTP struct {
	baseURL string
	http    *http.Client
}

// NewClienteHTTP cria o cliente. baseURL é a raiz do servidor, ex: http://localhost:8080.
func NewClienteHTTP(baseURL string) *ClienteHTTP {
	return &ClienteHTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *ClienteHTTP) CriarIntencao(ctx context.Context, req domain.IntencaoPagamentoRequest) (string, error) {
	var resp domain.IntencaoPagamentoResponse
	if err := c.post(ctx, "/api/create-payment-intent", req, &resp); err != nil {
		return "", err
	}
	return resp.ClientSecret, nil
}

func (c *ClienteHTTP) CriarAssinatura(ctx context.Context, req domain.AssinaturaRequest) (*domain.AssinaturaResponse, error) {
	var resp domain.AssinaturaResponse
	if err := c.post(ctx, "/api/create-subscription", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *ClienteHTTP) post(ctx context.Context, caminho string, corpo, destino any) error {
	dados, err := json.Marshal(corpo)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+caminho, bytes.NewReader(dados))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("chamando %s: %w", caminho, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			e.Error = "Unknown error"
		}
		return &ErroAPI{Status: resp.StatusCode, Mensagem: e.Error}
	}
	return json.NewDecoder(resp.Body).Decode(destino)
}
