package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/willjrcristo/veoverse-checkout/internal/checkout"
)

func comprarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comprar",
		Short: "Assina o plano básico, com ou sem coaching",
		Long: `Executa o checkout contra a API: pede o client secret, confirma o cartão
na Stripe com a chave publicável e grava a compra na sessão local.

O cartão é um token de teste da Stripe, ex: tok_visa ou tok_chargeDeclined.`,
		RunE: runComprar,
	}

	cmd.Flags().String("api", envOu("CHECKOUT_API_URL", "http://localhost:8080"), "URL da API de checkout")
	cmd.Flags().String("chave-publicavel", envOu("STRIPE_PUBLISHABLE_KEY", ""), "Chave publicável da Stripe")
	cmd.Flags().String("stripe-url", envOu("STRIPE_API_URL", ""), "URL alternativa da API da Stripe (stripe-mock)")
	cmd.Flags().String("email", "", "Email (padrão: o da sessão)")
	cmd.Flags().String("nome", "", "Primeiro nome (padrão: o da sessão)")
	cmd.Flags().String("sobrenome", "", "Sobrenome (padrão: o da sessão)")
	cmd.Flags().String("indicacao", "", "Código de indicação")
	cmd.Flags().Bool("coaching", false, "Inclui o coaching premium")
	cmd.Flags().String("cartao", "tok_visa", "Token do cartão")

	return cmd
}

func runComprar(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := armazenamento(cmd)

	// Sem sessão o site manda para /account antes do checkout.
	sessao, err := a.Carregar()
	if err != nil {
		return err
	}
	if sessao == nil {
		return errors.New("nenhuma sessão: rode 'checkout entrar' antes")
	}

	chave, _ := cmd.Flags().GetString("chave-publicavel")
	if chave == "" {
		return errors.New("STRIPE_PUBLISHABLE_KEY não definida")
	}
	apiURL, _ := cmd.Flags().GetString("api")
	stripeURL, _ := cmd.Flags().GetString("stripe-url")
	coaching, _ := cmd.Flags().GetBool("coaching")
	cartao, _ := cmd.Flags().GetString("cartao")

	dados := checkout.DadosCliente{
		Email:     flagOu(cmd, "email", sessao.Email),
		FirstName: flagOu(cmd, "nome", sessao.FirstName),
		LastName:  flagOu(cmd, "sobrenome", sessao.LastName),
	}
	dados.CodigoIndicacao, _ = cmd.Flags().GetString("indicacao")

	fluxo := checkout.NewFluxo(
		checkout.NewClienteHTTP(apiURL),
		checkout.NewConfirmadorStripe(chave, stripeURL),
		checkout.Opcoes{
			Armazenamento: a,
			AoConcluir: func(c checkout.Compra) {
				fmt.Printf("Pagamento confirmado: %s (%s) - total %.2f\n", c.Email, c.Pacote, c.Total)
			},
		},
	)

	if coaching {
		if err := fluxo.AlternarCoaching(ctx, true); err != nil {
			return err
		}
	}
	if err := fluxo.AtualizarDados(ctx, dados); err != nil {
		_, msg := fluxo.Estado()
		return fmt.Errorf("não foi possível iniciar o pagamento: %s", msg)
	}
	if estado, _ := fluxo.Estado(); estado != checkout.IntencaoPronta {
		return fmt.Errorf("dados incompletos: informe email, nome e sobrenome")
	}

	fmt.Printf("Total: %.2f\n", fluxo.Total())
	if err := fluxo.Enviar(ctx, cartao); err != nil {
		if _, msg := fluxo.Estado(); msg != "" {
			return errors.New(msg)
		}
		return err
	}
	return nil
}

func flagOu(cmd *cobra.Command, nome, padrao string) string {
	if v, _ := cmd.Flags().GetString(nome); v != "" {
		return v
	}
	return padrao
}
