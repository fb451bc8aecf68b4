package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/willjrcristo/veoverse-checkout/internal/checkout"
)

func entrarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entrar",
		Short: "Simula o login da página de conta",
		Long: `Grava a sessão local que libera o checkout.
Não há autenticação: é o mesmo stub da página /account.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			nome, _ := cmd.Flags().GetString("nome")
			metodo, _ := cmd.Flags().GetString("metodo")
			cadastro, _ := cmd.Flags().GetBool("cadastro")

			s, err := checkout.Entrar(armazenamento(cmd), email, nome, metodo, cadastro, time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("Sessão gravada para %s (%s)\n", s.Email, s.LoginMethod)
			return nil
		},
	}

	cmd.Flags().String("email", "user@example.com", "Email do usuário")
	cmd.Flags().String("nome", "User Name", "Nome completo")
	cmd.Flags().String("metodo", checkout.LoginEmail, "Método de login (email, google)")
	cmd.Flags().Bool("cadastro", false, "Registra como cadastro em vez de login")

	return cmd
}

func sairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sair",
		Short: "Apaga a sessão local",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := armazenamento(cmd).Limpar(); err != nil {
				return err
			}
			fmt.Println("Sessão removida")
			return nil
		},
	}
}
