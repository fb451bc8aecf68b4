package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/willjrcristo/veoverse-checkout/internal/checkout"
)

var Version = "dev"

func main() {
	// Mesmo .env da API; ausente não é erro.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "checkout",
		Short:        "Checkout do VEO VERSE pelo terminal",
		Version:      Version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("armazenamento", caminhoPadrao(), "Arquivo que faz o papel do localStorage")

	rootCmd.AddCommand(entrarCmd())
	rootCmd.AddCommand(comprarCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(sairCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func caminhoPadrao() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "veoverse", "storage.json")
}

func armazenamento(cmd *cobra.Command) *checkout.ArmazenamentoLocal {
	arquivo, _ := cmd.Flags().GetString("armazenamento")
	return checkout.NewArmazenamentoLocal(arquivo)
}

func envOu(chave, padrao string) string {
	if v := os.Getenv(chave); v != "" {
		return v
	}
	return padrao
}
