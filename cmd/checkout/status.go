package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/willjrcristo/veoverse-checkout/internal/checkout"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Mostra a sessão local e para onde os botões de compra levam",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	a := armazenamento(cmd)

	fmt.Println("VEO VERSE")
	fmt.Println(strings.Repeat("=", 40))

	destino, err := checkout.Destino(a)
	if err != nil {
		return err
	}
	fmt.Printf("  Destino:   %s\n", destino)

	s, err := a.Carregar()
	if err != nil {
		return err
	}
	if s == nil {
		fmt.Println("  Sessão:    nenhuma (use 'checkout entrar')")
		return nil
	}

	fmt.Printf("  Email:     %s\n", s.Email)
	fmt.Printf("  Nome:      %s %s\n", s.FirstName, s.LastName)
	if s.LoginMethod != "" {
		fmt.Printf("  Login:     %s\n", s.LoginMethod)
	}
	if s.PackageType != "" {
		fmt.Printf("  Pacote:    %s\n", s.PackageType)
	}
	if s.PurchaseDate != nil {
		fmt.Printf("  Compra:    %s\n", s.PurchaseDate.Format("2006-01-02 15:04"))
	}
	return nil
}
