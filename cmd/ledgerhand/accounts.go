package main

import (
	"fmt"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ledgerhand/ledgerhand/internal/model"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage the chart of accounts",
	}

	cmd.AddCommand(accountsListCmd())
	cmd.AddCommand(accountsAddCmd())

	return cmd
}

func accountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the chart of accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := store.Close(); closeErr != nil {
					slog.Error("Failed to close database", "error", closeErr)
				}
			}()

			accounts, err := store.ListAccounts(ctx)
			if err != nil {
				return err
			}
			if len(accounts) == 0 {
				fmt.Println("No accounts defined yet. Add one with 'ledgerhand accounts add'.")
				return nil
			}

			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
			dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

			fmt.Println(headerStyle.Render(fmt.Sprintf("Chart of accounts (%d)", len(accounts))))
			for _, account := range accounts {
				category := account.Category
				if account.SubCategory != "" {
					category += " / " + account.SubCategory
				}
				fmt.Printf("  %-8s %-30s %s\n", account.ID, account.Name, dimStyle.Render(category))
			}
			return nil
		},
	}
}

func accountsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			id, _ := cmd.Flags().GetString("id")
			name, _ := cmd.Flags().GetString("name")
			category, _ := cmd.Flags().GetString("category")
			subCategory, _ := cmd.Flags().GetString("sub-category")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := store.Close(); closeErr != nil {
					slog.Error("Failed to close database", "error", closeErr)
				}
			}()

			account := &model.Account{
				ID:          id,
				Name:        name,
				Category:    category,
				SubCategory: subCategory,
			}
			if err := store.SaveAccount(ctx, account); err != nil {
				return err
			}

			fmt.Printf("Saved account %s (%s).\n", account.ID, account.Name)
			return nil
		},
	}

	cmd.Flags().String("id", "", "Account identifier (required)")
	cmd.Flags().String("name", "", "Account name (required)")
	cmd.Flags().String("category", "", "Account category (required)")
	cmd.Flags().String("sub-category", "", "Optional sub-category")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}
