package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ledgerhand/ledgerhand/internal/engine"
	"github.com/ledgerhand/ledgerhand/internal/model"
	"github.com/ledgerhand/ledgerhand/internal/remote"
	"github.com/ledgerhand/ledgerhand/internal/service"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify unresolved transactions",
		Long: `Run the classification pipeline over unclassified transactions.

Local stages run first: explanations propagate between near-duplicate
descriptions, the keyword rule table is applied, and frequency ranking
attaches a default suggestion. Only what remains unresolved is sent to
the remote classification service.

Examples:
  ledgerhand classify               # classify ALL unclassified transactions
  ledgerhand classify --year 2024   # limit to 2024
  ledgerhand classify --month 2024-03
  ledgerhand classify --apply       # persist propagated explanations
  ledgerhand classify --dry-run     # skip the remote service entirely`,
		RunE: runClassify,
	}

	cmd.Flags().IntP("year", "y", 0, "Year to classify transactions for (0 = all years)")
	cmd.Flags().StringP("month", "m", "", "Specific month to classify (format: 2024-01)")
	cmd.Flags().Bool("apply", false, "Persist propagated explanations to the database")
	cmd.Flags().Bool("dry-run", false, "Run local stages only, without calling the remote service")

	_ = viper.BindPFlag("classification.year", cmd.Flags().Lookup("year"))
	_ = viper.BindPFlag("classification.month", cmd.Flags().Lookup("month"))
	_ = viper.BindPFlag("classification.apply", cmd.Flags().Lookup("apply"))
	_ = viper.BindPFlag("classification.dry_run", cmd.Flags().Lookup("dry-run"))

	return cmd
}

func runClassify(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	year := viper.GetInt("classification.year")
	month := viper.GetString("classification.month")
	apply := viper.GetBool("classification.apply")
	dryRun := viper.GetBool("classification.dry_run")

	filter := service.TransactionFilter{Unclassified: true}
	if month != "" {
		parsed, err := time.Parse("2006-01", month)
		if err != nil {
			return fmt.Errorf("invalid month format (use YYYY-MM): %w", err)
		}
		end := parsed.AddDate(0, 1, -1)
		filter.StartDate = &parsed
		filter.EndDate = &end
	} else if year > 0 {
		start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)
		filter.StartDate = &start
		filter.EndDate = &end
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	transactions, err := store.GetTransactions(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}
	if len(transactions) == 0 {
		fmt.Println("Nothing to classify.")
		return nil
	}

	history, err := store.GetTransactions(ctx, service.TransactionFilter{ExplainedOnly: true})
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}
	accountNames := make(map[string]string, len(accounts))
	for _, account := range accounts {
		accountNames[account.ID] = account.Name
	}

	ruleTable, err := loadRules()
	if err != nil {
		return err
	}

	var classifier engine.Classifier
	if dryRun {
		slog.Info("Running in dry-run mode - the remote service will not be called")
		classifier = remote.NewMockClassifier()
	} else {
		remoteClassifier, clientErr := newRemoteClassifier()
		if clientErr != nil {
			return clientErr
		}
		defer func() { _ = remoteClassifier.Close() }()
		classifier = remoteClassifier
	}

	// The bar tracks remote calls only; locally resolved transactions
	// never reach it. The engine reports the fan-out size, so the bar is
	// sized on the first tick.
	var bar *progressbar.ProgressBar
	cfg := engine.DefaultConfig()
	cfg.MaxConcurrent = viper.GetInt("classification.max_concurrent")
	cfg.Progress = func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Classifying transactions..."),
			)
		}
		_ = bar.Set(done)
	}

	orchestrator := engine.New(classifier, cfg)
	result, err := orchestrator.ClassifyBatch(ctx, engine.Batch{
		Transactions: transactions,
		Rules:        ruleTable,
		History:      history,
	})
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	printResult(result, accountNames)

	if apply {
		byID := make(map[string]model.Transaction, len(result.Transactions))
		for _, txn := range result.Transactions {
			byID[txn.ID] = txn
		}
		applied := 0
		for _, request := range result.PropagationRequests() {
			for _, target := range request.Targets {
				txn := byID[target.TargetID]
				if updateErr := store.UpdateExplanation(ctx, txn.ID, txn.Explanation); updateErr != nil {
					return fmt.Errorf("failed to persist explanation for %s: %w", txn.ID, updateErr)
				}
				applied++
			}
		}
		if applied > 0 {
			fmt.Printf("Applied %d propagated explanation(s).\n", applied)
		}
	}

	return nil
}

func printResult(result *engine.Result, accountNames map[string]string) {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	if len(result.Candidates) > 0 {
		fmt.Println(headerStyle.Render("Proposed classifications"))
		for _, txn := range result.Transactions {
			candidate, ok := result.Candidates[txn.ID]
			if !ok {
				continue
			}
			account := candidate.AccountID
			if name, ok := accountNames[account]; ok {
				account = fmt.Sprintf("%s (%s)", name, account)
			}
			fmt.Printf("  %s  %s -> %s  %s\n",
				txn.ID,
				truncateText(txn.Description, 40),
				account,
				dimStyle.Render(fmt.Sprintf("(%s, %.2f: %s)", candidate.Source, candidate.Confidence, candidate.Rationale)))
		}
	}

	unresolved := result.Unresolved()
	if len(unresolved) > 0 {
		fmt.Println(warnStyle.Render(fmt.Sprintf("Unresolved: %d transaction(s)", len(unresolved))))
		for _, id := range unresolved {
			if hint, ok := result.Hints[id]; ok {
				fmt.Printf("  %s  %s\n", id,
					dimStyle.Render(fmt.Sprintf("hint: %q (%.0f%% of history)", hint.Explanation, hint.Confidence*100)))
			} else {
				fmt.Printf("  %s\n", id)
			}
		}
	}

	if result.Summary.Total() > 0 {
		fmt.Println(warnStyle.Render("Remote failures"))
		for kind, count := range result.Summary.ByKind {
			fmt.Printf("  %s: %d\n", kind, count)
		}
	}
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
