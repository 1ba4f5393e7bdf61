package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ledgerhand/ledgerhand/internal/session"
	"github.com/ledgerhand/ledgerhand/internal/storage"
)

func propagateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "propagate <transaction-id>",
		Short: "Propagate an explanation to similar transactions",
		Long: `Set (or reuse) a transaction's explanation and copy it to similar
unexplained transactions after your confirmation.

The similar transactions are found either locally, by scoring stored
descriptions, or through a configured similarity-search endpoint. The
decision applies to the whole candidate list; each copy is reported
individually.

Examples:
  ledgerhand propagate txn-42 --explanation "Stationery"
  ledgerhand propagate txn-42        # reuse the stored explanation`,
		Args: cobra.ExactArgs(1),
		RunE: runPropagate,
	}

	cmd.Flags().StringP("explanation", "e", "", "Explanation to set before searching (default: the stored one)")
	cmd.Flags().Bool("yes", false, "Confirm propagation without prompting")

	return cmd
}

func runPropagate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	transactionID := args[0]
	explanation, _ := cmd.Flags().GetString("explanation")
	assumeYes, _ := cmd.Flags().GetBool("yes")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	txn, err := store.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return err
	}

	if explanation == "" {
		explanation = txn.Explanation
	}
	if explanation == "" {
		return fmt.Errorf("transaction %s has no explanation; supply one with --explanation", transactionID)
	}
	if explanation != txn.Explanation {
		if err := store.UpdateExplanation(ctx, transactionID, explanation); err != nil {
			return fmt.Errorf("failed to save explanation: %w", err)
		}
		txn.Explanation = explanation
	}

	searcher, replicator, err := sessionCollaborators(store)
	if err != nil {
		return err
	}

	s := session.New(*txn, searcher, replicator, session.WithDebounce(50*time.Millisecond))
	defer s.Close()

	s.Edit(explanation)
	if err := waitForSearch(s); err != nil {
		return err
	}

	switch s.State() {
	case session.StateSearchFailed:
		return s.LastError()
	case session.StateNoCandidates:
		fmt.Println("No similar transactions found.")
		return nil
	case session.StateHasCandidates:
		// fall through to confirmation
	default:
		return fmt.Errorf("unexpected session state %s", s.State())
	}

	candidates := s.Candidates()
	printCandidates(explanation, candidates)

	if !assumeYes && !confirmPrompt(len(candidates)) {
		s.Decline()
		fmt.Println("Declined; nothing was changed.")
		return nil
	}

	results, err := s.Confirm(ctx)
	if err != nil {
		return err
	}

	succeeded := 0
	for _, result := range results {
		if result.Succeeded() {
			succeeded++
			fmt.Printf("  ok    %s\n", result.TargetID)
		} else {
			fmt.Printf("  FAIL  %s: %v\n", result.TargetID, result.Err)
		}
	}
	fmt.Printf("Propagated to %d of %d transaction(s).\n", succeeded, len(results))
	return nil
}

// sessionCollaborators picks the search and replication implementations:
// configured HTTP endpoints when present, local storage otherwise.
func sessionCollaborators(store *storage.SQLiteStorage) (session.Searcher, session.Replicator, error) {
	searchEndpoint := viper.GetString("propagation.search_endpoint")
	replicateEndpoint := viper.GetString("propagation.replicate_endpoint")
	timeout := viper.GetDuration("propagation.timeout")

	if searchEndpoint == "" && replicateEndpoint == "" {
		return storage.NewSimilaritySearcher(store), storage.NewExplanationReplicator(store), nil
	}
	if searchEndpoint == "" || replicateEndpoint == "" {
		return nil, nil, fmt.Errorf("propagation.search_endpoint and propagation.replicate_endpoint must both be set")
	}

	searcher, err := session.NewHTTPSearcher(searchEndpoint, timeout)
	if err != nil {
		return nil, nil, err
	}
	replicator, err := session.NewHTTPReplicator(replicateEndpoint, timeout)
	if err != nil {
		return nil, nil, err
	}
	return searcher, replicator, nil
}

// waitForSearch blocks until the debounced search settles.
func waitForSearch(s *session.Session) error {
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		switch s.State() {
		case session.StateEditing, session.StateSearching:
			time.Sleep(25 * time.Millisecond)
		default:
			return nil
		}
	}
	return fmt.Errorf("similarity search timed out")
}

func printCandidates(explanation string, candidates []session.Candidate) {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	fmt.Println(headerStyle.Render(fmt.Sprintf("Similar transactions for %q", explanation)))
	for _, candidate := range candidates {
		fmt.Printf("  %s  %s  %s\n",
			candidate.ID,
			truncateText(candidate.Description, 50),
			dimStyle.Render(fmt.Sprintf("(similarity %.2f)", candidate.TextSimilarity)))
	}
}

func confirmPrompt(count int) bool {
	fmt.Printf("Propagate the explanation to all %d transaction(s)? [y/N] ", count)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
