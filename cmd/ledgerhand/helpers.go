package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ledgerhand/ledgerhand/internal/common"
	"github.com/ledgerhand/ledgerhand/internal/remote"
	"github.com/ledgerhand/ledgerhand/internal/rules"
	"github.com/ledgerhand/ledgerhand/internal/storage"
)

// expandPath expands ~ and environment variables in a configured path.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// databasePath returns the configured database location.
func databasePath() string {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/ledgerhand/ledgerhand.db"
	}
	return expandPath(dbPath)
}

// initStorage opens the database and brings the schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(databasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadRules reads the keyword rule table from configuration. Rule order
// in the config file is match order.
func loadRules() ([]rules.Rule, error) {
	var table []rules.Rule
	if err := viper.UnmarshalKey("rules", &table); err != nil {
		return nil, fmt.Errorf("%w: rules: %v", common.ErrInvalidConfig, err)
	}
	return table, nil
}

// newRemoteClassifier builds the classifier from configuration. The
// credential is required; there is no anonymous access to the service.
func newRemoteClassifier() (*remote.Classifier, error) {
	cfg := remote.Config{
		Endpoint:   viper.GetString("classifier.endpoint"),
		APIKey:     viper.GetString("classifier.api_key"),
		Model:      viper.GetString("classifier.model"),
		Timeout:    viper.GetDuration("classifier.timeout"),
		RetryDelay: viper.GetDuration("classifier.retry_delay"),
		CacheTTL:   viper.GetDuration("classifier.cache_ttl"),
		MaxRetries: viper.GetInt("classifier.max_retries"),
		RateLimit:  viper.GetInt("classifier.rate_limit"),
	}

	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: classifier.endpoint", common.ErrMissingConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: classifier.api_key", common.ErrMissingConfig)
	}

	return remote.NewClassifier(cfg, slog.Default())
}
