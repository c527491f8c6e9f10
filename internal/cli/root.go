// Package cli implements the brain CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/malegalny/Brain/internal/asset"
	"github.com/malegalny/Brain/internal/categorize"
	"github.com/malegalny/Brain/internal/config"
	"github.com/malegalny/Brain/internal/metrics"
	"github.com/malegalny/Brain/internal/store"
)

var (
	dbPath      string
	storagePath string
	rulesPath   string
	formatFlag  string

	cfg *config.Config
	log *logrus.Logger
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "brain",
	Short: "Ingest and browse chat-export archives",
	Long:  "Ingest chat-export zips into a local SQLite database, link their files and sort conversations into categories.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c
		log = cfg.Logger()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		flushMetrics()
	},
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $BRAIN_DB or ~/.brain/brain.db)")
	RootCmd.PersistentFlags().StringVar(&storagePath, "storage", "", "Asset storage root (default: $BRAIN_STORAGE or ~/.brain/storage)")
	RootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "Category rule file (default: $BRAIN_RULES or built-in rules)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.DBPath
}

func getStorageRoot() string {
	if storagePath != "" {
		return storagePath
	}
	return cfg.StorageRoot
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath(), log)
}

func openLayout() (asset.Layout, error) {
	return asset.NewLayout(getStorageRoot())
}

func loadRules() (categorize.Rules, error) {
	path := rulesPath
	if path == "" {
		path = cfg.RulesPath
	}
	if path == "" {
		return categorize.DefaultRules(), nil
	}
	return categorize.LoadRules(path)
}

func flushMetrics() {
	if cfg == nil || cfg.MetricsFile == "" {
		return
	}
	if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
		log.WithError(err).Warn("writing metrics textfile")
	}
}

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func textOutput() bool {
	return formatFlag == "text"
}

func exitErr(msg string, err error) {
	flushMetrics()
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
