package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/malegalny/Brain/internal/ingest"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest <archive.zip>",
		Short: "Ingest a chat-export archive",
		Args:  cobra.ExactArgs(1),
		Run:   runIngest,
	}

	cmd.Flags().StringP("name", "n", "", "Display name (default: archive file name)")

	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	}

	rules, err := loadRules()
	if err != nil {
		exitErr("load rules", err)
	}
	layout, err := openLayout()
	if err != nil {
		exitErr("storage", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	svc := ingest.New(s, layout, rules, log)
	rep, err := svc.Ingest(cmd.Context(), name, args[0])
	if err != nil {
		if rep != nil {
			exitErr(fmt.Sprintf("ingest export %s", rep.ExportID), err)
		}
		exitErr("ingest", err)
	}

	if textOutput() {
		fmt.Printf("%s %s: %d conversations, %d messages, %d assets (%d linked), %d skipped\n",
			rep.ExportID, rep.Status, rep.Conversations, rep.Messages, rep.Assets, rep.Linked, rep.Skipped)
		return
	}
	printJSON(rep)
}
