package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/malegalny/Brain/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "assets <export-id>",
		Short: "List an export's assets grouped by kind",
		Args:  cobra.ExactArgs(1),
		Run:   runAssets,
	}

	cmd.Flags().StringP("kind", "k", "", "Only this kind: image, audio or file")
	cmd.Flags().Bool("unlinked", false, "Only assets no message mentions")
	cmd.Flags().Bool("abs", false, "Print absolute storage paths")

	RootCmd.AddCommand(cmd)
}

func runAssets(cmd *cobra.Command, args []string) {
	kind, _ := cmd.Flags().GetString("kind")
	unlinked, _ := cmd.Flags().GetBool("unlinked")
	abs, _ := cmd.Flags().GetBool("abs")

	layout, err := openLayout()
	if err != nil {
		exitErr("storage", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if _, err := s.GetExport(cmd.Context(), args[0]); err != nil {
		exitErr("get export", err)
	}
	all, err := s.ListAssets(cmd.Context(), args[0])
	if err != nil {
		exitErr("list assets", err)
	}

	var assets []model.Asset
	for _, a := range all {
		if kind != "" && string(a.Kind) != kind {
			continue
		}
		if unlinked && a.Linked() {
			continue
		}
		if abs {
			a.StoragePath = layout.Abs(a.StoragePath)
		}
		assets = append(assets, a)
	}

	if textOutput() {
		for _, a := range assets {
			fmt.Printf("%s\t%s\t%d\t%s\n", a.Kind, a.OriginalName, a.ByteSize, a.StoragePath)
		}
		return
	}
	printJSON(groupByKind(assets))
}
