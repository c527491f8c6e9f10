package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/malegalny/Brain/internal/model"
)

func init() {
	list := &cobra.Command{
		Use:   "exports",
		Short: "List exports, newest first",
		Run:   runExports,
	}

	show := &cobra.Command{
		Use:   "show <export-id>",
		Short: "Show an export with its categories and assets",
		Args:  cobra.ExactArgs(1),
		Run:   runShow,
	}

	RootCmd.AddCommand(list, show)
}

func runExports(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	exports, err := s.ListExports(cmd.Context())
	if err != nil {
		exitErr("list exports", err)
	}

	if textOutput() {
		for _, e := range exports {
			line := fmt.Sprintf("%s\t%s\t%s\t%s", e.ID, e.Status, e.CreatedAt.Format("2006-01-02 15:04"), e.Name)
			if e.ErrorMessage != "" {
				line += "\t" + e.ErrorMessage
			}
			fmt.Println(line)
		}
		return
	}
	printJSON(exports)
}

type exportView struct {
	Export     *model.Export                     `json:"export"`
	Categories []model.Category                  `json:"categories"`
	Assets     map[model.AssetKind][]model.Asset `json:"assets"`
}

func runShow(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	e, err := s.GetExport(ctx, args[0])
	if err != nil {
		exitErr("get export", err)
	}
	cats, err := s.ListCategories(ctx, e.ID)
	if err != nil {
		exitErr("list categories", err)
	}
	assets, err := s.ListAssets(ctx, e.ID)
	if err != nil {
		exitErr("list assets", err)
	}

	view := exportView{Export: e, Categories: cats, Assets: groupByKind(assets)}

	if textOutput() {
		fmt.Printf("%s  %s  [%s]\n", e.ID, e.Name, e.Status)
		if e.ErrorMessage != "" {
			fmt.Printf("error: %s\n", e.ErrorMessage)
		}
		for _, c := range cats {
			fmt.Printf("  %-30s %4d  %s\n", c.Name, c.Count, c.ID)
		}
		for _, kind := range []model.AssetKind{model.KindImage, model.KindAudio, model.KindFile} {
			fmt.Printf("  %s: %d\n", kind, len(view.Assets[kind]))
		}
		return
	}
	printJSON(view)
}

func groupByKind(assets []model.Asset) map[model.AssetKind][]model.Asset {
	out := map[model.AssetKind][]model.Asset{}
	for _, a := range assets {
		out[a.Kind] = append(out[a.Kind], a)
	}
	return out
}
