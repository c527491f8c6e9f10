package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/malegalny/Brain/internal/store"
)

func init() {
	list := &cobra.Command{
		Use:   "categories <export-id>",
		Short: "List an export's categories with conversation counts",
		Args:  cobra.ExactArgs(1),
		Run:   runCategories,
	}

	rename := &cobra.Command{
		Use:   "rename <export-id> <category-id> <name>",
		Short: "Rename a category",
		Args:  cobra.ExactArgs(3),
		Run:   runRename,
	}

	move := &cobra.Command{
		Use:   "move <export-id> <conversation-id>",
		Short: "Move a conversation into exactly one category",
		Args:  cobra.ExactArgs(2),
		Run:   runMove,
	}
	move.Flags().String("category-id", "", "Existing category id")
	move.Flags().String("new-category", "", "Name of a category to create or reuse (wins over --category-id)")

	RootCmd.AddCommand(list, rename, move)
}

func runCategories(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if _, err := s.GetExport(cmd.Context(), args[0]); err != nil {
		exitErr("get export", err)
	}
	cats, err := s.ListCategories(cmd.Context(), args[0])
	if err != nil {
		exitErr("list categories", err)
	}

	if textOutput() {
		for _, c := range cats {
			owner := "system"
			if !c.IsSystem {
				owner = "manual"
			}
			fmt.Printf("%s\t%s\t%d\t%s\n", c.ID, c.Slug, c.Count, owner)
		}
		return
	}
	printJSON(cats)
}

func runRename(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	before, err := s.GetCategory(cmd.Context(), args[0], args[1])
	if err != nil {
		exitErr("get category", err)
	}
	c, err := s.RenameCategory(cmd.Context(), args[0], args[1], args[2])
	if err != nil {
		exitErr("rename", err)
	}

	log.WithFields(logrus.Fields{
		"category_id": c.ID,
		"from":        before.Slug,
		"to":          c.Slug,
	}).Info("category renamed")
	printJSON(c)
}

func runMove(cmd *cobra.Command, args []string) {
	categoryID, _ := cmd.Flags().GetString("category-id")
	newCategory, _ := cmd.Flags().GetString("new-category")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	edge, err := s.MoveConversation(cmd.Context(), store.MoveParams{
		ExportID:       args[0],
		ConversationID: args[1],
		CategoryID:     categoryID,
		NewCategory:    newCategory,
	})
	if err != nil {
		exitErr("move", err)
	}

	log.WithField("conversation_id", edge.ConversationID).WithField("category", edge.CategorySlug).Info("conversation moved")
	printJSON(edge)
}
