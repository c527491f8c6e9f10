package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/malegalny/Brain/internal/model"
	"github.com/malegalny/Brain/internal/store"
)

func init() {
	list := &cobra.Command{
		Use:   "conversations <export-id>",
		Short: "List an export's conversations",
		Args:  cobra.ExactArgs(1),
		Run:   runConversations,
	}
	list.Flags().StringP("category", "c", "", "Filter by category slug")
	list.Flags().StringP("query", "q", "", "Case-insensitive substring of message text")
	list.Flags().IntP("limit", "l", 0, "Max results (0 = all)")

	msgs := &cobra.Command{
		Use:   "messages <export-id> <conversation-id>",
		Short: "Show a conversation with its messages, categories and assets",
		Args:  cobra.ExactArgs(2),
		Run:   runMessages,
	}

	RootCmd.AddCommand(list, msgs)
}

func runConversations(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")
	query, _ := cmd.Flags().GetString("query")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if _, err := s.GetExport(cmd.Context(), args[0]); err != nil {
		exitErr("get export", err)
	}

	convs, err := s.ListConversations(cmd.Context(), store.ConversationFilter{
		ExportID:     args[0],
		CategorySlug: category,
		Query:        query,
		Limit:        limit,
	})
	if err != nil {
		exitErr("list conversations", err)
	}

	if textOutput() {
		for _, c := range convs {
			date := "-"
			if c.ConversationDate != nil {
				date = c.ConversationDate.Format("2006-01-02")
			}
			fmt.Printf("%s\t%s\t%s\n", c.ID, date, c.Title)
		}
		return
	}
	printJSON(convs)
}

type conversationView struct {
	Conversation *model.Conversation          `json:"conversation"`
	Categories   []model.ConversationCategory `json:"categories"`
	Messages     []model.Message              `json:"messages"`
	Assets       []model.Asset                `json:"assets"`
}

func runMessages(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	conv, err := s.GetConversation(ctx, args[0], args[1])
	if err != nil {
		exitErr("get conversation", err)
	}
	cats, err := s.ConversationCategories(ctx, conv.ID)
	if err != nil {
		exitErr("conversation categories", err)
	}
	msgs, err := s.Messages(ctx, conv.ID)
	if err != nil {
		exitErr("messages", err)
	}
	assets, err := s.ConversationAssets(ctx, conv.ID)
	if err != nil {
		exitErr("conversation assets", err)
	}

	if textOutput() {
		fmt.Printf("# %s\n", conv.Title)
		for _, c := range cats {
			fmt.Printf("[%s/%s] ", c.CategorySlug, c.Source)
		}
		fmt.Println()
		for _, m := range msgs {
			fmt.Printf("\n%s:\n%s\n", m.Role, m.Text)
		}
		for _, a := range assets {
			fmt.Printf("\n(%s) %s\n", a.Kind, a.StoragePath)
		}
		return
	}
	printJSON(conversationView{Conversation: conv, Categories: cats, Messages: msgs, Assets: assets})
}
