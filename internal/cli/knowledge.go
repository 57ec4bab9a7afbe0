package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/devman-ai/devman/pkg/models"
)

var knowledgeCmd = &cobra.Command{
	Use:     "knowledge",
	Aliases: []string{"know"},
	Short:   "Save and search the knowledge base",
}

var (
	knowledgeSaveType    string
	knowledgeSaveDetail  string
	knowledgeSaveTags    []string
	knowledgeSaveDomains []string
	knowledgeSaveStack   []string
)

var knowledgeSaveCmd = &cobra.Command{
	Use:   "save <title> <summary>",
	Short: "Save a knowledge entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now().UTC()
		k := &models.Knowledge{
			ID:    models.NewKnowledgeID(),
			Title: args[0],
			Type:  models.KnowledgeType(knowledgeSaveType),
			Content: models.KnowledgeContent{
				Summary: args[1],
				Detail:  knowledgeSaveDetail,
			},
			Metadata: models.KnowledgeMetadata{
				Domains:   knowledgeSaveDomains,
				TechStack: knowledgeSaveStack,
			},
			Tags:      knowledgeSaveTags,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := Knowledge.Save(cmd.Context(), k); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s: %s\n", k.ID, k.Title)
		return nil
	},
}

var knowledgeSearchLimit int

var knowledgeSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search knowledge by keyword, or hybrid when embeddings are enabled",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if Searcher != nil {
			hits, err := Searcher.Search(ctx, args[0])
			if err != nil {
				return err
			}
			if len(hits) > knowledgeSearchLimit {
				hits = hits[:knowledgeSearchLimit]
			}
			for _, h := range hits {
				fmt.Fprintf(out, "%.3f  %s  [%s] %s\n", h.RerankScore, h.Knowledge.ID, h.Knowledge.Type, h.Knowledge.Title)
			}
			if len(hits) == 0 {
				fmt.Fprintln(out, "No matches.")
			}
			return nil
		}

		hits, err := Knowledge.SearchKeyword(ctx, args[0], knowledgeSearchLimit)
		if err != nil {
			return err
		}
		for _, h := range hits {
			fmt.Fprintf(out, "%.3f  %s  [%s] %s\n", h.Score, h.Knowledge.ID, h.Knowledge.Type, h.Knowledge.Title)
		}
		if len(hits) == 0 {
			fmt.Fprintln(out, "No matches.")
		}
		return nil
	},
}

var knowledgeShowCmd = &cobra.Command{
	Use:   "show <knowledge-id>",
	Short: "Show a knowledge entry in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := models.ParseKnowledgeID(args[0])
		if err != nil {
			return err
		}
		k, err := Knowledge.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID:      %s\n", k.ID)
		fmt.Fprintf(out, "Title:   %s\n", k.Title)
		fmt.Fprintf(out, "Type:    %s\n", k.Type)
		fmt.Fprintf(out, "Summary: %s\n", k.Content.Summary)
		if k.Content.Detail != "" {
			fmt.Fprintf(out, "\n%s\n", k.Content.Detail)
		}
		if len(k.Tags) > 0 {
			fmt.Fprintf(out, "Tags:    %v\n", k.Tags)
		}
		fmt.Fprintf(out, "Used:    %d times\n", k.UsageStats.TimesUsed)
		return nil
	},
}

func init() {
	knowledgeSaveCmd.Flags().StringVar(&knowledgeSaveType, "type", string(models.KnowledgeLessonLearned), "entry type (lesson_learned, best_practice, code_pattern, solution, template, decision)")
	knowledgeSaveCmd.Flags().StringVar(&knowledgeSaveDetail, "detail", "", "long-form detail")
	knowledgeSaveCmd.Flags().StringSliceVar(&knowledgeSaveTags, "tags", nil, "tags")
	knowledgeSaveCmd.Flags().StringSliceVar(&knowledgeSaveDomains, "domains", nil, "domains the entry applies to")
	knowledgeSaveCmd.Flags().StringSliceVar(&knowledgeSaveStack, "tech-stack", nil, "technologies the entry applies to")
	knowledgeSearchCmd.Flags().IntVar(&knowledgeSearchLimit, "limit", 10, "maximum results")

	knowledgeCmd.AddCommand(knowledgeSaveCmd, knowledgeSearchCmd, knowledgeShowCmd)
	rootCmd.AddCommand(knowledgeCmd)
}
