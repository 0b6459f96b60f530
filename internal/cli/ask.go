package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"eidrag/internal/domain"
)

var (
	askURLs    []string
	askJSON    bool
	askRelated bool
	askUser    string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question",
	Long: `Answers a question from the indexed sources, or only from the pages given
with --url (each must be on a trusted domain).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringSliceVar(&askURLs, "url", nil, "answer only from these trusted pages (repeatable)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the result as JSON")
	askCmd.Flags().BoolVar(&askRelated, "related", false, "also suggest related questions")
	askCmd.Flags().StringVar(&askUser, "user", "", "record the search in this user's history")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	ctx := context.Background()

	a, err := newApp(cfg, askUser != "")
	if err != nil {
		return err
	}
	defer a.Close()

	var res domain.SearchResult
	if len(askURLs) > 0 {
		res, err = a.service.AnswerFromURLs(ctx, query, askURLs)
	} else {
		res, err = a.service.Search(ctx, query, askUser)
	}
	if err != nil {
		return err
	}

	var related []string
	if askRelated {
		related = a.service.RelatedQuestions(ctx, query)
	}

	if askJSON {
		data, err := json.MarshalIndent(map[string]any{"result": res, "related": related}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	printResult(cmd, res, related)
	return nil
}

func printResult(cmd *cobra.Command, res domain.SearchResult, related []string) {
	cmd.Println(res.Answer)
	cmd.Println()
	cmd.Printf("Confidence %.2f, %dms, model %s\n", res.Confidence, res.ResponseTime, res.Model)
	if len(res.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, s := range res.Sources {
			cmd.Printf("  [%d] %s (%s %.2f)\n", i+1, s.Title, s.ScoreKind, s.Relevance)
			cmd.Printf("      %s\n", s.URL)
		}
	}
	if len(related) > 0 {
		cmd.Println()
		cmd.Println("Related questions:")
		for _, q := range related {
			cmd.Printf("  - %s\n", q)
		}
	}
}
