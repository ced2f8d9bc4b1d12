package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/feedbackrelay/internal/classifier"
	"github.com/nextlevelbuilder/feedbackrelay/internal/github"
	"github.com/nextlevelbuilder/feedbackrelay/internal/providers"
)

func classifyCmd() *cobra.Command {
	var showBody bool
	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Classify a piece of feedback without touching Telegram or GitHub",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")

			var c *classifier.Classifier
			if cfg.Groq.APIKey != "" {
				prov := providers.NewOpenAIProvider("groq", cfg.Groq.APIKey, cfg.Groq.APIBase, cfg.Groq.Model)
				c = classifier.New(prov, cfg.Groq.Model)
			} else {
				c = classifier.New(nil, "")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()
			out := c.ClassifyDetailed(ctx, text)

			printRecord(cmd.OutOrStdout(), out)
			if showBody {
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprint(cmd.OutOrStdout(), github.BuildIssueBody(out.Record))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showBody, "body", false, "also print the GitHub issue body")
	return cmd
}

// maxValueWidth caps each value in terminal columns.
const maxValueWidth = 72

// printRecord writes the record as a two-column table. Values are cut by
// display width, so wide CJK and emoji runes count as two columns.
func printRecord(w io.Writer, out classifier.Outcome) {
	rec := out.Record
	rows := [][2]string{
		{"Title", rec.Title},
		{"Type", string(rec.Type)},
		{"Priority", string(rec.Priority)},
		{"Urgency", string(rec.Urgency)},
		{"Size", string(rec.Size)},
		{"Scope", string(rec.Scope)},
		{"Component", rec.Component},
		{"Action", string(rec.Action.Resolve())},
		{"Estimated hours", string(rec.EstimatedHours)},
		{"Tags", strings.Join(rec.Labels(), ", ")},
	}
	if out.Fallback {
		rows = append(rows, [2]string{"Fallback", out.Err.Error()})
	}

	width := 0
	for _, r := range rows {
		if n := runewidth.StringWidth(r[0]); n > width {
			width = n
		}
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s  %s\n", runewidth.FillRight(r[0], width), runewidth.Truncate(r[1], maxValueWidth, "..."))
	}
	if len(rec.AcceptanceCriteria) > 0 {
		fmt.Fprintf(w, "%s\n", runewidth.FillRight("Acceptance", width))
		for _, c := range rec.AcceptanceCriteria {
			fmt.Fprintf(w, "  - %s\n", runewidth.Truncate(c, maxValueWidth, "..."))
		}
	}
}
