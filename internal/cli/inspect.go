package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"nlpd/internal/reconcile"
	"nlpd/internal/router"
	"nlpd/pkg/types"
)

func (a *app) tasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List tasks and the models that serve them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.cfg.Registry()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TASK\tLABEL\tMODEL\tKIND\tSIZE")
			for _, p := range reg.All() {
				size := humanize.Bytes(p.EstimatedBytes)
				if p.Quantized {
					size += " (quantized)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Label, p.ModelRef, p.PipelineKind, size)
			}
			return tw.Flush()
		},
	}
}

func (a *app) detectCmd() *cobra.Command {
	var (
		active string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:     "detect [text...]",
		Short:   "Suggest the task best suited to a text",
		Example: "  nlpd detect --active sentiment Elon Musk met Tim Cook in Paris\n  cat article.txt | nlpd detect -",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("text is required")
			}
			var cur types.TaskID
			if active != "" {
				if cur, err = types.ParseTaskID(active); err != nil {
					return err
				}
			}
			s := router.Suggest(text, cur)
			if asJSON {
				return json.NewEncoder(a.out).Encode(types.DetectResponse{Suggestion: s.Suggestion, Message: s.Message()})
			}
			fmt.Fprintln(a.out, s.Message())
			fmt.Fprintf(a.out, "task=%s switch=%t scores: summarization=%d ner=%d sentiment=%d\n",
				s.Task, s.Switch, s.Scores.Summarization, s.Scores.NER, s.Scores.Sentiment)
			return nil
		},
	}
	cmd.Flags().StringVar(&active, "active", "", "Currently active task")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the suggestion as JSON")
	return cmd
}

func (a *app) reconcileCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "reconcile [-f request.json]",
		Short: "Align raw entity spans with their text",
		Long: `Read {"text": ..., "entities": [...]} from a file or stdin and print the
reconciled fragments as JSON. Entities that cannot be placed are listed
under "dropped".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			var req types.ReconcileRequest
			if err := json.NewDecoder(in).Decode(&req); err != nil {
				return fmt.Errorf("decode request: %w", err)
			}
			res := reconcile.Reconcile(req.Text, req.Entities)
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(types.ReconcileResponse{Fragments: res.Fragments, Dropped: res.Dropped})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Request file; stdin when empty or -")
	return cmd
}
