package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"nlpd/internal/client"
	"nlpd/internal/manager"
	"nlpd/internal/registry"
	"nlpd/internal/sentiment"
	"nlpd/internal/worker"
	"nlpd/pkg/types"
)

func (a *app) runCmd() *cobra.Command {
	var (
		asJSON     bool
		noProgress bool
	)
	cmd := &cobra.Command{
		Use:   "run <task> [text...]",
		Short: "Run one task on text and print the result",
		Long: `Run sentiment, ner or summarization once through a local worker.

Without text the task's sample text is used; "-" reads the text from stdin.`,
		Example: "  nlpd run sentiment I love this framework\n  nlpd run ner\n  cat article.txt | nlpd run summarization -",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := types.ParseTaskID(args[0])
			if err != nil {
				return err
			}
			text, err := readText(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				text = registry.Preset(task)
			}
			st, err := a.runOnce(cmd, task, text, !noProgress)
			if err != nil {
				return err
			}
			resp := manager.Present(text, *st.Result)
			resp.Metrics = st.Metrics
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			printResult(a.out, resp)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Do not render load progress")
	return cmd
}

func readText(in io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	return strings.Join(args, " "), nil
}

// runOnce drives a single run through a fresh worker and client.
func (a *app) runOnce(cmd *cobra.Command, task types.TaskID, text string, progress bool) (types.AIState, error) {
	reg, err := a.cfg.Registry()
	if err != nil {
		return types.AIState{}, err
	}
	prov, err := newProvider(a.cfg, a.log)
	if err != nil {
		return types.AIState{}, err
	}
	ctx := cmd.Context()
	w := worker.New(prov, workerConfig(a.cfg, &a.log))
	w.Start(ctx)
	defer func() { _ = w.Stop() }()
	c := client.New(w, reg, client.WithLogger(a.log))
	defer c.Close()

	p := reg.MustLookup(task)
	fmt.Fprintf(a.errOut, "%s with %s (~%s)\n", p.Label, p.ModelRef, humanize.Bytes(p.EstimatedBytes))

	stop := func() {}
	if progress {
		stop = trackProgress(c, a.errOut)
	}
	if !c.RunTask(task, text) {
		stop()
		return types.AIState{}, fmt.Errorf("nothing to run for task %s", task)
	}
	st, err := c.Await(ctx)
	stop()
	if err != nil {
		return st, err
	}
	if st.Status == types.StatusError {
		return st, fmt.Errorf("run failed: %s", st.Error)
	}
	if st.Result == nil {
		return st, fmt.Errorf("run finished without a result")
	}
	return st, nil
}

// trackProgress renders one bar per file reported while the client loads.
// The returned func stops rendering and waits for it to finish.
func trackProgress(c *client.Client, w io.Writer) func() {
	states, unsubscribe := c.Subscribe()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		var (
			bar  *progressbar.ProgressBar
			file string
		)
		for st := range states {
			if st.Progress == nil {
				continue
			}
			if bar == nil || st.Progress.File != file {
				if bar != nil {
					_ = bar.Finish()
				}
				file = st.Progress.File
				bar = progressbar.NewOptions(100,
					progressbar.OptionSetWriter(w),
					progressbar.OptionSetDescription(file),
					progressbar.OptionSetWidth(30),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = bar.Set(int(st.Progress.Percentage))
		}
		if bar != nil {
			_ = bar.Finish()
		}
	}()
	return func() {
		unsubscribe()
		wg.Wait()
	}
}

const noSummary = "No summary generated."

func printResult(w io.Writer, resp types.InferResponse) {
	switch resp.Task {
	case types.TaskSentiment:
		if v := resp.Verdict; v != nil {
			fmt.Fprintf(w, "%s (%d%%)\n", v.Dominant.Label, sentiment.Percent(v.Dominant.Score))
			for _, s := range v.Scores {
				fmt.Fprintf(w, "  %-10s %3d%%\n", s.Label, sentiment.Percent(s.Score))
			}
		}
		var hits []string
		for _, t := range resp.Triggers {
			if t.Polarity != types.TriggerNone {
				hits = append(hits, fmt.Sprintf("%s(%s)", strings.TrimSpace(t.Text), t.Polarity))
			}
		}
		if len(hits) > 0 {
			fmt.Fprintf(w, "triggers: %s\n", strings.Join(hits, " "))
		}
	case types.TaskNER:
		var b strings.Builder
		n := 0
		for _, f := range resp.Fragments {
			if f.Kind == types.FragmentEntity {
				fmt.Fprintf(&b, "[%s: %s]", f.Label, f.Text)
				n++
				continue
			}
			b.WriteString(f.Text)
		}
		fmt.Fprintln(w, b.String())
		fmt.Fprintf(w, "%d entities\n", n)
	case types.TaskSummarization:
		summary := ""
		if resp.Output.Summary != nil {
			summary = strings.TrimSpace(resp.Output.Summary.SummaryText)
		}
		if summary == "" {
			summary = noSummary
		}
		fmt.Fprintln(w, summary)
	}
	if m := resp.Metrics; m != nil {
		if m.LoadTimeMs != nil {
			fmt.Fprintf(w, "load: %.2fs\n", *m.LoadTimeMs/1000)
		}
		fmt.Fprintf(w, "inference: %.0fms\n", m.InferenceTimeMs)
	}
}
