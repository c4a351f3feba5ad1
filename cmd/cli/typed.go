// cmd/cli/typed.go
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/and161185/comfy/internal/model"
)

// draft is a generated questionnaire saved between `questions` and `analyze`.
type draft struct {
	UserInfo  model.Profile    `json:"userInfo"`
	Questions []model.Question `json:"questions"`
}

func readDraft(path string, stdin io.Reader) (draft, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return draft{}, err
	}
	var d draft
	if err := json.Unmarshal(b, &d); err != nil {
		return draft{}, fmt.Errorf("parse questionnaire: %w", err)
	}
	if len(d.Questions) == 0 {
		return draft{}, errors.New("questionnaire has no questions")
	}
	return d, nil
}

func writeDraft(path string, stdout io.Writer, d draft) error {
	if path == "-" {
		printJSON(stdout, d)
		return nil
	}
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// ------- validators -------

func parseAnswer(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 1 || v > 5 {
		return 0, fmt.Errorf("answer %q must be an integer from 1 to 5", s)
	}
	return v, nil
}

// parseAnswers turns id=value pairs into the answers map.
func parseAnswers(pairs []string) (map[string]int, error) {
	out := make(map[string]int, len(pairs))
	for _, p := range pairs {
		id, val, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("bad answer %q, want id=value", p)
		}
		v, err := parseAnswer(val)
		if err != nil {
			return nil, err
		}
		out[strings.TrimSpace(id)] = v
	}
	return out, nil
}

func scaleHint(q model.Question) string {
	lo, hi := q.MinLabel, q.MaxLabel
	if lo == "" {
		lo = "Never"
	}
	if hi == "" {
		hi = "Always"
	}
	return fmt.Sprintf("1 = %s ... 5 = %s", lo, hi)
}

// askMissing prompts for every question without an answer yet.
func askMissing(r io.Reader, w io.Writer, qs []model.Question, answers map[string]int) error {
	br := bufio.NewReader(r)
	for i, q := range qs {
		if _, ok := answers[q.ID]; ok {
			continue
		}
		fmt.Fprintf(w, "\n[%d/%d] %s\n      %s\n", i+1, len(qs), q.Text, scaleHint(q))
		for {
			line, err := prompt(br, w, "> ")
			if err != nil {
				return fmt.Errorf("answer %s: %w", q.ID, err)
			}
			v, err := parseAnswer(line)
			if err != nil {
				fmt.Fprintln(w, err)
				continue
			}
			answers[q.ID] = v
			break
		}
	}
	return nil
}

func printReport(w io.Writer, rep model.Report) {
	fmt.Fprintf(w, "Stress score: %d/100 (%s)\n", rep.Score, rep.Level)
	if cs := rep.ClusterScores; cs != nil {
		for _, c := range model.Clusters {
			fmt.Fprintf(w, "  %-10s %3d\n", c, cs.Get(c))
		}
	}
	fmt.Fprintf(w, "\n%s\n", rep.Analysis.Summary)
	if len(rep.Analysis.KeyStressors) > 0 {
		fmt.Fprintln(w, "\nKey stressors:")
		for _, s := range rep.Analysis.KeyStressors {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	if len(rep.PersonalizedTips) > 0 {
		fmt.Fprintln(w, "\nTips:")
		for _, t := range rep.PersonalizedTips {
			fmt.Fprintf(w, "  * %s: %s\n", t.Title, t.Description)
		}
	}
	fmt.Fprintf(w, "\n%s\n", rep.Disclaimer)
}

// ------- commands -------

func newQuestionsCmd(g *globals) *cobra.Command {
	var (
		p   model.Profile
		out string
	)
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Generate a questionnaire for your profile",
		Long: `Generate a fresh stress questionnaire. Each call counts towards the
daily AI limit.

Examples:
  comfy questions --occupation Student --mood tired --out q.json
  comfy questions --language Hindi`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := g.context(cmd)
			defer cancel()
			s, err := g.signedIn(ctx)
			if err != nil {
				return err
			}
			set, err := s.GenerateQuestions(ctx, p)
			if err != nil {
				return err
			}
			return writeDraft(out, cmd.OutOrStdout(), draft{UserInfo: p, Questions: set.Questions})
		},
	}
	cmd.Flags().StringVar(&p.Age, "age", "", "age")
	cmd.Flags().StringVar(&p.Gender, "gender", "", "gender")
	cmd.Flags().StringVar(&p.Occupation, "occupation", "", "occupation")
	cmd.Flags().StringVar(&p.Mood, "mood", "", "current mood")
	cmd.Flags().StringVar(&p.Language, "language", model.LanguageEnglish, "English or Hindi")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "questionnaire file ('-' for stdout)")
	return cmd
}

func newAnalyzeCmd(g *globals) *cobra.Command {
	var (
		in     string
		pairs  []string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Answer a questionnaire and get a stress report",
		Long: `Submit answers for a questionnaire produced by "comfy questions".
Answers not given with --answer are asked interactively.

Examples:
  comfy analyze --in q.json
  comfy analyze --in q.json --answer seed_q1=4 --answer seed_q2=2`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := readDraft(in, cmd.InOrStdin())
			if err != nil {
				return err
			}
			answers, err := parseAnswers(pairs)
			if err != nil {
				return err
			}
			if err := askMissing(cmd.InOrStdin(), cmd.ErrOrStderr(), d.Questions, answers); err != nil {
				return err
			}

			ctx, cancel := g.context(cmd)
			defer cancel()
			s, err := g.signedIn(ctx)
			if err != nil {
				return err
			}
			rep, err := s.AnalyzeStress(ctx, d.UserInfo, d.Questions, answers)
			if err != nil {
				return err
			}
			if asJSON {
				printJSON(cmd.OutOrStdout(), rep)
				return nil
			}
			printReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "", "questionnaire file ('-' for stdin)")
	cmd.Flags().StringArrayVarP(&pairs, "answer", "a", nil, "answer as id=value (1-5); repeatable")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw report")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func newHistoryCmd(g *globals) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent assessments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := g.context(cmd)
			defer cancel()
			s, err := g.signedIn(ctx)
			if err != nil {
				return err
			}
			list, err := s.History(ctx, limit)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), list)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of assessments (max 50)")
	return cmd
}

func newTrendsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "trends",
		Short: "Show 7/30-day averages and the dominant stress cluster",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := g.context(cmd)
			defer cancel()
			s, err := g.signedIn(ctx)
			if err != nil {
				return err
			}
			t, err := s.Trends(ctx)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), t)
			return nil
		},
	}
}

func newAdminStatsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "admin-stats",
		Short: "Show platform statistics (admins only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := g.context(cmd)
			defer cancel()
			s, err := g.signedIn(ctx)
			if err != nil {
				return err
			}
			st, err := s.AdminAnalytics(ctx)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), st)
			return nil
		},
	}
}
