package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/corpus"
	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/matcher"
	"github.com/spigell/hh-matcher/internal/record"
)

const (
	PromptAnotherJob = "Match another job"
	PromptExplain    = "Explain these matches"
	PromptExit       = "Exit"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank applicants or prospects for a job or a free-text query",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("job", "", "job id to match; asked interactively when neither --job nor --query is set")
	matchCmd.Flags().String("query", "", "free text to match instead of a stored job")
	matchCmd.Flags().String("target", "", "collection to rank: applicants or prospects")
	matchCmd.Flags().Int("top-n", 0, "number of results")
	matchCmd.Flags().Bool("explain", false, "generate an explanation for every result")

	viper.BindPFlag("match.top-n", matchCmd.Flags().Lookup("top-n"))
}

type matchSession struct {
	svc     *matcher.Service
	corpus  *corpus.Corpus
	topN    int
	logger  *zap.Logger
	out     io.Writer
	explain bool
}

func match(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	jobID, _ := cmd.Flags().GetString("job")
	query, _ := cmd.Flags().GetString("query")
	target, _ := cmd.Flags().GetString("target")
	explainFlag, _ := cmd.Flags().GetBool("explain")

	if jobID != "" && query != "" {
		logger.Fatal("--job and --query are mutually exclusive")
	}

	b := &backends{cfg: config, logger: logger}

	var explainer matcher.Explainer
	if explainFlag || (jobID == "" && query == "") {
		cache, store, err := b.explainer(ctx)
		if err != nil {
			if explainFlag {
				logger.Fatal("creating the explanation backend", zap.Error(err))
			}
			logger.Warn("explanations disabled", zap.Error(err))
		} else {
			defer store.Close()
			explainer = cache
		}
	}

	embedder, err := b.embedder(ctx)
	if err != nil {
		if query != "" {
			logger.Fatal("creating the embedder", zap.Error(err))
		}
		logger.Debug("free-text queries disabled", zap.Error(err))
		embedder = nil
	}

	svc := matcher.New(corpus.NewLoader(config.ProcessedDir, logger), embedder, explainer, logger)

	c, err := svc.LoadCorpus()
	if err != nil {
		logger.Fatal("loading the corpus", zap.Error(err), zap.String("hint", "run the build command first"))
	}
	if _, err := svc.LoadEmbeddings(); err != nil {
		logger.Fatal("loading the embeddings", zap.Error(err), zap.String("hint", "run the build command first"))
	}

	session := &matchSession{
		svc:     svc,
		corpus:  c,
		topN:    config.Match.TopN,
		logger:  logger,
		out:     os.Stdout,
		explain: explainFlag,
	}

	if jobID != "" || query != "" {
		kind, err := parseTarget(target)
		if err != nil {
			logger.Fatal("invalid target", zap.Error(err))
		}
		if err := session.run(ctx, jobID, query, kind); err != nil {
			logger.Fatal("match failed", zap.Error(err))
		}
		return
	}

	if err := session.interactive(ctx, target); err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return
		}
		logger.Fatal("exiting", zap.Error(err))
	}
}

func parseTarget(target string) (record.Kind, error) {
	if strings.TrimSpace(target) == "" {
		return record.KindApplicants, nil
	}
	kind, err := record.ParseKind(target)
	if err != nil {
		return "", err
	}
	if kind == record.KindJobs {
		return "", fmt.Errorf("jobs can not be a match target")
	}
	return kind, nil
}

func (s *matchSession) run(ctx context.Context, jobID, query string, kind record.Kind) error {
	var (
		results []matcher.Result
		err     error
	)
	if query != "" {
		results, err = s.svc.MatchText(ctx, query, kind, s.topN, s.explain)
	} else {
		results, err = s.svc.MatchJob(ctx, jobID, kind, s.topN, s.explain)
	}
	if err != nil {
		return err
	}

	s.print(results)
	return nil
}

func (s *matchSession) print(results []matcher.Result) {
	if len(results) == 0 {
		fmt.Fprintln(s.out, "no matches")
		return
	}
	for _, r := range results {
		title := r.ID
		if r.Record != nil {
			title = r.Record.Title()
		}
		fmt.Fprintf(s.out, "%2d. %-16s %.4f  %s\n", r.Rank, r.ID, r.Score, title)
		if r.Explanation != "" {
			fmt.Fprintf(s.out, "    %s\n", strings.ReplaceAll(r.Explanation, "\n", "\n    "))
		}
	}
}

func (s *matchSession) interactive(ctx context.Context, target string) error {
	for {
		job, err := s.selectJob()
		if err != nil {
			return err
		}

		kind, err := parseTarget(target)
		if err != nil || target == "" {
			if kind, err = s.selectTarget(); err != nil {
				return err
			}
		}

		results, err := s.svc.MatchJob(ctx, job.ID, kind, s.topN, false)
		if err != nil {
			return err
		}

		s.logger.Info("current list of matches", zap.String(logger.FieldJob, job.ID), zap.Int("count", len(results)))
		s.print(results)

		items := []string{PromptAnotherJob, PromptExit}
		if len(results) > 0 {
			items = []string{PromptAnotherJob, PromptExplain, PromptExit}
		}

		action := promptui.Select{Label: "Next", Items: items}
		_, selected, err := action.Run()
		if err != nil {
			return err
		}

		switch selected {
		case PromptExit:
			return nil
		case PromptExplain:
			for i := range results {
				if results[i].Record == nil {
					continue
				}
				results[i].Explanation = s.svc.Explain(ctx, job.ProcessedText, results[i].Record.ProcessedText, results[i].Score)
			}
			s.print(results)
		}
	}
}

func (s *matchSession) selectJob() (*record.Record, error) {
	jobs := s.corpus.Jobs
	if len(jobs) == 0 {
		return nil, errors.New("there are no jobs in the corpus")
	}

	items := make([]string, len(jobs))
	for i, j := range jobs {
		items[i] = fmt.Sprintf("%s %s", j.ID, j.Title())
	}

	jobPrompt := promptui.Select{
		Label: "Choose a job and press ENTER",
		Items: items,
		Size:  15,
		Searcher: func(input string, index int) bool {
			return strings.Contains(strings.ToLower(items[index]), strings.ToLower(strings.TrimSpace(input)))
		},
	}

	i, _, err := jobPrompt.Run()
	if err != nil {
		return nil, err
	}
	return jobs[i], nil
}

func (s *matchSession) selectTarget() (record.Kind, error) {
	targetPrompt := promptui.Select{
		Label: "Rank which collection?",
		Items: []string{string(record.KindApplicants), string(record.KindProspects)},
	}
	_, selected, err := targetPrompt.Run()
	if err != nil {
		return "", err
	}
	return record.Kind(selected), nil
}
