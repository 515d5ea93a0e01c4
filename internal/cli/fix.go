package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/cimedic/internal/advisory"
	"github.com/dshills/cimedic/internal/cache"
	"github.com/dshills/cimedic/internal/config"
	"github.com/dshills/cimedic/internal/engine"
	"github.com/dshills/cimedic/internal/github"
	"github.com/dshills/cimedic/internal/gitctx"
	"github.com/dshills/cimedic/internal/history"
	"github.com/dshills/cimedic/internal/logging"
	"github.com/dshills/cimedic/internal/metrics"
	"github.com/dshills/cimedic/internal/output"
	"github.com/dshills/cimedic/internal/providers"
	"github.com/dshills/cimedic/internal/publish"
	"github.com/dshills/cimedic/internal/strategy"
	"github.com/dshills/cimedic/internal/walker"
)

// Fix flags
var (
	flagLog     string
	flagRoot    string
	flagDryRun  bool
	flagCommit  bool
	flagPush    bool
	flagComment bool
	flagPR      int
	flagRepo    string
	flagFormat  string
	flagOut     string
)

// newBackend creates model backends; tests substitute fakes.
var newBackend providers.Factory = providers.New

// newCommenter creates the pull-request commenter; tests substitute fakes.
var newCommenter = func(ctx context.Context) (publish.Commenter, error) {
	return github.NewClient(ctx)
}

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Classify a CI log and remediate the working tree",
	Long: "Classifies the failure in a CI log, applies the matching strategy to the working tree and " +
		"reports the result. Optionally commits the touched files and comments on the pull request.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := output.GetWriter(flagFormat); err != nil {
			return err
		}
		if flagPush && !flagCommit {
			return errors.New("--push requires --commit")
		}
		cfg, ok := loadConfig()
		if !ok {
			return nil
		}
		logger, err := newLogger(cfg)
		if err != nil {
			fail(ExitConfigError, err)
			return nil
		}
		defer func() { _ = logger.Sync() }()

		log, err := readLog(flagLog)
		if err != nil {
			fail(ExitRuntimeError, err)
			return nil
		}

		report, code := runFix(cmd.Context(), cfg, logger, log)
		if report != nil {
			if err := output.WriteReport(report, flagFormat, flagOut); err != nil {
				fail(ExitRuntimeError, fmt.Errorf("writing output: %w", err))
				return nil
			}
		}
		exitCode = code
		return nil
	},
}

// runFix executes one remediation and its side effects. It returns the
// report (nil when the run could not start) and the exit code.
func runFix(ctx context.Context, cfg config.Config, logger *logging.Logger, log string) (*output.Report, int) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(log) == "" {
		logger.Warn(ctx, "No CI logs provided")
	}

	tree, err := walker.NewTree(flagRoot, walker.Walker{
		Extensions:   cfg.Walker.Extensions,
		Exclude:      cfg.Walker.Exclude,
		MaxFileBytes: cfg.Walker.MaxFileBytes,
	})
	if err != nil {
		fail(ExitRuntimeError, err)
		return nil, ExitRuntimeError
	}

	c, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		fail(ExitRuntimeError, fmt.Errorf("opening cache: %w", err))
		return nil, ExitRuntimeError
	}

	opts := strategy.Options{
		AllowList: cfg.Dependencies.AllowList,
		Manifest:  cfg.Dependencies.Manifest,
		Typos:     cfg.Commands.Typos,
		Tools:     cfg.Commands.Tools,
		Workers:   cfg.Walker.Workers,
	}
	if cfg.Plan.Enabled {
		fallback, err := planStrategy(cfg, c)
		if err != nil {
			code := exitCodeFor(err)
			fail(code, err)
			return nil, code
		}
		opts.Fallback = fallback
	}

	rec := metrics.New()
	eng := engine.New(strategy.NewRegistry(opts), engine.Options{
		DryRun:   flagDryRun,
		Workers:  cfg.Walker.Workers,
		Logger:   logger,
		Recorder: rec,
	})
	res := eng.Run(ctx, log, tree)
	ctx = logging.WithRunID(ctx, res.RunID)

	report := &output.Report{Tool: "cimedic", Version: version, Result: res}
	repo, repoErr := gitctx.Open(tree.Root())
	if repoErr == nil {
		if meta, err := repo.Meta(); err == nil {
			report.Repo = &meta
		}
	}

	code := ExitSuccess
	if !res.Succeeded() {
		code = ExitRemediationFailed
	}

	if res.Status == engine.StatusNoMatch && cfg.Advisory.Enabled && strings.TrimSpace(log) != "" {
		if advCode := runAdvisory(ctx, cfg, logger, c, rec, log, report); advCode != ExitSuccess {
			code = advCode
		}
	}

	if cfg.History.Path != "" {
		recordHistory(ctx, cfg.History.Path, logger, res)
	}

	if (flagCommit || flagComment) && !res.DryRun {
		if err := runPublish(ctx, cfg, logger, repo, repoErr, report); err != nil {
			logger.Error(ctx, "publishing failed", zap.Error(err))
			fail(publishExitCode(err), err)
			if code == ExitSuccess {
				code = publishExitCode(err)
			}
		}
	}

	if cfg.Metrics.Textfile != "" {
		if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn(ctx, "writing metrics textfile failed", zap.Error(err))
		}
	}
	return report, code
}

func planStrategy(cfg config.Config, c *cache.Cache) (*strategy.PlanStrategy, error) {
	spec, err := providers.ParseModelSpec(cfg.Plan.Model)
	if err != nil {
		return nil, fmt.Errorf("%w: plan.model: %v", config.ErrInvalid, err)
	}
	backend, err := newBackend(spec.Provider, spec.Model)
	if err != nil {
		return nil, fmt.Errorf("creating plan backend %s: %w", spec, err)
	}
	ps := strategy.NewPlanStrategy(backend, spec.Model, cfg.Dependencies.Manifest, c)
	ps.MaxLogBytes = cfg.Advisory.MaxLogBytes
	ps.Timeout = cfg.Plan.Timeout
	return ps, nil
}

// runAdvisory asks the model chain about an unrecognized failure and stores
// the answer on report.
func runAdvisory(ctx context.Context, cfg config.Config, logger *logging.Logger, c *cache.Cache, rec *metrics.Recorder, log string, report *output.Report) int {
	chain, err := providers.ParseModelSpecs(cfg.Advisory.Models)
	if err != nil {
		fail(ExitConfigError, err)
		return ExitConfigError
	}
	advice, err := newAdvisor(cfg, logger, c, rec).Diagnose(ctx, log, chain)
	if err != nil {
		report.AdvisoryError = err.Error()
		logger.Warn(ctx, "advisory diagnosis failed", zap.Error(err))
		return exitCodeFor(err)
	}
	report.Advisory = &advice
	return ExitSuccess
}

func newAdvisor(cfg config.Config, logger *logging.Logger, c *cache.Cache, rec *metrics.Recorder) *advisory.Advisor {
	return advisory.New(advisory.Options{
		Timeout:       cfg.Advisory.Timeout,
		MaxLogBytes:   cfg.Advisory.MaxLogBytes,
		RedactSecrets: cfg.Advisory.RedactSecrets,
		Cache:         c,
		Logger:        logger,
		Recorder:      rec,
		Factory:       newBackend,
	})
}

func recordHistory(ctx context.Context, path string, logger *logging.Logger, res engine.Result) {
	store, err := history.Open(path)
	if err != nil {
		logger.Warn(ctx, "opening history failed", zap.Error(err))
		return
	}
	defer store.Close()
	if err := store.Record(ctx, res); err != nil {
		logger.Warn(ctx, "recording history failed", zap.Error(err))
	}
}

// errAuth marks publish failures caused by missing credentials.
var errAuth = errors.New("missing credentials")

func publishExitCode(err error) int {
	if errors.Is(err, errAuth) {
		return ExitAuthError
	}
	return ExitRuntimeError
}

func runPublish(ctx context.Context, cfg config.Config, logger *logging.Logger, repo *gitctx.Repo, repoErr error, report *output.Report) error {
	opts := publish.Options{
		Commit: flagCommit,
		Push:   flagPush,
		Remote: cfg.Publish.Remote,
		Token:  github.Token(),
		Author: gitctx.Author{Name: cfg.Publish.AuthorName, Email: cfg.Publish.AuthorEmail},
		Logger: logger,
	}

	var committer publish.Committer
	if flagCommit {
		if repoErr != nil {
			return repoErr
		}
		committer = repo
	}

	var commenter publish.Commenter
	if flagComment {
		pr := flagPR
		if pr == 0 {
			n, err := github.PRNumberFromEnv()
			if err != nil {
				return err
			}
			pr = n
		}
		if pr > 0 {
			owner, name, err := resolveRepo(repo, cfg.Publish.Remote)
			if err != nil {
				return err
			}
			client, err := newCommenter(ctx)
			if err != nil {
				if errors.Is(err, github.ErrNoToken) {
					return fmt.Errorf("%w: %v", errAuth, err)
				}
				return err
			}
			opts.Comment, opts.Owner, opts.Repo, opts.PR = true, owner, name, pr
			commenter = client
		}
	}

	_, err := publish.New(committer, commenter, opts).Publish(ctx, report)
	return err
}

// resolveRepo finds owner/name from --repo, GITHUB_REPOSITORY or the
// publish remote, in that order.
func resolveRepo(repo *gitctx.Repo, remote string) (string, string, error) {
	if flagRepo != "" {
		return github.SplitRepo(flagRepo)
	}
	if owner, name, ok, err := github.RepoFromEnv(); ok || err != nil {
		return owner, name, err
	}
	if repo == nil {
		return "", "", errors.New("cannot determine repository: pass --repo owner/name")
	}
	url, err := repo.RemoteURL(remote)
	if err != nil {
		return "", "", fmt.Errorf("cannot determine repository: %w", err)
	}
	return github.ParseRemoteURL(url)
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func init() {
	fixCmd.Flags().StringVar(&flagLog, "log", "", "CI log file, - for stdin (default: $CI_LOGS)")
	fixCmd.Flags().StringVar(&flagRoot, "root", ".", "Working tree root")
	fixCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Compute edits without writing files")
	fixCmd.Flags().BoolVar(&flagCommit, "commit", false, "Commit touched files")
	fixCmd.Flags().BoolVar(&flagPush, "push", false, "Push the commit (requires --commit)")
	fixCmd.Flags().BoolVar(&flagComment, "comment", false, "Comment the report on the pull request")
	fixCmd.Flags().IntVar(&flagPR, "pr", 0, "Pull request number (default: from $GITHUB_EVENT_PATH)")
	fixCmd.Flags().StringVar(&flagRepo, "repo", "", "Repository as owner/name (default: $GITHUB_REPOSITORY or the remote)")
	fixCmd.Flags().StringVar(&flagFormat, "format", "text", "Output format (text, json, markdown)")
	fixCmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
}
