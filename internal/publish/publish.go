// Package publish commits the files a run touched and reports the run on the
// pull request that triggered it.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/cimedic/internal/gitctx"
	"github.com/dshills/cimedic/internal/logging"
	"github.com/dshills/cimedic/internal/output"
)

// Committer records touched files in version control.
type Committer interface {
	Commit(paths []string, message string, author gitctx.Author) (string, error)
	Push(ctx context.Context, remote, token string) error
}

// Commenter posts a comment on a pull request.
type Commenter interface {
	CreateComment(ctx context.Context, owner, repo string, pr int, body string) (string, error)
}

// Options selects which side effects run.
type Options struct {
	Commit bool
	Push   bool
	Remote string
	Token  string
	Author gitctx.Author

	Comment bool
	Owner   string
	Repo    string
	PR      int

	Logger *logging.Logger
}

// Outcome describes the side effects that happened.
type Outcome struct {
	Commit     string
	Pushed     bool
	CommentURL string
}

// Publisher applies Options to a finished run. Either collaborator may be
// nil when the corresponding side effect is not wanted.
type Publisher struct {
	committer Committer
	commenter Commenter
	opts      Options
	logger    *logging.Logger
}

// New creates a Publisher.
func New(committer Committer, commenter Commenter, opts Options) *Publisher {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.Remote == "" {
		opts.Remote = "origin"
	}
	return &Publisher{committer: committer, commenter: commenter, opts: opts, logger: logger}
}

// CommitMessage is the message of the commit recording a run's edits.
func CommitMessage(report *output.Report) string {
	d := report.Result.Diagnosis
	if d.Primary == "" {
		return fmt.Sprintf("cimedic: auto-fix %s", d.Kind)
	}
	return fmt.Sprintf("cimedic: auto-fix %s (%s)", d.Kind, d.Primary)
}

// Publish commits when the run touched files and comments when a pull
// request is known. Dry runs publish nothing. report.Commit and
// report.CommentURL are filled in as the side effects happen, so the
// comment names the commit.
func (p *Publisher) Publish(ctx context.Context, report *output.Report) (Outcome, error) {
	var out Outcome
	res := report.Result
	if res.DryRun {
		return out, nil
	}

	if p.opts.Commit && p.committer != nil {
		if len(res.FilesTouched) == 0 {
			p.logger.Debug(ctx, "nothing to commit", zap.String("status", string(res.Status)))
		} else {
			hash, err := p.committer.Commit(res.FilesTouched, CommitMessage(report), p.opts.Author)
			switch {
			case errors.Is(err, gitctx.ErrNothingToCommit):
				p.logger.Info(ctx, "touched files carry no change to commit")
			case err != nil:
				return out, fmt.Errorf("committing fix: %w", err)
			default:
				out.Commit = hash
				report.Commit = hash
				p.logger.Info(ctx, "committed fix",
					zap.String("commit", hash),
					zap.Strings("files", res.FilesTouched))
			}
		}
		if out.Commit != "" && p.opts.Push {
			if err := p.committer.Push(ctx, p.opts.Remote, p.opts.Token); err != nil {
				return out, fmt.Errorf("pushing fix: %w", err)
			}
			out.Pushed = true
			p.logger.Info(ctx, "pushed fix", zap.String("remote", p.opts.Remote))
		}
	}

	if p.opts.Comment && p.commenter != nil {
		if p.opts.PR <= 0 {
			p.logger.Debug(ctx, "no pull request to comment on")
			return out, nil
		}
		if p.opts.Owner == "" || p.opts.Repo == "" {
			return out, errors.New("commenting: repository owner/name unknown")
		}
		var body bytes.Buffer
		if err := (&output.MarkdownWriter{}).Write(&body, report); err != nil {
			return out, fmt.Errorf("rendering comment: %w", err)
		}
		url, err := p.commenter.CreateComment(ctx, p.opts.Owner, p.opts.Repo, p.opts.PR, body.String())
		if err != nil {
			return out, err
		}
		out.CommentURL = url
		report.CommentURL = url
		p.logger.Info(ctx, "commented on pull request",
			zap.Int("pr", p.opts.PR),
			zap.String("url", url))
	}
	return out, nil
}
