// Package session runs the interactive query loop: read a query, match
// candidates, summarize them, display, and wait for the next query.
package session

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentrag/internal/domain"
	"github.com/kailas-cloud/talentrag/internal/logger"
	"github.com/kailas-cloud/talentrag/internal/metrics"
)

// Defaults for Options.
const (
	DefaultExitToken = "exit"
	DefaultPrompt    = "Enter your next query (or type 'exit' to quit): "
)

// Cycle outcomes reported to metrics.
const (
	outcomeAnswered = "answered"
	outcomeEmpty    = "empty"
	outcomeError    = "error"
)

// Options configures the loop.
type Options struct {
	ExitToken      string
	Prompt         string
	FollowUpSuffix string               // appended to every query after the first
	Observer       domain.StateObserver // optional
}

// Loop is the session state machine. One Run is one session.
type Loop struct {
	matcher    Matcher
	summarizer Summarizer
	opts       Options
	logger     *zap.Logger
}

// New creates a session loop.
func New(matcher Matcher, summarizer Summarizer, opts Options, logger *zap.Logger) *Loop {
	if opts.ExitToken == "" {
		opts.ExitToken = DefaultExitToken
	}
	if opts.Prompt == "" {
		opts.Prompt = DefaultPrompt
	}
	return &Loop{matcher: matcher, summarizer: summarizer, opts: opts, logger: logger}
}

// Run serves queries until the exit token, end of input or ctx cancellation.
// initial, when non-empty, is processed before anything is read from in.
// Cycle failures are reported to out and never end the session; Run returns
// an error only for a broken input stream or a cancelled context.
//
// in is read one line ahead of the loop, so the line after the exit token may
// already be consumed when Run returns. The reader goroutine is released when
// Run returns, except for a Read call that is still blocked on in; callers
// that reuse in after Run must not share it with another reader.
func (l *Loop) Run(ctx context.Context, in io.Reader, out io.Writer, initial string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := domain.NewSessionContext()
	ctx = logger.WithSession(ctx, l.logger, sess.ID())
	log := logger.FromContext(ctx)
	log.Info("Session started")

	v := newView(out)
	lines := readLines(ctx, in)
	query := strings.TrimSpace(initial)
	first := true

	for {
		l.transition(ctx, domain.StateAwaitingQuery)

		if query == "" {
			v.prompt(l.opts.Prompt)
			text, ok, err := next(ctx, lines)
			switch {
			case err != nil:
				l.transition(ctx, domain.StateExited)
				return err
			case !ok:
				log.Info("Session ended", zap.String("reason", "eof"), zap.Int("turns", sess.Len()))
				l.transition(ctx, domain.StateExited)
				return nil
			}
			query = strings.TrimSpace(text)
			if query == "" {
				continue
			}
		}

		if l.isExit(query) {
			log.Info("Session ended", zap.String("reason", "exit"), zap.Int("turns", sess.Len()))
			l.transition(ctx, domain.StateExited)
			return nil
		}

		if !first && l.opts.FollowUpSuffix != "" {
			query += l.opts.FollowUpSuffix
		}
		first = false

		l.cycle(ctx, v, sess, query)
		query = ""

		if err := ctx.Err(); err != nil {
			l.transition(ctx, domain.StateExited)
			return err
		}
	}
}

// cycle runs one query through matching, summarization and display.
func (l *Loop) cycle(ctx context.Context, v *view, sess *domain.SessionContext, query string) {
	log := logger.FromContext(ctx).With(zap.String("query", query))

	candidates, err := l.matcher.Match(ctx, query, func(s domain.State) { l.transition(ctx, s) })
	if err != nil {
		l.fail(ctx, v, log, err)
		return
	}

	if len(candidates) == 0 {
		l.transition(ctx, domain.StateDisplaying)
		v.empty()
		metrics.SessionCyclesTotal.WithLabelValues(outcomeEmpty).Inc()
		log.Info("No candidates above threshold")
		return
	}

	l.transition(ctx, domain.StateSummarizing)
	summary, err := l.summarizer.Summarize(ctx, query, candidates, sess)
	if err != nil {
		l.fail(ctx, v, log, err)
		return
	}

	l.transition(ctx, domain.StateDisplaying)
	v.candidates(candidates)
	v.summary(summary)
	sess.Append(query, summary)

	metrics.SessionCyclesTotal.WithLabelValues(outcomeAnswered).Inc()
	log.Info("Query answered", zap.Int("candidates", len(candidates)))
}

func (l *Loop) fail(ctx context.Context, v *view, log *zap.Logger, err error) {
	metrics.SessionCyclesTotal.WithLabelValues(outcomeError).Inc()
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		log.Info("Cycle interrupted", zap.Error(err))
		return
	}
	log.Error("Query cycle failed", zap.Error(err), zap.Bool("transient", domain.IsTransient(err)))
	v.failed(err)
}

func (l *Loop) isExit(query string) bool {
	return strings.EqualFold(strings.TrimSpace(query), l.opts.ExitToken)
}

func (l *Loop) transition(ctx context.Context, s domain.State) {
	logger.FromContext(ctx).Debug("State transition", zap.Stringer("state", s))
	if l.opts.Observer != nil {
		l.opts.Observer(s)
	}
}

type line struct {
	text string
	err  error
}

// readLines scans r on its own goroutine so that a blocked read does not
// keep the loop from observing ctx cancellation. The channel is closed on EOF.
func readLines(ctx context.Context, r io.Reader) <-chan line {
	ch := make(chan line)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case ch <- line{text: sc.Text()}:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			select {
			case ch <- line{err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return ch
}

// next returns the next input line. ok is false at end of input.
func next(ctx context.Context, lines <-chan line) (string, bool, error) {
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case l, ok := <-lines:
		if !ok {
			return "", false, nil
		}
		if l.err != nil {
			return "", false, l.err
		}
		return l.text, true, nil
	}
}
