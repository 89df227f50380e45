// Package scanner fans criteria lookups out over a bounded pool of workers
// and collects matches and per-group failures.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jamfkit/sgscan/internal/matcher"
	"github.com/jamfkit/sgscan/internal/models"
)

const (
	DefaultWorkers    = 10
	DefaultRetryDelay = 2 * time.Second
)

// GroupLister enumerates the groups of one type.
type GroupLister interface {
	ListGroups(ctx context.Context, groupType models.GroupType) ([]models.GroupSummary, error)
}

// CriteriaSource returns the normalized criteria of one group.
type CriteriaSource interface {
	ListCriteria(ctx context.Context, groupType models.GroupType, id int) ([]models.Criterion, error)
}

type Options struct {
	Workers int

	// SmartOnly drops groups listed with is_smart=false before scanning.
	SmartOnly bool

	// Retries is how many extra attempts a group gets after a temporary
	// failure. Zero disables retrying.
	Retries    int
	RetryDelay time.Duration

	// OnProgress is called once per finished group, never concurrently.
	OnProgress func(Progress)
}

// Progress describes the state of a running scan.
type Progress struct {
	Done  int
	Total int
	Group models.GroupSummary
	Err   error
}

// GroupFailure records a group whose criteria could not be retrieved.
type GroupFailure struct {
	Group models.GroupSummary
	Err   error
}

func (f GroupFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Group, f.Err)
}

func (f GroupFailure) Unwrap() error {
	return f.Err
}

// ListFailure records a group type that could not be listed.
type ListFailure struct {
	GroupType models.GroupType
	Err       error
}

func (f ListFailure) Error() string {
	return fmt.Sprintf("listing %s groups: %v", f.GroupType, f.Err)
}

func (f ListFailure) Unwrap() error {
	return f.Err
}

// Result is the merged outcome of a scan. Matches are in no particular
// order across groups; within a group they follow criteria order.
type Result struct {
	Matches  []models.Match
	Failures []GroupFailure

	// Scanned counts groups whose criteria were retrieved.
	Scanned int

	// Skipped counts groups never started because the scan was cancelled.
	Skipped int
}

// Err joins every group failure, or returns nil.
func (r *Result) Err() error {
	return joinFailures(r.Failures)
}

func joinFailures(failures []GroupFailure) error {
	if len(failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(failures))
	for _, failure := range failures {
		errs = append(errs, failure)
	}
	return errors.Join(errs...)
}

// groupOutcome is what one worker hands back for merging.
type groupOutcome struct {
	group   models.GroupSummary
	matches []models.Match
	err     error
}

type Scanner struct {
	source CriteriaSource
	opts   Options
}

func New(source CriteriaSource, opts Options) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	return &Scanner{source: source, opts: opts}
}

// Scan fetches the criteria of every group and tests them against m. A
// failing group is recorded and never stops the others. Cancelling ctx
// stops new groups from starting; groups already finished are kept.
func (s *Scanner) Scan(ctx context.Context, groups []models.GroupSummary, m matcher.Matcher) *Result {
	if s.opts.SmartOnly {
		groups = smartOnly(groups)
	}

	result := &Result{}

	var (
		mu   sync.Mutex
		done int
	)

	merge := func(outcome groupOutcome) {
		mu.Lock()
		defer mu.Unlock()

		done++
		if outcome.err != nil {
			result.Failures = append(result.Failures, GroupFailure{Group: outcome.group, Err: outcome.err})
		} else {
			result.Scanned++
			result.Matches = append(result.Matches, outcome.matches...)
		}

		if s.opts.OnProgress != nil {
			s.opts.OnProgress(Progress{
				Done:  done,
				Total: len(groups),
				Group: outcome.group,
				Err:   outcome.err,
			})
		}
	}

	result.Skipped = s.forEach(ctx, groups, func(group models.GroupSummary) {
		merge(s.scanGroup(ctx, group, m))
	})

	logrus.WithFields(logrus.Fields{
		"groups":   len(groups),
		"scanned":  result.Scanned,
		"failures": len(result.Failures),
		"matches":  len(result.Matches),
		"skipped":  result.Skipped,
	}).Debugln("Scan finished")

	return result
}

func (s *Scanner) scanGroup(ctx context.Context, group models.GroupSummary, m matcher.Matcher) groupOutcome {
	criteria, err := s.fetchCriteria(ctx, group)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"type": group.GroupType,
			"id":   group.ID,
			"name": group.Name,
		}).WithError(err).Warnln("Failed to fetch group criteria")
		return groupOutcome{group: group, err: err}
	}

	matches := MatchCriteria(group, criteria, m)

	logrus.WithFields(logrus.Fields{
		"type":     group.GroupType,
		"id":       group.ID,
		"criteria": len(criteria),
		"matches":  len(matches),
	}).Debugln("Scanned group")

	return groupOutcome{group: group, matches: matches}
}

// forEach runs fn for every group on the worker pool. It returns how many
// groups were never started because ctx was cancelled.
func (s *Scanner) forEach(ctx context.Context, groups []models.GroupSummary, fn func(models.GroupSummary)) int {
	var g errgroup.Group
	g.SetLimit(s.opts.Workers)

	skipped := 0
	for i, group := range groups {
		if ctx.Err() != nil {
			skipped = len(groups) - i
			break
		}
		g.Go(func() error {
			fn(group)
			return nil
		})
	}

	// Workers report failures as values, so Wait never returns an error.
	_ = g.Wait()
	return skipped
}

func (s *Scanner) fetchCriteria(ctx context.Context, group models.GroupSummary) ([]models.Criterion, error) {
	return withRetry(ctx, s.opts, group, func() ([]models.Criterion, error) {
		return s.source.ListCriteria(ctx, group.GroupType, group.ID)
	})
}

// withRetry repeats operation after temporary failures, up to opts.Retries
// extra attempts with a constant delay.
func withRetry[T any](ctx context.Context, opts Options, group models.GroupSummary, operation func() (T, error)) (T, error) {
	if opts.Retries == 0 {
		return operation()
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(opts.RetryDelay), uint64(opts.Retries)),
		ctx,
	)

	attempt := func() (T, error) {
		value, err := operation()
		if err != nil && !isTemporary(err) {
			return value, backoff.Permanent(err)
		}
		return value, err
	}

	notify := func(err error, wait time.Duration) {
		logrus.WithFields(logrus.Fields{
			"type": group.GroupType,
			"id":   group.ID,
			"wait": wait,
		}).WithError(err).Debugln("Retrying group")
	}

	return backoff.RetryNotifyWithData(attempt, policy, notify)
}

// MatchCriteria tests each criterion's name, then its value. A criterion
// yields at most one match; the name wins when both fields match.
func MatchCriteria(group models.GroupSummary, criteria []models.Criterion, m matcher.Matcher) []models.Match {
	var matches []models.Match
	for _, criterion := range criteria {
		name := criterion.Name
		switch {
		case m.Match(&name):
			matches = append(matches, models.NewMatch(group, models.MatchedFieldName, criterion))
		case m.Match(criterion.Value):
			matches = append(matches, models.NewMatch(group, models.MatchedFieldValue, criterion))
		}
	}
	return matches
}

// ListAll lists every requested group type. A type that fails to list is
// reported and the remaining types are still listed.
func ListAll(ctx context.Context, lister GroupLister, types []models.GroupType) ([]models.GroupSummary, []ListFailure) {
	var (
		groups   []models.GroupSummary
		failures []ListFailure
	)

	for _, groupType := range types {
		listed, err := lister.ListGroups(ctx, groupType)
		if err != nil {
			logrus.WithField("type", groupType).WithError(err).Warnln("Failed to list groups")
			failures = append(failures, ListFailure{GroupType: groupType, Err: err})
			continue
		}
		groups = append(groups, listed...)
	}

	return groups, failures
}

func smartOnly(groups []models.GroupSummary) []models.GroupSummary {
	filtered := make([]models.GroupSummary, 0, len(groups))
	for _, group := range groups {
		if group.IsSmart {
			filtered = append(filtered, group)
		}
	}
	return filtered
}

func isTemporary(err error) bool {
	var temporary interface{ Temporary() bool }
	return errors.As(err, &temporary) && temporary.Temporary()
}
