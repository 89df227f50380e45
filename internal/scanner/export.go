package scanner

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jamfkit/sgscan/internal/models"
)

// DetailSource returns a group together with its site and criteria.
type DetailSource interface {
	GetGroup(ctx context.Context, groupType models.GroupType, id int) (*models.GroupDetail, error)
}

// ExportResult holds the details fetched by Export.
type ExportResult struct {
	Details  []*models.GroupDetail
	Failures []GroupFailure
	Skipped  int
}

// Err joins every group failure, or returns nil.
func (r *ExportResult) Err() error {
	return joinFailures(r.Failures)
}

// Export fetches the full definition of every group on the same worker
// pool and retry policy as Scan.
func (s *Scanner) Export(ctx context.Context, source DetailSource, groups []models.GroupSummary) *ExportResult {
	if s.opts.SmartOnly {
		groups = smartOnly(groups)
	}

	result := &ExportResult{}

	var (
		mu   sync.Mutex
		done int
	)

	result.Skipped = s.forEach(ctx, groups, func(group models.GroupSummary) {
		detail, err := withRetry(ctx, s.opts, group, func() (*models.GroupDetail, error) {
			return source.GetGroup(ctx, group.GroupType, group.ID)
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"type": group.GroupType,
				"id":   group.ID,
				"name": group.Name,
			}).WithError(err).Warnln("Failed to fetch group")
		} else if len(detail.Name) == 0 {
			detail.Name = group.Name
		}

		mu.Lock()
		defer mu.Unlock()

		done++
		if err != nil {
			result.Failures = append(result.Failures, GroupFailure{Group: group, Err: err})
		} else {
			result.Details = append(result.Details, detail)
		}

		if s.opts.OnProgress != nil {
			s.opts.OnProgress(Progress{Done: done, Total: len(groups), Group: group, Err: err})
		}
	})

	return result
}
