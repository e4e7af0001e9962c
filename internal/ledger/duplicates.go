package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"ledger-reconciliation-engine/internal/models"
)

// DuplicateStrategy names one of the independent duplicate fingerprints.
type DuplicateStrategy string

const (
	// StrategyExactTuple groups payments by (documentID, amount, date, mode).
	// Matches operator double entry of the same payment.
	StrategyExactTuple DuplicateStrategy = "exact_tuple"
	// StrategyTimestamp groups payments by (documentID, amount, createdAt).
	// Matches double-submitted imports and double clicks, where the
	// business date may differ but the insert instant is identical.
	StrategyTimestamp DuplicateStrategy = "timestamp"
)

// DuplicateGroup holds one set of payments sharing a fingerprint. Kept is
// the earliest-created member, preserved as the original; the rest are the
// candidates for deletion.
type DuplicateGroup struct {
	Strategy   DuplicateStrategy  `json:"strategy"`
	DocumentID string             `json:"document_id"`
	Kept       *models.Payment    `json:"kept"`
	Duplicates []*models.Payment  `json:"duplicates"`
}

// DuplicateReport is the result of duplicate detection over a payment
// snapshot. Detection never mutates; deleting the identified payments is a
// separate, explicit step the caller decides on.
type DuplicateReport struct {
	Groups               []*DuplicateGroup `json:"groups"`
	DuplicateIDs         []string          `json:"duplicate_ids"`
	TotalDuplicateAmount decimal.Decimal   `json:"total_duplicate_amount"`
}

// DuplicateCount returns the number of payments flagged as duplicates.
func (r *DuplicateReport) DuplicateCount() int {
	return len(r.DuplicateIDs)
}

// DetectDuplicates runs both strategies over the payment snapshot and unions
// their findings. The strategies catch different duplication mechanisms, so
// the union, not the intersection, is the duplicate set. A payment flagged by
// both strategies is counted once.
//
// Duplicate groups never span documents, so the snapshot may be partitioned
// by document ID when parallelized upstream.
func DetectDuplicates(payments []*models.Payment) *DuplicateReport {
	report := &DuplicateReport{
		TotalDuplicateAmount: decimal.Zero,
	}

	seen := make(map[string]bool)

	collect := func(strategy DuplicateStrategy, groups map[string][]*models.Payment) {
		// Deterministic group order for stable reports.
		keys := make([]string, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			members := groups[key]
			if len(members) < 2 {
				continue
			}

			sort.Slice(members, func(i, j int) bool {
				if members[i].CreatedAt.Equal(members[j].CreatedAt) {
					return members[i].ID < members[j].ID
				}
				return members[i].CreatedAt.Before(members[j].CreatedAt)
			})

			group := &DuplicateGroup{
				Strategy:   strategy,
				DocumentID: members[0].DocumentID,
				Kept:       members[0],
			}

			for _, dup := range members[1:] {
				group.Duplicates = append(group.Duplicates, dup)
				if seen[dup.ID] {
					continue
				}
				seen[dup.ID] = true
				report.DuplicateIDs = append(report.DuplicateIDs, dup.ID)
				report.TotalDuplicateAmount = report.TotalDuplicateAmount.Add(dup.Amount)
			}

			report.Groups = append(report.Groups, group)
		}
	}

	collect(StrategyExactTuple, groupBy(payments, exactTupleKey))
	collect(StrategyTimestamp, groupBy(payments, timestampKey))

	sort.Strings(report.DuplicateIDs)

	return report
}

func groupBy(payments []*models.Payment, key func(*models.Payment) string) map[string][]*models.Payment {
	groups := make(map[string][]*models.Payment)
	for _, p := range payments {
		k := key(p)
		groups[k] = append(groups[k], p)
	}
	return groups
}

// exactTupleKey fingerprints a payment by document, amount, calendar day of
// the business date, and mode. Historic duplicates compare on the day, not
// the instant.
func exactTupleKey(p *models.Payment) string {
	return fmt.Sprintf("%s|%s|%s|%s",
		p.DocumentID, p.Amount.String(), p.Date.Format("2006-01-02"), p.Mode)
}

// timestampKey fingerprints a payment by document, amount and the exact
// record-creation instant.
func timestampKey(p *models.Payment) string {
	return fmt.Sprintf("%s|%s|%d",
		p.DocumentID, p.Amount.String(), p.CreatedAt.UnixNano())
}
