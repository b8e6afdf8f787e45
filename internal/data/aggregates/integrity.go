package aggregates

import (
	"context"
	"fmt"

	"github.com/yungbote/identity-backend/internal/data/repos"
	types "github.com/yungbote/identity-backend/internal/domain"
	domainagg "github.com/yungbote/identity-backend/internal/domain/aggregates"
	"github.com/yungbote/identity-backend/internal/platform/dbctx"
)

const (
	RuleInvalidPrecedence = "invalid_precedence"
	RulePrimaryLinked     = "primary_linked"
	RuleSecondaryUnlinked = "secondary_unlinked"
	RuleSecondaryDangling = "secondary_dangling"
	RuleSecondaryChain    = "secondary_chain"
)

// IntegrityChecker scans the live contact store for cluster shape violations.
// It reports, it never repairs.
type IntegrityChecker struct {
	base      BaseDeps
	contacts  repos.ContactRepo
	batchSize int
}

func NewIntegrityChecker(base BaseDeps, contacts repos.ContactRepo, batchSize int) *IntegrityChecker {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &IntegrityChecker{base: base.withDefaults(), contacts: contacts, batchSize: batchSize}
}

func (c *IntegrityChecker) Check(ctx context.Context) (domainagg.IntegrityReport, error) {
	const op = "Contacts.Identity.CheckIntegrity"
	report := domainagg.IntegrityReport{Violations: []domainagg.IntegrityViolation{}}
	if c == nil || c.contacts == nil {
		return report, domainagg.NewError(domainagg.CodeInternal, op, "integrity checker repos not configured", nil)
	}

	dbc := dbctx.Context{Ctx: ctx}
	precedence := map[int64]types.LinkPrecedence{}
	var secondaries []*types.Contact

	var after int64
	for {
		page, err := c.contacts.ListAll(dbc, after, c.batchSize)
		if err != nil {
			return report, MapError(op, err)
		}
		if len(page) == 0 {
			break
		}
		for _, row := range page {
			report.Scanned++
			precedence[row.ID] = row.LinkPrecedence
			switch row.LinkPrecedence {
			case types.LinkPrecedencePrimary:
				report.Primaries++
				if row.LinkedID != nil {
					report.Violations = append(report.Violations, violation(row.ID, RulePrimaryLinked,
						fmt.Sprintf("primary links to %d", *row.LinkedID)))
				}
			case types.LinkPrecedenceSecondary:
				if row.LinkedID == nil {
					report.Violations = append(report.Violations, violation(row.ID, RuleSecondaryUnlinked, "secondary has no linked id"))
					continue
				}
				secondaries = append(secondaries, row)
			default:
				report.Violations = append(report.Violations, violation(row.ID, RuleInvalidPrecedence,
					fmt.Sprintf("unknown precedence %q", row.LinkPrecedence)))
			}
		}
		after = page[len(page)-1].ID
		if len(page) < c.batchSize {
			break
		}
	}

	for _, row := range secondaries {
		target, ok := precedence[*row.LinkedID]
		switch {
		case !ok:
			report.Violations = append(report.Violations, violation(row.ID, RuleSecondaryDangling,
				fmt.Sprintf("linked contact %d is missing or deleted", *row.LinkedID)))
		case target != types.LinkPrecedencePrimary:
			report.Violations = append(report.Violations, violation(row.ID, RuleSecondaryChain,
				fmt.Sprintf("linked contact %d is %s", *row.LinkedID, target)))
		}
	}

	if !report.OK() {
		c.base.Log.Warn("contact integrity violations found", "violations", len(report.Violations), "scanned", report.Scanned)
	}
	return report, nil
}

func violation(id int64, rule, detail string) domainagg.IntegrityViolation {
	return domainagg.IntegrityViolation{ContactID: id, Rule: rule, Detail: detail}
}
