package aggregates

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/yungbote/identity-backend/internal/data/repos"
	types "github.com/yungbote/identity-backend/internal/domain"
	domainagg "github.com/yungbote/identity-backend/internal/domain/aggregates"
	"github.com/yungbote/identity-backend/internal/platform/dbctx"
)

const identityTracerName = "github.com/yungbote/identity-backend/internal/data/aggregates"

type IdentityAggregateDeps struct {
	Base BaseDeps

	Contacts repos.ContactRepo
	Events   repos.LinkEventRepo

	Policy domainagg.SecondaryFieldPolicy
	// Clock stamps created and updated rows. Defaults to UTC wall time.
	Clock func() time.Time
}

type identityAggregate struct {
	deps   IdentityAggregateDeps
	tracer trace.Tracer
}

func NewIdentityAggregate(deps IdentityAggregateDeps) domainagg.IdentityAggregate {
	if deps.Base.Runner == nil && deps.Base.DB != nil {
		deps.Base.Runner = NewGormTxRunnerWithOptions(deps.Base.DB, TxOptions{
			Isolation: domainagg.IdentityAggregateContract.Isolation,
		})
	}
	deps.Base = deps.Base.withDefaults()
	if deps.Policy == "" {
		deps.Policy = domainagg.SecondaryFieldsCopyBoth
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &identityAggregate{deps: deps, tracer: otel.Tracer(identityTracerName)}
}

func (a *identityAggregate) Contract() domainagg.Contract {
	return domainagg.IdentityAggregateContract
}

// mergeOutcome is what the Merger did inside one transaction.
type mergeOutcome struct {
	main     *types.Contact
	created  *types.Contact
	demoted  []int64
	relinked int64
}

func (a *identityAggregate) Identify(ctx context.Context, in domainagg.IdentifyInput) (domainagg.IdentifyResult, error) {
	const op = "Contacts.Identity.Identify"
	var out domainagg.IdentifyResult

	email := normalizeField(in.Email)
	phone := normalizeField(in.PhoneNumber)
	if email == "" && phone == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "email or phoneNumber is required", nil)
	}
	if a.deps.Contacts == nil || a.deps.Events == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "identity aggregate repos not configured", nil)
	}

	var res mergeOutcome
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		primaries, err := a.match(dbc, email, phone)
		if err != nil {
			return err
		}
		res, err = a.reconcile(dbc, primaries, email, phone, in.RequestID)
		return err
	})
	if err != nil {
		return out, err
	}

	out.PrimaryID = res.main.ID
	out.DemotedIDs = res.demoted
	out.Relinked = res.relinked
	if res.created != nil {
		out.CreatedContactID = res.created.ID
	}
	a.notify(res)

	summary, err := a.project(ctx, res.main.ID)
	if err != nil {
		return out, MapError(op, err)
	}
	out.Summary = summary

	a.deps.Base.Log.Debug("identify reconciled",
		"primary_id", out.PrimaryID,
		"created_contact_id", out.CreatedContactID,
		"demoted", len(out.DemotedIDs),
		"request_id", in.RequestID,
	)
	return out, nil
}

func (a *identityAggregate) GetIdentity(ctx context.Context, contactID int64) (domainagg.IdentitySummary, error) {
	const op = "Contacts.Identity.GetIdentity"
	if contactID <= 0 {
		return domainagg.IdentitySummary{}, domainagg.NewError(domainagg.CodeValidation, op, "contact id must be positive", nil)
	}
	if a.deps.Contacts == nil {
		return domainagg.IdentitySummary{}, domainagg.NewError(domainagg.CodeInternal, op, "identity aggregate repos not configured", nil)
	}

	dbc := dbctx.Context{Ctx: ctx}
	c, err := a.deps.Contacts.GetByID(dbc, contactID)
	if err != nil {
		return domainagg.IdentitySummary{}, MapError(op, err)
	}
	if c == nil {
		return domainagg.IdentitySummary{}, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("contact not found: %d", contactID), nil)
	}
	if err := RequireLinked(c); err != nil {
		return domainagg.IdentitySummary{}, MapError(op, err)
	}
	if !c.IsPrimary() {
		p, err := a.deps.Contacts.GetByID(dbc, c.PrimaryID())
		if err != nil {
			return domainagg.IdentitySummary{}, MapError(op, err)
		}
		if err := RequirePrimary(c, p); err != nil {
			return domainagg.IdentitySummary{}, MapError(op, err)
		}
	}

	summary, err := a.project(ctx, c.PrimaryID())
	if err != nil {
		return domainagg.IdentitySummary{}, MapError(op, err)
	}
	return summary, nil
}

// match returns the distinct primaries of every live contact sharing the
// email or the phone, in match order.
func (a *identityAggregate) match(dbc dbctx.Context, email, phone string) ([]*types.Contact, error) {
	ctx, span := a.tracer.Start(dbc.Ctx, "identity.match")
	defer span.End()
	dbc.Ctx = ctx

	rows, err := a.deps.Contacts.FindByEmailOrPhone(dbc, email, phone)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	seen := make(map[int64]*types.Contact, len(rows))
	primaries := make([]*types.Contact, 0, len(rows))
	for _, c := range rows {
		if err := RequireLinked(c); err != nil {
			span.SetStatus(codes.Error, "integrity fault")
			return nil, err
		}
		pid := c.PrimaryID()
		if _, ok := seen[pid]; ok {
			continue
		}
		p := c
		if !c.IsPrimary() {
			p, err = a.deps.Contacts.GetByID(dbc, pid)
			if err != nil {
				return nil, err
			}
			if err := RequirePrimary(c, p); err != nil {
				span.SetStatus(codes.Error, "integrity fault")
				return nil, err
			}
		}
		seen[pid] = p
		primaries = append(primaries, p)
	}

	span.SetAttributes(
		attribute.Int("identity.matched", len(rows)),
		attribute.Int("identity.primaries", len(primaries)),
	)
	return primaries, nil
}

// reconcile merges the matched primaries under the most senior one and records
// any new information as a secondary.
func (a *identityAggregate) reconcile(dbc dbctx.Context, primaries []*types.Contact, email, phone, requestID string) (mergeOutcome, error) {
	ctx, span := a.tracer.Start(dbc.Ctx, "identity.merge")
	defer span.End()
	dbc.Ctx = ctx

	var out mergeOutcome
	now := a.deps.Clock()
	var events []*types.ContactLinkEvent

	if len(primaries) == 0 {
		c := &types.Contact{
			Email:          ptrOrNil(email),
			PhoneNumber:    ptrOrNil(phone),
			LinkPrecedence: types.LinkPrecedencePrimary,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if _, err := a.deps.Contacts.Create(dbc, []*types.Contact{c}); err != nil {
			return out, err
		}
		out.main = c
		out.created = c
		events = append(events, linkEvent(c.ID, c.ID, types.LinkActionCreatedPrimary, requestID, now, nil))
		span.SetAttributes(attribute.String("identity.case", "new"))
		return out, a.deps.Events.Create(dbc, events)
	}

	ordered := append([]*types.Contact(nil), primaries...)
	sort.SliceStable(ordered, func(i, j int) bool { return moreSenior(ordered[i], ordered[j]) })
	main := ordered[0]
	mainID := main.ID
	out.main = main

	for _, q := range ordered[1:] {
		ok, err := a.deps.Contacts.Demote(dbc, q.ID, main.ID, now)
		if err != nil {
			return out, err
		}
		if err := RequireCASSuccess(ok, fmt.Sprintf("contact %d is no longer primary", q.ID)); err != nil {
			return out, err
		}
		n, err := a.deps.Contacts.Relink(dbc, q.ID, main.ID, now)
		if err != nil {
			return out, err
		}
		out.demoted = append(out.demoted, q.ID)
		out.relinked += n
		events = append(events, linkEvent(q.ID, main.ID, types.LinkActionDemoted, requestID, now, map[string]any{
			"previous_primary_id": q.ID,
		}))
		if n > 0 {
			events = append(events, linkEvent(q.ID, main.ID, types.LinkActionRelinked, requestID, now, map[string]any{
				"from_primary_id": q.ID,
				"rows":            n,
			}))
		}
	}

	cluster, err := a.deps.Contacts.ListCluster(dbc, main.ID)
	if err != nil {
		return out, err
	}
	emailKnown, phoneKnown := clusterHas(cluster, email, phone)
	if (email != "" && !emailKnown) || (phone != "" && !phoneKnown) {
		sec := &types.Contact{
			Email:          ptrOrNil(email),
			PhoneNumber:    ptrOrNil(phone),
			LinkedID:       &mainID,
			LinkPrecedence: types.LinkPrecedenceSecondary,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if a.deps.Policy == domainagg.SecondaryFieldsNewOnly {
			if emailKnown {
				sec.Email = nil
			}
			if phoneKnown {
				sec.PhoneNumber = nil
			}
		}
		if _, err := a.deps.Contacts.Create(dbc, []*types.Contact{sec}); err != nil {
			return out, err
		}
		out.created = sec
		events = append(events, linkEvent(sec.ID, main.ID, types.LinkActionCreatedSecondary, requestID, now, map[string]any{
			"policy": string(a.deps.Policy),
		}))
	}

	span.SetAttributes(
		attribute.Int64("identity.primary_id", main.ID),
		attribute.Int("identity.demoted", len(out.demoted)),
		attribute.Bool("identity.created", out.created != nil),
	)
	return out, a.deps.Events.Create(dbc, events)
}

// project reads the committed cluster and builds its summary.
func (a *identityAggregate) project(ctx context.Context, primaryID int64) (domainagg.IdentitySummary, error) {
	ctx, span := a.tracer.Start(ctx, "identity.project")
	defer span.End()

	rows, err := a.deps.Contacts.ListCluster(dbctx.Context{Ctx: ctx}, primaryID)
	if err != nil {
		span.RecordError(err)
		return domainagg.IdentitySummary{}, err
	}
	return ProjectCluster(primaryID, rows), nil
}

func (a *identityAggregate) notify(res mergeOutcome) {
	obs, ok := a.deps.Base.Hooks.(ReconcileObserver)
	if !ok {
		return
	}
	r := Reconciled{Demoted: len(res.demoted)}
	if res.created != nil {
		r.Created = res.created.LinkPrecedence
	}
	obs.ObserveReconciled(r)
}

// ProjectCluster builds the summary for primaryID from its cluster rows, which
// must be in created_at, id order. The primary's own values lead each list.
func ProjectCluster(primaryID int64, rows []*types.Contact) domainagg.IdentitySummary {
	out := domainagg.IdentitySummary{
		PrimaryContactID:    primaryID,
		Emails:              []string{},
		PhoneNumbers:        []string{},
		SecondaryContactIDs: []int64{},
	}
	seenEmail := map[string]struct{}{}
	seenPhone := map[string]struct{}{}
	addEmail := func(v string) {
		if v == "" {
			return
		}
		if _, ok := seenEmail[v]; ok {
			return
		}
		seenEmail[v] = struct{}{}
		out.Emails = append(out.Emails, v)
	}
	addPhone := func(v string) {
		if v == "" {
			return
		}
		if _, ok := seenPhone[v]; ok {
			return
		}
		seenPhone[v] = struct{}{}
		out.PhoneNumbers = append(out.PhoneNumbers, v)
	}

	for _, c := range rows {
		if c != nil && c.ID == primaryID {
			addEmail(c.EmailValue())
			addPhone(c.PhoneValue())
			break
		}
	}
	for _, c := range rows {
		if c == nil {
			continue
		}
		addEmail(c.EmailValue())
		addPhone(c.PhoneValue())
		if c.ID != primaryID {
			out.SecondaryContactIDs = append(out.SecondaryContactIDs, c.ID)
		}
	}
	return out
}

func moreSenior(x, y *types.Contact) bool {
	if !x.CreatedAt.Equal(y.CreatedAt) {
		return x.CreatedAt.Before(y.CreatedAt)
	}
	return x.ID < y.ID
}

func clusterHas(cluster []*types.Contact, email, phone string) (emailKnown, phoneKnown bool) {
	for _, c := range cluster {
		if email != "" && c.EmailValue() == email {
			emailKnown = true
		}
		if phone != "" && c.PhoneValue() == phone {
			phoneKnown = true
		}
	}
	return emailKnown, phoneKnown
}

func linkEvent(contactID, primaryID int64, action types.LinkAction, requestID string, at time.Time, details map[string]any) *types.ContactLinkEvent {
	if details == nil {
		details = map[string]any{}
	}
	raw, _ := json.Marshal(details)
	return &types.ContactLinkEvent{
		ContactID: contactID,
		PrimaryID: primaryID,
		Action:    action,
		RequestID: strings.TrimSpace(requestID),
		Details:   datatypes.JSON(raw),
		CreatedAt: at,
	}
}

// normalizeField treats a missing or blank value as absent. Present values
// are kept verbatim since matching is exact.
func normalizeField(v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return ""
	}
	return *v
}

func ptrOrNil(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
