package fanout

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairchance/notification-service/internal/domain/broadcast"
	"github.com/fairchance/notification-service/internal/domain/entrant"
	"github.com/fairchance/notification-service/internal/domain/event"
	"github.com/fairchance/notification-service/internal/domain/shared"
	"github.com/fairchance/notification-service/internal/domain/user"
	"github.com/fairchance/notification-service/pkg/retry"
	"github.com/fairchance/notification-service/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST
// ══════════════════════════════════════════════════════════════════════════════

// Request describes one fan-out invocation.
type Request struct {
	// EventID - the event whose recipient groups are targeted. Required.
	EventID string

	// Kind - which fan-out flavor to run. Required.
	Kind broadcast.Kind

	// EntrantID narrows a selection-result fan-out to a single recipient.
	// Ignored for the other kinds; their broadcasts always target the
	// whole group.
	EntrantID entrant.ID

	// MessageOverride replaces the default body text when the organizer
	// typed a custom message. Empty means use the composed default.
	MessageOverride string

	// SenderID and SenderName identify the organizer for the audit log.
	// Optional; system-triggered fan-outs leave them empty.
	SenderID   string
	SenderName string
}

// Validate checks the request fields.
func (r Request) Validate() error {
	if r.EventID == "" {
		return shared.ErrEventIDRequired
	}
	if !r.Kind.IsValid() {
		return shared.NewDomainError("fanout", "Dispatch", shared.ErrInvalidArgument,
			"unknown broadcast kind "+string(r.Kind))
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ORCHESTRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Options tunes orchestrator policy.
type Options struct {
	// TreatMissingTokenAsDelivered controls how recipients without a
	// registered device are counted. True (the default policy) counts
	// them as sent: the record transition matters more than the push,
	// and the client re-reads its record on next app open. False counts
	// them as failures so organizers can see unreachable entrants.
	TreatMissingTokenAsDelivered bool

	// ProfileWorkers bounds concurrent profile reads. Zero means 8.
	ProfileWorkers int
}

// Orchestrator runs the fan-out pipeline: select recipients, resolve
// profiles, compose, dispatch one multicast, reconcile atomically.
type Orchestrator struct {
	events     event.Reader
	recipients entrant.Repository
	profiles   user.Repository
	pusher     Pusher
	reconciler Reconciler
	composer   *Composer
	metrics    Recorder
	logger     *slog.Logger
	retrier    *retry.Retrier
	now        func() time.Time

	missingTokenDelivered bool
	profileWorkers        int
}

// NewOrchestrator wires the fan-out pipeline.
func NewOrchestrator(
	events event.Reader,
	recipients entrant.Repository,
	profiles user.Repository,
	pusher Pusher,
	reconciler Reconciler,
	metrics Recorder,
	logger *slog.Logger,
	opts Options,
) *Orchestrator {
	if metrics == nil {
		metrics = NopRecorder{}
	}
	workers := opts.ProfileWorkers
	if workers <= 0 {
		workers = 8
	}
	return &Orchestrator{
		events:                events,
		recipients:            recipients,
		profiles:              profiles,
		pusher:                pusher,
		reconciler:            reconciler,
		composer:              NewComposer(),
		metrics:               metrics,
		logger:                logger,
		retrier:               retry.ProfileReadRetrier(),
		now:                   timeutil.Now,
		missingTokenDelivered: opts.TreatMissingTokenAsDelivered,
		profileWorkers:        workers,
	}
}

// Dispatch runs one fan-out invocation and returns the delivery summary.
//
// The pipeline is ordered so that every failure mode leaves a safe retry
// point: nothing is persisted until the final reconciliation write, and
// that write is atomic. A gateway failure therefore aborts the invocation
// with no records transitioned; re-invoking after any error other than
// InvalidArgument or NotFound is always safe.
func (o *Orchestrator) Dispatch(ctx context.Context, req Request) (broadcast.Summary, error) {
	if err := req.Validate(); err != nil {
		return broadcast.Summary{}, err
	}

	ev, err := o.events.FindByID(ctx, event.ID(req.EventID))
	if err != nil {
		return broadcast.Summary{}, err
	}

	records, err := o.selectRecipients(ctx, req)
	if err != nil {
		return broadcast.Summary{}, err
	}
	if len(records) == 0 {
		o.logger.Info("fan-out found no eligible recipients",
			slog.String("event_id", req.EventID),
			slog.String("kind", req.Kind.String()))
		return broadcast.Summary{}, nil
	}

	resolved, err := o.resolveProfiles(ctx, records)
	if err != nil {
		return broadcast.Summary{}, err
	}

	// Partition by opt-out, then by token presence. Skipped recipients are
	// excluded from the reconciliation batch entirely so a later preference
	// change lets the next run reach them.
	var (
		attempted []entrant.ID
		tokens    []string
		tokenless int
		skipped   int
	)
	for _, r := range resolved {
		if !r.profile.Allows(req.Kind) {
			skipped++
			continue
		}
		attempted = append(attempted, r.record.EntrantID)
		if r.profile.HasDeliveryToken() {
			tokens = append(tokens, r.profile.DeliveryToken)
		} else {
			tokenless++
		}
	}

	if len(attempted) == 0 {
		o.logger.Info("fan-out suppressed entirely by recipient preferences",
			slog.String("event_id", req.EventID),
			slog.String("kind", req.Kind.String()),
			slog.Int("skipped", skipped))
		o.metrics.RecordBroadcast(req.Kind, 0, 0, skipped)
		return broadcast.Summary{}, nil
	}

	msg := o.composer.Compose(ev, req.Kind, req.MessageOverride)

	var summary broadcast.Summary
	if len(tokens) > 0 {
		res, err := o.pusher.SendMulticast(ctx, msg, tokens)
		if err != nil {
			// Nothing has been written yet; the caller may retry the
			// whole invocation.
			return broadcast.Summary{}, err
		}
		summary.SentCount = res.SuccessCount
		summary.FailureCount = res.FailureCount
	}
	if o.missingTokenDelivered {
		summary.SentCount += tokenless
	} else {
		summary.FailureCount += tokenless
	}

	now := o.now()
	batch := ReconcileBatch{
		EventID:      req.EventID,
		Group:        req.Kind.TargetGroup(),
		EntrantIDs:   attempted,
		NotifiedAt:   now,
		EventName:    ev.DisplayName(),
		EventDate:    ev.FormattedDate(),
		Instructions: o.composer.Instructions(req.Kind),
		Log: &broadcast.LogEntry{
			ID:             uuid.New().String(),
			EventID:        req.EventID,
			EventName:      ev.DisplayName(),
			Kind:           req.Kind,
			SenderID:       req.SenderID,
			SenderName:     req.SenderName,
			MessageBody:    msg.Body,
			RecipientIDs:   attempted,
			RecipientCount: len(attempted),
			SentCount:      summary.SentCount,
			FailureCount:   summary.FailureCount,
			CreatedAt:      now,
		},
	}
	if err := o.reconciler.Commit(ctx, batch); err != nil {
		return broadcast.Summary{}, err
	}

	o.metrics.RecordBroadcast(req.Kind, summary.SentCount, summary.FailureCount, skipped)
	o.logger.Info("fan-out completed",
		slog.String("event_id", req.EventID),
		slog.String("kind", req.Kind.String()),
		slog.Int("sent", summary.SentCount),
		slog.Int("failed", summary.FailureCount),
		slog.Int("skipped", skipped))

	return summary, nil
}

// selectRecipients reads the recipient set fresh from the store. For
// status-gated kinds it keeps only records still pending or selected;
// already-notified records drop out here, which is what makes re-running
// a completed selection fan-out a no-op.
func (o *Orchestrator) selectRecipients(ctx context.Context, req Request) ([]*entrant.Record, error) {
	group := req.Kind.TargetGroup()

	if req.Kind.StatusGated() && req.EntrantID.IsValid() {
		rec, err := o.recipients.Find(ctx, req.EventID, group, req.EntrantID)
		if err != nil {
			if shared.IsNotFound(err) {
				// A missing or unknown single target yields an empty set,
				// not an error: the invocation is a no-op.
				return nil, nil
			}
			return nil, err
		}
		if !rec.EligibleFor() {
			return nil, nil
		}
		return []*entrant.Record{rec}, nil
	}

	records, err := o.recipients.ListGroup(ctx, req.EventID, group)
	if err != nil {
		return nil, err
	}
	if !req.Kind.StatusGated() {
		return records, nil
	}

	eligible := records[:0]
	for _, rec := range records {
		if rec.EligibleFor() {
			eligible = append(eligible, rec)
		}
	}
	return eligible, nil
}

// resolution pairs a recipient record with its profile. A nil profile is
// the "no profile stored" state: all preferences allowed, no token.
type resolution struct {
	record  *entrant.Record
	profile *user.Profile
}

// resolveProfiles loads each recipient's profile with bounded concurrency.
// Reads are independent and side-effect free, so they run in parallel and
// individual reads are retried; any read that still fails aborts the whole
// invocation before anything is sent or written.
func (o *Orchestrator) resolveProfiles(ctx context.Context, records []*entrant.Record) ([]resolution, error) {
	resolved := make([]resolution, len(records))
	errs := make([]error, len(records))

	sem := make(chan struct{}, o.profileWorkers)
	var wg sync.WaitGroup
	for i, rec := range records {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, rec *entrant.Record) {
			defer wg.Done()
			defer func() { <-sem }()

			var profile *user.Profile
			err := o.retrier.Do(ctx, func(ctx context.Context) error {
				var opErr error
				profile, opErr = o.profiles.FindByEntrantID(ctx, rec.EntrantID)
				return opErr
			})
			resolved[i] = resolution{record: rec, profile: profile}
			errs[i] = err
		}(i, rec)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, shared.WrapError("fanout", "ResolveProfiles", shared.ErrStorageRead,
				"loading recipient profile", err)
		}
	}
	return resolved, nil
}
