package fanout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairchance/notification-service/internal/domain/broadcast"
	"github.com/fairchance/notification-service/internal/domain/entrant"
	"github.com/fairchance/notification-service/internal/domain/event"
	"github.com/fairchance/notification-service/internal/domain/shared"
	"github.com/fairchance/notification-service/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type fakeEvents struct {
	event *event.Event
	err   error
}

func (f *fakeEvents) FindByID(_ context.Context, id event.ID) (*event.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

type fakeRecipients struct {
	records []*entrant.Record
	err     error
}

func (f *fakeRecipients) ListGroup(_ context.Context, eventID string, group entrant.Group) ([]*entrant.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*entrant.Record
	for _, r := range f.records {
		if r.EventID == eventID && r.Group == group {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRecipients) Find(_ context.Context, eventID string, group entrant.Group, id entrant.ID) (*entrant.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.records {
		if r.EventID == eventID && r.Group == group && r.EntrantID == id {
			return r, nil
		}
	}
	return nil, shared.ErrEntrantNotFound
}

type fakeProfiles struct {
	profiles map[entrant.ID]*user.Profile
	err      error
}

func (f *fakeProfiles) FindByEntrantID(_ context.Context, id entrant.ID) (*user.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[id], nil
}

type fakePusher struct {
	calls  int
	tokens []string
	msg    broadcast.Message
	result PushResult
	err    error
}

func (f *fakePusher) SendMulticast(_ context.Context, msg broadcast.Message, tokens []string) (PushResult, error) {
	f.calls++
	f.msg = msg
	f.tokens = tokens
	if f.err != nil {
		return PushResult{}, f.err
	}
	return f.result, nil
}

type fakeReconciler struct {
	calls int
	batch ReconcileBatch
	err   error
}

func (f *fakeReconciler) Commit(_ context.Context, batch ReconcileBatch) error {
	f.calls++
	f.batch = batch
	return f.err
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func selectionEvent() *event.Event {
	date := time.Date(2026, 11, 4, 0, 0, 0, 0, time.UTC)
	return &event.Event{ID: "ev1", Name: "Summer Lottery", Date: &date}
}

func pendingRecord(id entrant.ID) *entrant.Record {
	return &entrant.Record{EventID: "ev1", Group: entrant.GroupSelected, EntrantID: id, Status: entrant.StatusPending}
}

func tokenProfile(id entrant.ID, token string) *user.Profile {
	return &user.Profile{EntrantID: id, DeliveryToken: token}
}

type fixture struct {
	events     *fakeEvents
	recipients *fakeRecipients
	profiles   *fakeProfiles
	pusher     *fakePusher
	reconciler *fakeReconciler
}

func newFixture() *fixture {
	return &fixture{
		events:     &fakeEvents{event: selectionEvent()},
		recipients: &fakeRecipients{},
		profiles:   &fakeProfiles{profiles: map[entrant.ID]*user.Profile{}},
		pusher:     &fakePusher{},
		reconciler: &fakeReconciler{},
	}
}

func (f *fixture) orchestrator(opts Options) *Orchestrator {
	return NewOrchestrator(f.events, f.recipients, f.profiles, f.pusher, f.reconciler, nil, testLogger(), opts)
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestDispatch_SelectionHappyPath(t *testing.T) {
	f := newFixture()
	f.recipients.records = []*entrant.Record{pendingRecord("e1"), pendingRecord("e2"), pendingRecord("e3")}
	f.profiles.profiles["e1"] = tokenProfile("e1", "tok1")
	f.profiles.profiles["e2"] = tokenProfile("e2", "tok2")
	f.profiles.profiles["e3"] = tokenProfile("e3", "tok3")
	f.pusher.result = PushResult{SuccessCount: 3}

	o := f.orchestrator(Options{TreatMissingTokenAsDelivered: true})
	summary, err := o.Dispatch(context.Background(), Request{
		EventID: "ev1", Kind: broadcast.KindSelectionResult, SenderID: "org1", SenderName: "Organizer",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.SentCount)
	assert.Equal(t, 0, summary.FailureCount)

	assert.Equal(t, 1, f.pusher.calls)
	assert.Len(t, f.pusher.tokens, 3)
	assert.Equal(t, "You have been selected!", f.pusher.msg.Title)

	require.Equal(t, 1, f.reconciler.calls)
	batch := f.reconciler.batch
	assert.Equal(t, "ev1", batch.EventID)
	assert.Equal(t, entrant.GroupSelected, batch.Group)
	assert.Len(t, batch.EntrantIDs, 3)
	assert.Equal(t, "Summer Lottery", batch.EventName)
	assert.Equal(t, "Nov 4, 2026", batch.EventDate)
	assert.Equal(t, ConfirmationInstructions, batch.Instructions)

	require.NotNil(t, batch.Log)
	assert.NotEmpty(t, batch.Log.ID)
	assert.Equal(t, broadcast.KindSelectionResult, batch.Log.Kind)
	assert.Equal(t, "org1", batch.Log.SenderID)
	assert.Equal(t, 3, batch.Log.RecipientCount)
	assert.Equal(t, 3, batch.Log.SentCount)
}

func TestDispatch_RerunAfterCompletionIsNoOp(t *testing.T) {
	f := newFixture()
	notified := pendingRecord("e1")
	notified.Status = entrant.StatusNotified
	f.recipients.records = []*entrant.Record{notified}

	o := f.orchestrator(Options{TreatMissingTokenAsDelivered: true})
	summary, err := o.Dispatch(context.Background(), Request{EventID: "ev1", Kind: broadcast.KindSelectionResult})
	require.NoError(t, err)

	assert.Zero(t, summary.SentCount)
	assert.Zero(t, summary.FailureCount)
	assert.Zero(t, f.pusher.calls)
	assert.Zero(t, f.reconciler.calls)
}

func TestDispatch_OptOutExcludedFromBatchAndCounts(t *testing.T) {
	f := newFixture()
	f.recipients.records = []*entrant.Record{pendingRecord("e1"), pendingRecord("e2")}
	f.profiles.profiles["e1"] = tokenProfile("e1", "tok1")
	f.profiles.profiles["e2"] = &user.Profile{
		EntrantID:     "e2",
		DeliveryToken: "tok2",
		Preferences: user.Preferences{
			user.PrefLotteryResults:   false,
			user.PrefOrganizerUpdates: false,
		},
	}
	f.pusher.result = PushResult{SuccessCount: 1}

	o := f.orchestrator(Options{TreatMissingTokenAsDelivered: true})
	summary, err := o.Dispatch(context.Background(), Request{EventID: "ev1", Kind: broadcast.KindSelectionResult})
	require.NoError(t, err)

	// The opted-out entrant appears in neither count and stays out of the
	// batch, so its record remains pending for a future run.
	assert.Equal(t, 1, summary.SentCount)
	assert.Equal(t, 0, summary.FailureCount)
	assert.Equal(t, []string{"tok1"}, f.pusher.tokens)
	require.Equal(t, 1, f.reconciler.calls)
	assert.Equal(t, []entrant.ID{"e1"}, f.reconciler.batch.EntrantIDs)
}

func TestDispatch_AllRecipientsOptedOut(t *testing.T) {
	f := newFixture()
	f.recipients.records = []*entrant.Record{pendingRecord("e1")}
	f.profiles.profiles["e1"] = &user.Profile{
		EntrantID: "e1",
		Preferences: user.Preferences{
			user.PrefLotteryResults:   false,
			user.PrefOrganizerUpdates: false,
		},
	}

	o := f.orchestrator(Options{TreatMissingTokenAsDelivered: true})
	summary, err := o.Dispatch(context.Background(), Request{EventID: "ev1", Kind: broadcast.KindSelectionResult})
	require.NoError(t, err)

	assert.Zero(t, summary.Attempted())
	assert.Zero(t, f.pusher.calls)
	assert.Zero(t, f.reconciler.calls)
}

func TestDispatch_MissingTokenCountedSent(t *testing.T) {
	f := newFixture()
	f.recipients.records = []*entrant.Record{pendingRecord("e1"), pendingRecord("e2")}
	f.profiles.profiles["e1"] = tokenProfile("e1", "tok1")
	// e2 has no profile at all: allowed, no token.
	f.pusher.result = PushResult{SuccessCount: 1}

	o := f.orchestrator(Options{TreatMissingTokenAsDelivered: true})
	summary, err := o.Dispatch(context.Background(), Request{EventID: "ev1", Kind: broadcast.KindSelectionResult})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.SentCount)
	assert.Equal(t, 0, summary.FailureCount)
	assert.Equal(t, []string{"tok1"}, f.pusher.tokens)

	// Both entrants transition; the tokenless one must not stay pending
	// forever.
	require.Equal(t, 1, f.reconciler.calls)
	assert.Len(t, f.reconciler.batch.EntrantIDs, 2)
}

func TestDispatch_MissingTokenCountedFailed(t *testing.T) {
	f := newFixture()
	f.recipients.records = []*entrant.Record{pendingRecord("e1"), pendingRecord("e2")}
	f.profiles.profiles["e1"] = tokenProfile("e1", "tok1")
	f.pusher.result = PushResult{SuccessCount: 1}

	o := f.orchestrator(Options{TreatMissingTokenAsDelivered: false})
	summary, err := o.Dispatch(context.Background(), Request{EventID: "ev1", Kind: broadcast.KindSelectionResult})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SentCount)
	assert.Equal(t, 1, summary.FailureCount)
	assert.Len(t, f.reconciler.batch.EntrantIDs, 2)
}

func TestDispatch_AllTokenlessSkipsGatewayCall(t *testing.T) {
	f := newFixture()
	f.recipients.records = []*entrant.Record{pendingRecord("e1"), pendingRecord("e2")}

	o := f.orchestrator(Options{TreatMissingTokenAsDelivered: true})
	summary, err := o.Dispatch(context.Background(), Request{EventID: "ev1", Kind: broadcast.KindSelectionResult})
	require.NoError(t, err)

	assert.Zero(t, f.pusher.calls)
	assert.Equal(t, 2, summary.SentCount)
	assert.Equal(t, 1, f.reconciler.calls)
}

func TestDispatch_GatewayFailureAbortsBeforeReconcile(t *testing.T) {
	f := newFixture()
	f.recipients.records = []*entrant.Record{pendingRecord("e1")}
	f.profiles.profiles["e1"] = tokenProfile("e1", "tok1")
	f.pusher.err = shared.NewDomainError("push", "SendMulticast", shared.ErrGatewayFailure, "gateway down")

	o := f.orchestrator(Options{TreatMissingTokenAsDelivered: true})
	_, err := o.Dispatch(context.Background(), Request{EventID: "ev1", Kind: broadcast.KindSelectionResult})
	require.Error(t, err)
	assert.True(t, shared.IsGatewayFailure(err))

	// Nothing persisted: the record stays pending so a retry can cover it.
	assert.Zero(t, f.reconciler.calls)
}

func TestDispatch_EmptyGroup(t *testing.T) {
	f := newFixture()

	o := f.orchestrator(Options{TreatMissingTokenAsDelivered: true})
	summary, err := o.Dispatch(context.Background(), Request{EventID: "ev1", Kind: broadcast.KindWaitingListUpdate})
	require.NoError(t, err)

	assert.Zero(t, summary.Attempted())
	assert.Zero(t, f.pusher.calls)
	assert.Zero(t, f.reconciler.calls)
}

func TestDispatch_SingleTargetSelection(t *testing.T) {
	f := newFixture()
	f.recipients.records = []*entrant.Record{pendingRecord("e1"), pendingRecord("e2")}
	f.profiles.profiles["e1"] = tokenProfile("e1", "tok1")
	f.profiles.profiles["e2"] = tokenProfile("e2", "tok2")
	f.pusher.result = PushResult{SuccessCount: 1}

	o := f.orchestrator(Options{TreatMissingTokenAsDelivered: true})
	summary, err := o.Dispatch(context.Background(), Request{
		EventID: "ev1", Kind: broadcast.KindSelectionResult, EntrantID: "e2",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SentCount)
	assert.Equal(t, []string{"tok2"}, f.pusher.tokens)
	assert.Equal(t, []entrant.ID{"e2"}, f.reconciler.batch.EntrantIDs)
}

func TestDispatch_SingleTargetMissingIsNoOp(t *testing.T) {
	f := newFixture()
	f.recipients.records = []*entrant.Record{pendingRecord("e1")}

	o := f.orchestrator(Options{TreatMissingTokenAsDelivered: true})
	summary, err := o.Dispatch(context.Background(), Request{
		EventID: "ev1", Kind: broadcast.KindSelectionResult, EntrantID: "ghost",
	})
	require.NoError(t, err)

	assert.Zero(t, summary.Attempted())
	assert.Zero(t, f.pusher.calls)
	assert.Zero(t, f.reconciler.calls)
}

func TestDispatch_SingleTargetAlreadyNotifiedIsNoOp(t *testing.T) {
	f := newFixture()
	notified := pendingRecord("e1")
	notified.Status = entrant.StatusNotified
	f.recipients.records = []*entrant.Record{notified}

	o := f.orchestrator(Options{TreatMissingTokenAsDelivered: true})
	summary, err := o.Dispatch(context.Background(), Request{
		EventID: "ev1", Kind: broadcast.KindSelectionResult, EntrantID: "e1",
	})
	require.NoError(t, err)

	assert.Zero(t, summary.Attempted())
	assert.Zero(t, f.reconciler.calls)
}

func TestDispatch_WaitingListIgnoresEntrantIDAndStatus(t *testing.T) {
	f := newFixture()
	f.recipients.records = []*entrant.Record{
		{EventID: "ev1", Group: entrant.GroupWaitingList, EntrantID: "w1"},
		{EventID: "ev1", Group: entrant.GroupWaitingList, EntrantID: "w2"},
	}
	f.profiles.profiles["w1"] = tokenProfile("w1", "tokA")
	f.profiles.profiles["w2"] = tokenProfile("w2", "tokB")
	f.pusher.result = PushResult{SuccessCount: 2}

	o := f.orchestrator(Options{TreatMissingTokenAsDelivered: true})
	summary, err := o.Dispatch(context.Background(), Request{
		EventID: "ev1", Kind: broadcast.KindWaitingListUpdate, EntrantID: "w1", MessageOverride: "Spots opened up!",
	})
	require.NoError(t, err)

	// EntrantID narrowing applies only to selection results.
	assert.Equal(t, 2, summary.SentCount)
	assert.Len(t, f.pusher.tokens, 2)
	assert.Equal(t, "Spots opened up!", f.pusher.msg.Body)
	assert.Equal(t, "Spots opened up!", f.reconciler.batch.Log.MessageBody)
	assert.Empty(t, f.reconciler.batch.Instructions)
}

func TestDispatch_PartialGatewayFailureCounts(t *testing.T) {
	f := newFixture()
	f.recipients.records = []*entrant.Record{pendingRecord("e1"), pendingRecord("e2"), pendingRecord("e3")}
	f.profiles.profiles["e1"] = tokenProfile("e1", "tok1")
	f.profiles.profiles["e2"] = tokenProfile("e2", "tok2")
	f.profiles.profiles["e3"] = tokenProfile("e3", "tok3")
	f.pusher.result = PushResult{SuccessCount: 2, FailureCount: 1}

	o := f.orchestrator(Options{TreatMissingTokenAsDelivered: true})
	summary, err := o.Dispatch(context.Background(), Request{EventID: "ev1", Kind: broadcast.KindSelectionResult})
	require.NoError(t, err)

	// Partial failure does not abort: every attempted record transitions,
	// including the failed ones. The counts surface the problem instead.
	assert.Equal(t, 2, summary.SentCount)
	assert.Equal(t, 1, summary.FailureCount)
	assert.Len(t, f.reconciler.batch.EntrantIDs, 3)
}

func TestDispatch_Validation(t *testing.T) {
	f := newFixture()
	o := f.orchestrator(Options{})

	_, err := o.Dispatch(context.Background(), Request{Kind: broadcast.KindSelectionResult})
	assert.ErrorIs(t, err, shared.ErrEventIDRequired)

	_, err = o.Dispatch(context.Background(), Request{EventID: "ev1", Kind: "bogus"})
	assert.True(t, shared.IsInvalidArgument(err))
}

func TestDispatch_EventNotFound(t *testing.T) {
	f := newFixture()
	f.events.err = shared.ErrEventNotFound

	o := f.orchestrator(Options{})
	_, err := o.Dispatch(context.Background(), Request{EventID: "ghost", Kind: broadcast.KindSelectionResult})
	assert.True(t, shared.IsNotFound(err))
}

func TestDispatch_ProfileReadFailureAborts(t *testing.T) {
	f := newFixture()
	f.recipients.records = []*entrant.Record{pendingRecord("e1")}
	f.profiles.err = errors.New("store unavailable")

	o := f.orchestrator(Options{TreatMissingTokenAsDelivered: true})
	_, err := o.Dispatch(context.Background(), Request{EventID: "ev1", Kind: broadcast.KindSelectionResult})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrStorageRead)
	assert.Zero(t, f.pusher.calls)
	assert.Zero(t, f.reconciler.calls)
}

func TestDispatch_ReconcileFailureSurfaces(t *testing.T) {
	f := newFixture()
	f.recipients.records = []*entrant.Record{pendingRecord("e1")}
	f.profiles.profiles["e1"] = tokenProfile("e1", "tok1")
	f.pusher.result = PushResult{SuccessCount: 1}
	f.reconciler.err = shared.NewDomainError("postgres", "Reconcile", shared.ErrStorageWrite, "tx failed")

	o := f.orchestrator(Options{TreatMissingTokenAsDelivered: true})
	_, err := o.Dispatch(context.Background(), Request{EventID: "ev1", Kind: broadcast.KindSelectionResult})
	require.Error(t, err)
	assert.True(t, shared.IsStorageWrite(err))
}
