package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/riskibarqy/peg-league/internal/domain/competition"
	"github.com/riskibarqy/peg-league/internal/domain/notification"
	"github.com/riskibarqy/peg-league/internal/domain/payment"
	"github.com/riskibarqy/peg-league/internal/domain/slot"
	notificationmock "github.com/riskibarqy/peg-league/internal/mocks/domain/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func expectIntent(env *testEnv, ref string, amount int64) {
	env.gateway.
		On("CreatePaymentIntent", mock.Anything, mock.MatchedBy(func(req payment.IntentRequest) bool {
			return req.AmountMinor == amount
		})).
		Return(payment.Intent{Ref: ref, ClientSecret: ref + "_secret", Status: payment.StatusPending}, nil).
		Once()
}

func TestPaymentService_ConfirmTwiceAdmitsOnce(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, individualCompetition("paid-1", 10, 2500))
	expectIntent(env, "pi_001", 2500)
	env.gateway.On("IntentStatus", mock.Anything, "pi_001").Return(payment.StatusSucceeded, nil).Once()

	created, err := env.payments.CreateIntent(t.Context(), CreateIntentInput{ActorID: "angler-x", CompetitionID: "paid-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2500), created.Payment.AmountMinor)
	assert.Equal(t, "pi_001_secret", created.ClientSecret)

	input := ConfirmInput{ActorID: "angler-x", IntentRef: "pi_001", CompetitionID: "paid-1"}
	first, err := env.payments.ConfirmAndAdmit(t.Context(), input)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := env.payments.ConfirmAndAdmit(t.Context(), input)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.SlotNumbers(), second.SlotNumbers())
	assert.Equal(t, 1, assertConserved(t, env, "paid-1"))

	stored, _, err := env.store.Payments().GetByIntentRef(t.Context(), "pi_001")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusSucceeded, stored.Status)
}

func TestPaymentService_ConcurrentConfirmsShareOneSeat(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, individualCompetition("paid-2", 10, 1000))
	expectIntent(env, "pi_002", 1000)
	env.gateway.On("IntentStatus", mock.Anything, "pi_002").Return(payment.StatusSucceeded, nil).Maybe()

	_, err := env.payments.CreateIntent(t.Context(), CreateIntentInput{ActorID: "angler-x", CompetitionID: "paid-2"})
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]AdmissionResult, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = env.payments.ConfirmAndAdmit(context.Background(), ConfirmInput{
				ActorID:       "angler-x",
				IntentRef:     "pi_002",
				CompetitionID: "paid-2",
			})
		}()
	}
	wg.Wait()

	fresh := 0
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].SlotNumbers(), results[i].SlotNumbers())
		if !results[i].Replayed {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	assert.Equal(t, 1, assertConserved(t, env, "paid-2"))
}

func TestPaymentService_ReplayHealsBookedCount(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, individualCompetition("paid-3", 10, 1000))
	expectIntent(env, "pi_003", 1000)
	env.gateway.On("IntentStatus", mock.Anything, "pi_003").Return(payment.StatusSucceeded, nil).Once()

	_, err := env.payments.CreateIntent(t.Context(), CreateIntentInput{ActorID: "angler-x", CompetitionID: "paid-3"})
	require.NoError(t, err)
	input := ConfirmInput{ActorID: "angler-x", IntentRef: "pi_003", CompetitionID: "paid-3"}
	_, err = env.payments.ConfirmAndAdmit(t.Context(), input)
	require.NoError(t, err)

	// drift the counter without touching reservations
	require.NoError(t, env.store.Ledger().Commit(t.Context(), slot.Admission{CompetitionID: "paid-3", Delta: 1}))
	drifted, _, _ := env.store.Competitions().GetByID(t.Context(), "paid-3")
	require.Equal(t, 2, drifted.BookedSlots)

	replayed, err := env.payments.ConfirmAndAdmit(t.Context(), input)
	require.NoError(t, err)
	assert.True(t, replayed.Replayed)
	assert.Equal(t, 1, assertConserved(t, env, "paid-3"))
}

func TestPaymentService_UnsettledPayments(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, individualCompetition("paid-4", 10, 1000))
	expectIntent(env, "pi_pending", 1000)
	env.gateway.On("IntentStatus", mock.Anything, "pi_pending").Return(payment.StatusPending, nil).Once()
	env.gateway.On("IntentStatus", mock.Anything, "pi_pending").Return(payment.StatusFailed, nil).Once()

	_, err := env.payments.CreateIntent(t.Context(), CreateIntentInput{ActorID: "angler-x", CompetitionID: "paid-4"})
	require.NoError(t, err)

	input := ConfirmInput{ActorID: "angler-x", IntentRef: "pi_pending", CompetitionID: "paid-4"}
	_, err = env.payments.ConfirmAndAdmit(t.Context(), input)
	assert.True(t, IsClass(err, ErrPaymentRequired))

	_, err = env.payments.ConfirmAndAdmit(t.Context(), input)
	assert.ErrorIs(t, err, ErrPaymentNotSettled)

	stored, _, err := env.store.Payments().GetByIntentRef(t.Context(), "pi_pending")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusFailed, stored.Status)
	assert.Equal(t, 0, assertConserved(t, env, "paid-4"))
}

func TestPaymentService_ConfirmGuards(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil,
		individualCompetition("paid-5", 10, 1000),
		individualCompetition("free-5", 10, 0),
	)
	expectIntent(env, "pi_005", 1000)

	_, err := env.payments.CreateIntent(t.Context(), CreateIntentInput{ActorID: "angler-x", CompetitionID: "paid-5"})
	require.NoError(t, err)

	_, err = env.payments.ConfirmAndAdmit(t.Context(), ConfirmInput{ActorID: "angler-y", IntentRef: "pi_005", CompetitionID: "paid-5"})
	assert.True(t, IsClass(err, ErrForbidden), "other competitor's payment")

	_, err = env.payments.ConfirmAndAdmit(t.Context(), ConfirmInput{ActorID: "angler-x", IntentRef: payment.FreeIntentRef, CompetitionID: "paid-5"})
	assert.True(t, IsClass(err, ErrPaymentRequired), "free sentinel on a paid competition")

	_, err = env.payments.ConfirmAndAdmit(t.Context(), ConfirmInput{ActorID: "angler-x", IntentRef: "pi_missing", CompetitionID: "paid-5"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.payments.CreateIntent(t.Context(), CreateIntentInput{ActorID: "angler-x", CompetitionID: "free-5"})
	assert.ErrorIs(t, err, ErrFreeCompetition)

	_, err = env.payments.Join(t.Context(), JoinInput{ActorID: "angler-x", CompetitionID: "free-5"})
	require.NoError(t, err)
	_, err = env.payments.Join(t.Context(), JoinInput{ActorID: "angler-x", CompetitionID: "free-5"})
	assert.ErrorIs(t, err, ErrAlreadyJoined)
}

func TestPaymentService_FreeTeamConfirmIsReplayed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, teamCompetition("free-teams", 4, 0, competition.PolicyOneSlotPerTeam, 2))
	item, err := env.teams.CreateTeam(t.Context(), CreateTeamInput{CompetitionID: "free-teams", CaptainID: "cap", Name: "Duo"})
	require.NoError(t, err)

	input := ConfirmInput{ActorID: "cap", IntentRef: payment.FreeIntentRef, CompetitionID: "free-teams", TeamID: item.ID}
	first, err := env.payments.ConfirmAndAdmit(t.Context(), input)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := env.payments.ConfirmAndAdmit(t.Context(), input)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.SlotNumbers(), second.SlotNumbers())
	assert.Equal(t, 1, assertConserved(t, env, "free-teams"))

	stored, _, err := env.store.Teams().GetByID(t.Context(), item.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid())
}

func TestPaymentService_FreeTeamReplayMarksSeatedTeamEntered(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, teamCompetition("free-teams-2", 4, 0, competition.PolicyOneSlotPerTeam, 2))
	item, err := env.teams.CreateTeam(t.Context(), CreateTeamInput{CompetitionID: "free-teams-2", CaptainID: "cap", Name: "Duo"})
	require.NoError(t, err)

	// seated by an earlier confirm that stopped before marking the team entered
	_, err = env.admission.AdmitTeam(t.Context(), AdmitTeamInput{CompetitionID: "free-teams-2", TeamID: item.ID})
	require.NoError(t, err)

	result, err := env.payments.ConfirmAndAdmit(t.Context(), ConfirmInput{
		ActorID: "cap", IntentRef: payment.FreeIntentRef, CompetitionID: "free-teams-2", TeamID: item.ID,
	})
	require.NoError(t, err)
	assert.True(t, result.Replayed)

	stored, _, err := env.store.Teams().GetByID(t.Context(), item.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid())
	assert.Equal(t, 1, assertConserved(t, env, "free-teams-2"))
}

func TestPaymentService_TeamPerMemberAmountAndInsufficientSlots(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, teamCompetition("teams-1", 3, 1500, competition.PolicyOneSlotPerMember, 3))

	item, err := env.teams.CreateTeam(t.Context(), CreateTeamInput{CompetitionID: "teams-1", CaptainID: "cap", Name: "Trio"})
	require.NoError(t, err)
	for _, id := range []string{"m1", "m2"} {
		_, err := env.teams.JoinByInviteCode(t.Context(), JoinTeamInput{Code: item.InviteCode, CompetitorID: id})
		require.NoError(t, err)
	}

	_, err = env.payments.CreateIntent(t.Context(), CreateIntentInput{ActorID: "m1", CompetitionID: "teams-1", TeamID: item.ID})
	assert.ErrorIs(t, err, ErrNotCaptain)

	expectIntent(env, "pi_team", 4500)
	created, err := env.payments.CreateIntent(t.Context(), CreateIntentInput{ActorID: "cap", CompetitionID: "teams-1", TeamID: item.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(4500), created.Payment.AmountMinor)

	// another team takes a peg before the captain confirms
	rival, err := env.teams.CreateTeam(t.Context(), CreateTeamInput{CompetitionID: "teams-1", CaptainID: "rival", Name: "Rivals"})
	require.NoError(t, err)
	_, err = env.admission.AdmitTeam(t.Context(), AdmitTeamInput{CompetitionID: "teams-1", TeamID: rival.ID})
	require.NoError(t, err)

	env.gateway.On("IntentStatus", mock.Anything, "pi_team").Return(payment.StatusSucceeded, nil).Once()
	_, err = env.payments.ConfirmAndAdmit(t.Context(), ConfirmInput{ActorID: "cap", IntentRef: "pi_team", CompetitionID: "teams-1", TeamID: item.ID})
	assert.ErrorIs(t, err, ErrInsufficientSlots)

	seats, err := env.store.Participants().ListByTeam(t.Context(), item.ID)
	require.NoError(t, err)
	assert.Empty(t, seats)
	assert.Equal(t, 1, assertConserved(t, env, "teams-1"))

	_, err = env.payments.CreateIntent(t.Context(), CreateIntentInput{ActorID: "cap", CompetitionID: "teams-1", TeamID: item.ID})
	assert.ErrorIs(t, err, ErrTeamAlreadyPaid)
}

func TestPaymentService_TeamPerTeamConfirmSeatsEveryone(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, teamCompetition("teams-2", 5, 2000, competition.PolicyOneSlotPerTeam, 2))

	item, err := env.teams.CreateTeam(t.Context(), CreateTeamInput{CompetitionID: "teams-2", CaptainID: "cap", Name: "Pair"})
	require.NoError(t, err)
	_, err = env.teams.JoinByInviteCode(t.Context(), JoinTeamInput{Code: item.InviteCode, CompetitorID: "mate"})
	require.NoError(t, err)

	expectIntent(env, "pi_pair", 2000)
	_, err = env.payments.CreateIntent(t.Context(), CreateIntentInput{ActorID: "cap", CompetitionID: "teams-2", TeamID: item.ID})
	require.NoError(t, err)

	env.gateway.On("IntentStatus", mock.Anything, "pi_pair").Return(payment.StatusSucceeded, nil).Once()
	result, err := env.payments.ConfirmAndAdmit(t.Context(), ConfirmInput{ActorID: "cap", IntentRef: "pi_pair", CompetitionID: "teams-2"})
	require.NoError(t, err)
	assert.Len(t, result.Participants, 2)
	assert.Len(t, result.SlotNumbers(), 1)

	stored, _, err := env.store.Teams().GetByID(t.Context(), item.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid())
	assert.Equal(t, 1, assertConserved(t, env, "teams-2"))
}

func TestPaymentService_NotificationFailureDoesNotFailAdmission(t *testing.T) {
	t.Parallel()

	notifier := notificationmock.NewNotifier(t)
	env := newTestEnv(t, notifier, individualCompetition("free-6", 10, 0))

	notifier.
		On("SendBookingConfirmation", mock.Anything, mock.MatchedBy(func(msg notification.Confirmation) bool {
			return msg.CompetitorID == "angler-x" && msg.CompetitorName == "Xavier Platt" && msg.SlotNumber > 0 && msg.FeeMinor == 0
		})).
		Return(errors.New("pool saturated")).
		Once()

	result, err := env.payments.Join(t.Context(), JoinInput{ActorID: "angler-x", CompetitionID: "free-6", SlotNumber: 4})
	require.NoError(t, err)
	assert.Equal(t, []int{4}, result.SlotNumbers())
}

func TestPaymentService_ConfirmationQuotesFee(t *testing.T) {
	t.Parallel()

	notifier := notificationmock.NewNotifier(t)
	env := newTestEnv(t, notifier,
		individualCompetition("paid-fee", 10, 2500),
		teamCompetition("teams-fee", 10, 1500, competition.PolicyOneSlotPerMember, 2),
	)

	notifier.
		On("SendBookingConfirmation", mock.Anything, mock.MatchedBy(func(msg notification.Confirmation) bool {
			return msg.CompetitionID == "paid-fee" && msg.FeeMinor == 2500 && msg.Currency == "GBP"
		})).
		Return(nil).
		Once()
	expectIntent(env, "pi_solo", 2500)
	env.gateway.On("IntentStatus", mock.Anything, "pi_solo").Return(payment.StatusSucceeded, nil).Once()
	_, err := env.payments.CreateIntent(t.Context(), CreateIntentInput{ActorID: "angler-y", CompetitionID: "paid-fee"})
	require.NoError(t, err)
	_, err = env.payments.ConfirmAndAdmit(t.Context(), ConfirmInput{ActorID: "angler-y", IntentRef: "pi_solo", CompetitionID: "paid-fee"})
	require.NoError(t, err)

	item, err := env.teams.CreateTeam(t.Context(), CreateTeamInput{CompetitionID: "teams-fee", CaptainID: "cap", Name: "Feeders"})
	require.NoError(t, err)
	_, err = env.teams.JoinByInviteCode(t.Context(), JoinTeamInput{Code: item.InviteCode, CompetitorID: "mate"})
	require.NoError(t, err)

	// Each member's confirmation quotes what the captain paid for the team.
	notifier.
		On("SendBookingConfirmation", mock.Anything, mock.MatchedBy(func(msg notification.Confirmation) bool {
			return msg.CompetitionID == "teams-fee" && msg.FeeMinor == 3000 && msg.TeamName == "Feeders"
		})).
		Return(nil).
		Twice()
	expectIntent(env, "pi_team", 3000)
	env.gateway.On("IntentStatus", mock.Anything, "pi_team").Return(payment.StatusSucceeded, nil).Once()
	_, err = env.payments.CreateIntent(t.Context(), CreateIntentInput{ActorID: "cap", CompetitionID: "teams-fee", TeamID: item.ID})
	require.NoError(t, err)
	result, err := env.payments.ConfirmAndAdmit(t.Context(), ConfirmInput{ActorID: "cap", IntentRef: "pi_team", CompetitionID: "teams-fee"})
	require.NoError(t, err)
	assert.Len(t, result.Participants, 2)
}

func TestPaymentService_GatewayNotification(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, individualCompetition("paid-7", 10, 1000))
	expectIntent(env, "pi_hook", 1000)
	env.gateway.On("IntentStatus", mock.Anything, "pi_hook").Return(payment.StatusSucceeded, nil).Once()

	_, err := env.payments.CreateIntent(t.Context(), CreateIntentInput{ActorID: "angler-y", CompetitionID: "paid-7"})
	require.NoError(t, err)

	first, err := env.payments.HandleGatewayNotification(t.Context(), "pi_hook", payment.StatusSucceeded)
	require.NoError(t, err)
	require.Len(t, first.Participants, 1)
	assert.Equal(t, "angler-y", first.Participants[0].CompetitorID)

	again, err := env.payments.HandleGatewayNotification(t.Context(), "pi_hook", payment.StatusSucceeded)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, 1, assertConserved(t, env, "paid-7"))

	_, err = env.payments.HandleGatewayNotification(t.Context(), "pi_unknown", payment.StatusSucceeded)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPaymentService_GatewayOutageIsDependencyError(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, individualCompetition("paid-8", 10, 1000))
	env.gateway.
		On("CreatePaymentIntent", mock.Anything, mock.Anything).
		Return(payment.Intent{}, errors.New("connection refused")).
		Once()

	_, err := env.payments.CreateIntent(t.Context(), CreateIntentInput{ActorID: "angler-x", CompetitionID: "paid-8"})
	assert.True(t, IsClass(err, ErrDependencyUnavailable))
}
