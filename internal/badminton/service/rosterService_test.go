package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/bonniEdo/badminton-go/internal/badminton/apperr"
	"github.com/bonniEdo/badminton-go/internal/badminton/models"
)

// fakeGameRepo satisfies gameLockRepo for a single game.
type fakeGameRepo struct {
	game *models.Game
}

func (f *fakeGameRepo) GetByIDForUpdate(_ context.Context, gameID int64) (*models.Game, error) {
	if f.game == nil || f.game.ID != gameID {
		return nil, nil
	}
	return f.game, nil
}

func (f *fakeGameRepo) SetCurrentPlayers(_ context.Context, _ int64, count int) error {
	f.game.CurrentPlayers = count
	return nil
}

// fakeRosterRepo keeps game_players rows in memory, ordered by an
// insertion counter standing in for joined_at.
type fakeRosterRepo struct {
	entries []*models.RosterEntry
	seq     int64
}

func (f *fakeRosterRepo) find(userID int64, isVirtual bool) *models.RosterEntry {
	for _, e := range f.entries {
		if e.UserID == userID && e.IsVirtual == isVirtual {
			return e
		}
	}
	return nil
}

func (f *fakeRosterRepo) GetEntry(_ context.Context, _ int64, userID int64, isVirtual bool) (*models.RosterEntry, error) {
	e := f.find(userID, isVirtual)
	if e == nil {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f *fakeRosterRepo) ConfirmedHeadcount(_ context.Context, _ int64) (int, error) {
	n := 0
	for _, e := range f.entries {
		if e.Status == models.StatusConfirmed {
			n++
		}
	}
	return n, nil
}

func (f *fakeRosterRepo) CountWaitlisted(_ context.Context, _ int64) (int, error) {
	n := 0
	for _, e := range f.entries {
		if e.Status == models.StatusWaitlist && !e.IsVirtual {
			n++
		}
	}
	return n, nil
}

func (f *fakeRosterRepo) UpsertEntry(_ context.Context, in *models.RosterEntry) (*models.RosterEntry, error) {
	f.seq++
	e := f.find(in.UserID, in.IsVirtual)
	if e == nil {
		e = &models.RosterEntry{ID: f.seq, GameID: in.GameID, UserID: in.UserID, IsVirtual: in.IsVirtual}
		f.entries = append(f.entries, e)
	}
	e.Status = in.Status
	e.Phone = in.Phone
	e.FriendCount = in.FriendCount
	e.FriendLevel = in.FriendLevel
	e.JoinedAt = time.Unix(f.seq, 0)
	e.CanceledAt = sql.NullTime{}
	e.PlayStatus = models.PlayWaitingCheckin
	cp := *e
	return &cp, nil
}

func (f *fakeRosterRepo) CancelPrimary(_ context.Context, _ int64, userID int64) error {
	if e := f.find(userID, false); e != nil {
		e.Status = models.StatusCanceled
		e.FriendCount = 0
		e.CanceledAt = sql.NullTime{Time: time.Now(), Valid: true}
	}
	return nil
}

func (f *fakeRosterRepo) CancelGuest(_ context.Context, _ int64, userID int64) error {
	if e := f.find(userID, true); e != nil {
		e.Status = models.StatusCanceled
		e.CanceledAt = sql.NullTime{Time: time.Now(), Valid: true}
	}
	return nil
}

func (f *fakeRosterRepo) SetFriendCount(_ context.Context, _ int64, userID int64, count int) error {
	if e := f.find(userID, false); e != nil {
		e.FriendCount = count
	}
	return nil
}

func (f *fakeRosterRepo) NextWaitlisted(_ context.Context, _ int64) (*models.RosterEntry, error) {
	var next *models.RosterEntry
	for _, e := range f.entries {
		if e.IsVirtual || e.Status != models.StatusWaitlist {
			continue
		}
		if next == nil || e.JoinedAt.Before(next.JoinedAt) {
			next = e
		}
	}
	if next == nil {
		return nil, nil
	}
	cp := *next
	return &cp, nil
}

func (f *fakeRosterRepo) setPartyStatus(userID int64, status string) {
	for _, e := range f.entries {
		if e.UserID == userID && e.Status != models.StatusCanceled {
			e.Status = status
		}
	}
}

func (f *fakeRosterRepo) PromoteParty(_ context.Context, _ int64, userID int64) error {
	f.setPartyStatus(userID, models.StatusConfirmed)
	return nil
}

func (f *fakeRosterRepo) DemoteParty(_ context.Context, _ int64, userID int64) error {
	f.setPartyStatus(userID, models.StatusWaitlist)
	return nil
}

func (f *fakeRosterRepo) statusOf(t *testing.T, userID int64) string {
	t.Helper()
	e := f.find(userID, false)
	if e == nil {
		t.Fatalf("no primary row for user %d", userID)
	}
	return e.Status
}

func newTestGame(maxPlayers int) (*fakeGameRepo, *fakeRosterRepo) {
	games := &fakeGameRepo{game: &models.Game{ID: 1, MaxPlayers: maxPlayers, IsActive: true}}
	return games, &fakeRosterRepo{}
}

func mustJoin(t *testing.T, games *fakeGameRepo, roster *fakeRosterRepo, userID int64, guest bool) *JoinResult {
	t.Helper()
	res, err := joinTx(context.Background(), games, roster, JoinParams{
		GameID: 1, UserID: userID, Phone: "0912345678", BringsGuest: guest, GuestLevel: 2.0,
	})
	if err != nil {
		t.Fatalf("join user %d: %v", userID, err)
	}
	return res
}

func TestJoinFillThenWaitlistThenPromote(t *testing.T) {
	games, roster := newTestGame(4)

	for _, id := range []int64{1, 2, 3, 4} {
		res := mustJoin(t, games, roster, id, false)
		if res.Status != models.StatusConfirmed {
			t.Fatalf("user %d expected CONFIRMED, got %s", id, res.Status)
		}
	}

	res := mustJoin(t, games, roster, 5, false)
	if res.Status != models.StatusWaitlist {
		t.Fatalf("fifth join expected WAITLIST, got %s", res.Status)
	}
	if res.WaitlistPosition != 1 {
		t.Errorf("expected waitlist position 1, got %d", res.WaitlistPosition)
	}

	cres, err := cancelTx(context.Background(), games, roster, 1, 1, models.CancelAll)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cres.PromotedCount != 1 {
		t.Errorf("expected 1 promotion, got %d", cres.PromotedCount)
	}
	if got := roster.statusOf(t, 5); got != models.StatusConfirmed {
		t.Errorf("user 5 should be promoted, got %s", got)
	}
	if cres.Headcount != 4 {
		t.Errorf("expected headcount 4 after promotion, got %d", cres.Headcount)
	}
	if games.game.CurrentPlayers != 4 {
		t.Errorf("denormalized counter not synced, got %d", games.game.CurrentPlayers)
	}
}

func TestWaitlistHeadOfQueueBlocks(t *testing.T) {
	games, roster := newTestGame(4)

	mustJoin(t, games, roster, 1, false)
	mustJoin(t, games, roster, 2, false)
	mustJoin(t, games, roster, 3, false)
	mustJoin(t, games, roster, 4, false)

	// U5 waits with a +1 (party of 2), U6 waits alone behind them.
	if res := mustJoin(t, games, roster, 5, true); res.Status != models.StatusWaitlist {
		t.Fatalf("expected U5 waitlisted, got %s", res.Status)
	}
	if res := mustJoin(t, games, roster, 6, false); res.Status != models.StatusWaitlist {
		t.Fatalf("expected U6 waitlisted, got %s", res.Status)
	}

	// One slot frees. U5's party of 2 does not fit, and U6 must not jump
	// the queue.
	cres, err := cancelTx(context.Background(), games, roster, 1, 1, models.CancelAll)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cres.PromotedCount != 0 {
		t.Errorf("expected no promotion, got %d", cres.PromotedCount)
	}
	if got := roster.statusOf(t, 5); got != models.StatusWaitlist {
		t.Errorf("U5 should still wait, got %s", got)
	}
	if got := roster.statusOf(t, 6); got != models.StatusWaitlist {
		t.Errorf("U6 must not skip ahead, got %s", got)
	}

	// A second slot frees; now the whole party fits and both promotions
	// cascade in order.
	cres, err = cancelTx(context.Background(), games, roster, 1, 2, models.CancelAll)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cres.PromotedCount != 1 {
		t.Errorf("expected the party promoted once, got %d", cres.PromotedCount)
	}
	if got := roster.statusOf(t, 5); got != models.StatusConfirmed {
		t.Errorf("U5 should be promoted, got %s", got)
	}
	if got := roster.statusOf(t, 6); got != models.StatusWaitlist {
		t.Errorf("U6 still does not fit, got %s", got)
	}
	if cres.Headcount != 4 {
		t.Errorf("expected headcount 4, got %d", cres.Headcount)
	}
}

func TestJoinWithGuestTakesTwoSlots(t *testing.T) {
	games, roster := newTestGame(4)

	res := mustJoin(t, games, roster, 1, true)
	if res.Status != models.StatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", res.Status)
	}
	if res.Headcount != 2 {
		t.Errorf("party of two should count twice, got %d", res.Headcount)
	}

	mustJoin(t, games, roster, 2, false)
	mustJoin(t, games, roster, 3, false)

	// Capacity is 4/4; a party of two must go to the waitlist as a whole.
	res = mustJoin(t, games, roster, 4, true)
	if res.Status != models.StatusWaitlist {
		t.Fatalf("expected WAITLIST, got %s", res.Status)
	}
	guest, _ := roster.GetEntry(context.Background(), 1, 4, true)
	if guest == nil || guest.Status != models.StatusWaitlist {
		t.Errorf("guest row must share the primary's status")
	}
}

func TestJoinDuplicateConflict(t *testing.T) {
	games, roster := newTestGame(4)
	mustJoin(t, games, roster, 1, false)

	_, err := joinTx(context.Background(), games, roster, JoinParams{GameID: 1, UserID: 1, Phone: "0912345678"})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("expected conflict on double join, got %v", err)
	}
}

func TestJoinRequiresPhone(t *testing.T) {
	games, roster := newTestGame(4)
	_, err := joinTx(context.Background(), games, roster, JoinParams{GameID: 1, UserID: 1})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestJoinCanceledGame(t *testing.T) {
	games, roster := newTestGame(4)
	games.game.IsActive = false

	_, err := joinTx(context.Background(), games, roster, JoinParams{GameID: 1, UserID: 1, Phone: "0912345678"})
	if apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("expected invalid state, got %v", err)
	}
}

func TestRejoinAfterCancel(t *testing.T) {
	games, roster := newTestGame(4)
	mustJoin(t, games, roster, 1, true)

	if _, err := cancelTx(context.Background(), games, roster, 1, 1, models.CancelAll); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// Rejoin without the guest: the old guest row must stay cancelled.
	res := mustJoin(t, games, roster, 1, false)
	if res.Status != models.StatusConfirmed {
		t.Fatalf("expected CONFIRMED on rejoin, got %s", res.Status)
	}
	if res.Headcount != 1 {
		t.Errorf("expected headcount 1, got %d", res.Headcount)
	}
	guest, _ := roster.GetEntry(context.Background(), 1, 1, true)
	if guest != nil && guest.Status != models.StatusCanceled {
		t.Errorf("stale guest row resurrected with status %s", guest.Status)
	}
}

func TestCancelIdempotent(t *testing.T) {
	games, roster := newTestGame(4)
	mustJoin(t, games, roster, 1, false)

	if _, err := cancelTx(context.Background(), games, roster, 1, 1, models.CancelAll); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	_, err := cancelTx(context.Background(), games, roster, 1, 1, models.CancelAll)
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("second cancel should be not found, got %v", err)
	}
}

func TestCancelGuestOnlyKeepsOwnSpot(t *testing.T) {
	games, roster := newTestGame(4)
	mustJoin(t, games, roster, 1, true)

	res, err := cancelTx(context.Background(), games, roster, 1, 1, models.CancelGuestOnly)
	if err != nil {
		t.Fatalf("cancel guest: %v", err)
	}
	if res.Headcount != 1 {
		t.Errorf("expected headcount 1 after guest drop, got %d", res.Headcount)
	}
	if got := roster.statusOf(t, 1); got != models.StatusConfirmed {
		t.Errorf("primary must keep its spot, got %s", got)
	}
}

func TestCancelGuestOnlyWithoutGuest(t *testing.T) {
	games, roster := newTestGame(4)
	mustJoin(t, games, roster, 1, false)

	_, err := cancelTx(context.Background(), games, roster, 1, 1, models.CancelGuestOnly)
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestCancelGuestOnlyFreesWaitlistSlot(t *testing.T) {
	games, roster := newTestGame(4)
	mustJoin(t, games, roster, 1, true)
	mustJoin(t, games, roster, 2, false)
	mustJoin(t, games, roster, 3, false)
	if res := mustJoin(t, games, roster, 4, false); res.Status != models.StatusWaitlist {
		t.Fatalf("expected U4 waitlisted, got %s", res.Status)
	}

	res, err := cancelTx(context.Background(), games, roster, 1, 1, models.CancelGuestOnly)
	if err != nil {
		t.Fatalf("cancel guest: %v", err)
	}
	if res.PromotedCount != 1 {
		t.Errorf("expected U4 promoted, got %d promotions", res.PromotedCount)
	}
	if got := roster.statusOf(t, 4); got != models.StatusConfirmed {
		t.Errorf("U4 should be promoted, got %s", got)
	}
}

func TestAddGuestDemotesWhenFull(t *testing.T) {
	games, roster := newTestGame(4)
	for _, id := range []int64{1, 2, 3, 4} {
		mustJoin(t, games, roster, id, false)
	}

	res, err := addGuestTx(context.Background(), games, roster, 1, 4, 2.5)
	if err != nil {
		t.Fatalf("add guest: %v", err)
	}
	if !res.Demoted {
		t.Fatal("expected the party demoted when the guest does not fit")
	}
	if res.Status != models.StatusWaitlist {
		t.Errorf("expected WAITLIST, got %s", res.Status)
	}
	if got := roster.statusOf(t, 4); got != models.StatusWaitlist {
		t.Errorf("primary should be demoted, got %s", got)
	}
	for _, id := range []int64{1, 2, 3} {
		if got := roster.statusOf(t, id); got != models.StatusConfirmed {
			t.Errorf("user %d must be untouched by the demotion, got %s", id, got)
		}
	}
	if res.Headcount != 3 {
		t.Errorf("expected headcount 3 after demotion, got %d", res.Headcount)
	}
}

func TestAddGuestFitsWithoutDemotion(t *testing.T) {
	games, roster := newTestGame(4)
	mustJoin(t, games, roster, 1, false)
	mustJoin(t, games, roster, 2, false)

	res, err := addGuestTx(context.Background(), games, roster, 1, 1, 3.0)
	if err != nil {
		t.Fatalf("add guest: %v", err)
	}
	if res.Demoted {
		t.Error("unexpected demotion with free capacity")
	}
	if res.Headcount != 3 {
		t.Errorf("expected headcount 3, got %d", res.Headcount)
	}
}

func TestAddGuestLimit(t *testing.T) {
	games, roster := newTestGame(6)
	mustJoin(t, games, roster, 1, true)

	_, err := addGuestTx(context.Background(), games, roster, 1, 1, 2.0)
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("expected conflict on second guest, got %v", err)
	}
}

func TestAddGuestWithoutRegistration(t *testing.T) {
	games, roster := newTestGame(4)
	_, err := addGuestTx(context.Background(), games, roster, 1, 9, 2.0)
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestConfirmedNeverExceedsCapacity(t *testing.T) {
	games, roster := newTestGame(5)

	// A mix of solo joins, party joins, cancels and guest additions.
	mustJoin(t, games, roster, 1, true)
	mustJoin(t, games, roster, 2, false)
	mustJoin(t, games, roster, 3, true)
	mustJoin(t, games, roster, 4, false)
	addGuestTx(context.Background(), games, roster, 1, 2, 2.0)
	cancelTx(context.Background(), games, roster, 1, 3, models.CancelAll)
	mustJoin(t, games, roster, 5, true)
	cancelTx(context.Background(), games, roster, 1, 1, models.CancelGuestOnly)

	n, _ := roster.ConfirmedHeadcount(context.Background(), 1)
	if n > 5 {
		t.Errorf("confirmed headcount %d exceeds capacity 5", n)
	}
	if games.game.CurrentPlayers != n {
		t.Errorf("denormalized counter %d out of sync with headcount %d", games.game.CurrentPlayers, n)
	}
}

func TestClampLevel(t *testing.T) {
	if clampLevel(0.3) != 1.0 {
		t.Error("levels below the floor should clamp to 1.0")
	}
	if clampLevel(2.7) != 2.7 {
		t.Error("levels above the floor should pass through")
	}
}
