package service

import (
	"database/sql"
	"math"
	"testing"

	"github.com/bonniEdo/badminton-go/internal/badminton/models"
)

func realPlayer(entryID, userID int64, level float64) *models.MatchParticipant {
	return &models.MatchParticipant{
		EntryID:   entryID,
		UserID:    userID,
		UserLevel: sql.NullFloat64{Float64: level, Valid: true},
	}
}

func guestPlayer(entryID, userID int64, level float64) *models.MatchParticipant {
	return &models.MatchParticipant{
		EntryID:     entryID,
		UserID:      userID,
		IsVirtual:   true,
		FriendLevel: sql.NullFloat64{Float64: level, Valid: true},
	}
}

func testMatch() *models.Match {
	return &models.Match{ID: 1, GameID: 1, PlayerA1: 11, PlayerA2: 12, PlayerB1: 13, PlayerB2: 14}
}

func TestComputeRatingChangesUnderdogWin(t *testing.T) {
	m := testMatch()
	parts := []*models.MatchParticipant{
		realPlayer(11, 101, 1.0),
		realPlayer(12, 102, 1.0),
		realPlayer(13, 103, 3.0),
		realPlayer(14, 104, 3.0),
	}

	changes := computeRatingChanges(m, parts, models.SideA, DefaultRatingPolicy())
	if len(changes) != 4 {
		t.Fatalf("expected 4 changes, got %d", len(changes))
	}

	// expectedA = 1/(1+10^((3-1)/5)) ~= 0.2848, deltaA ~= 0.3576
	byUser := map[int64]float64{}
	for _, c := range changes {
		byUser[c.UserID] = c.NewLevel
	}
	if byUser[101] != 1.36 || byUser[102] != 1.36 {
		t.Errorf("expected side A at 1.36, got %v and %v", byUser[101], byUser[102])
	}
	if byUser[103] != 2.64 || byUser[104] != 2.64 {
		t.Errorf("expected side B at 2.64, got %v and %v", byUser[103], byUser[104])
	}
}

func TestComputeRatingChangesZeroSum(t *testing.T) {
	m := testMatch()
	parts := []*models.MatchParticipant{
		realPlayer(11, 101, 2.3),
		realPlayer(12, 102, 4.1),
		realPlayer(13, 103, 1.7),
		realPlayer(14, 104, 5.2),
	}

	changes := computeRatingChanges(m, parts, models.SideB, DefaultRatingPolicy())

	sum := 0.0
	old := map[int64]float64{101: 2.3, 102: 4.1, 103: 1.7, 104: 5.2}
	for _, c := range changes {
		sum += c.NewLevel - old[c.UserID]
	}
	// Rounding happens per player, so the sum may be off by at most one
	// cent per participant.
	if math.Abs(sum) > 0.02 {
		t.Errorf("expected zero-sum update, total delta %v", sum)
	}
}

func TestComputeRatingChangesFloor(t *testing.T) {
	m := testMatch()
	parts := []*models.MatchParticipant{
		realPlayer(11, 101, 5.0),
		realPlayer(12, 102, 5.0),
		realPlayer(13, 103, 1.0),
		realPlayer(14, 104, 1.1),
	}

	changes := computeRatingChanges(m, parts, models.SideA, DefaultRatingPolicy())
	for _, c := range changes {
		if c.NewLevel < 1.0 {
			t.Errorf("user %d rating %v went below the floor", c.UserID, c.NewLevel)
		}
	}
}

func TestComputeRatingChangesSkipsGuests(t *testing.T) {
	m := testMatch()
	parts := []*models.MatchParticipant{
		realPlayer(11, 101, 2.0),
		guestPlayer(12, 101, 3.0),
		realPlayer(13, 103, 2.0),
		realPlayer(14, 104, 2.0),
	}

	changes := computeRatingChanges(m, parts, models.SideA, DefaultRatingPolicy())
	if len(changes) != 3 {
		t.Fatalf("expected 3 changes (guest excluded), got %d", len(changes))
	}
	for _, c := range changes {
		if c.UserID == 101 && c.NewLevel <= 2.0 {
			t.Errorf("winner 101 should have gained rating, got %v", c.NewLevel)
		}
	}
}

func TestCountGuests(t *testing.T) {
	parts := []*models.MatchParticipant{
		realPlayer(11, 101, 2.0),
		guestPlayer(12, 101, 3.0),
		guestPlayer(13, 103, 2.0),
		realPlayer(14, 104, 2.0),
	}
	if got := countGuests(parts); got != 2 {
		t.Errorf("expected 2 guests, got %d", got)
	}
}

func TestParticipantLevelDefaults(t *testing.T) {
	p := &models.MatchParticipant{IsVirtual: true}
	if p.Level() != 1.0 {
		t.Errorf("guest without declared level should default to 1.0, got %v", p.Level())
	}
	p = &models.MatchParticipant{}
	if p.Level() != 1.0 {
		t.Errorf("user without rating should default to 1.0, got %v", p.Level())
	}
}
