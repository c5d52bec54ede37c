package service

import (
	"math"
	"os"
	"strconv"

	"github.com/bonniEdo/badminton-go/internal/badminton/models"
)

// RatingPolicy tunes the post-match skill update. Guests dilute scoring
// confidence: a match with MaxGuests or more guest participants is never
// rated.
type RatingPolicy struct {
	K         float64
	Divisor   float64
	Floor     float64
	MaxGuests int
}

func DefaultRatingPolicy() RatingPolicy {
	return RatingPolicy{K: 0.5, Divisor: 5, Floor: 1.0, MaxGuests: 2}
}

// RatingPolicyFromEnv overlays RATING_K, RATING_DIVISOR, RATING_FLOOR and
// RATING_MAX_GUESTS onto the defaults.
func RatingPolicyFromEnv() RatingPolicy {
	p := DefaultRatingPolicy()
	if v, err := strconv.ParseFloat(os.Getenv("RATING_K"), 64); err == nil && v > 0 {
		p.K = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("RATING_DIVISOR"), 64); err == nil && v > 0 {
		p.Divisor = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("RATING_FLOOR"), 64); err == nil && v > 0 {
		p.Floor = v
	}
	if v, err := strconv.Atoi(os.Getenv("RATING_MAX_GUESTS")); err == nil && v > 0 {
		p.MaxGuests = v
	}
	return p
}

// ratingChange is one real participant's post-match rating.
type ratingChange struct {
	UserID   int64
	NewLevel float64
}

// computeRatingChanges applies the logistic expectation update for one
// doubles match. Team rating is the mean of its two members' levels,
// expectedA = 1/(1+10^((ratingB-ratingA)/Divisor)), side A gains
// K*(score-expectedA) and side B the exact negation. Guests never change;
// real participants are floored and rounded to two decimals.
func computeRatingChanges(m *models.Match, parts []*models.MatchParticipant, winner string, p RatingPolicy) []ratingChange {
	byEntry := make(map[int64]*models.MatchParticipant, len(parts))
	for _, part := range parts {
		byEntry[part.EntryID] = part
	}

	ratingA := (byEntry[m.PlayerA1].Level() + byEntry[m.PlayerA2].Level()) / 2
	ratingB := (byEntry[m.PlayerB1].Level() + byEntry[m.PlayerB2].Level()) / 2

	expectedA := 1 / (1 + math.Pow(10, (ratingB-ratingA)/p.Divisor))
	scoreA := 0.0
	if winner == models.SideA {
		scoreA = 1.0
	}

	deltaA := p.K * (scoreA - expectedA)
	deltaB := -deltaA

	var changes []ratingChange
	for _, entryID := range m.EntryIDs() {
		part := byEntry[entryID]
		if part.IsVirtual {
			continue
		}
		delta := deltaB
		if m.SideFor(entryID) == models.SideA {
			delta = deltaA
		}
		changes = append(changes, ratingChange{
			UserID:   part.UserID,
			NewLevel: math.Max(p.Floor, round2(part.Level()+delta)),
		})
	}
	return changes
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func countGuests(parts []*models.MatchParticipant) int {
	n := 0
	for _, p := range parts {
		if p.IsVirtual {
			n++
		}
	}
	return n
}
