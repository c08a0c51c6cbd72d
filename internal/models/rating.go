package models

import "time"

// UnknownReviewerName is displayed when a reviewer has no profile name.
const UnknownReviewerName = UnknownName

// Rating scores a completed booking. There is at most one per booking.
type Rating struct {
	ID        string    `db:"id" json:"id"`
	BookingID string    `db:"booking_id" json:"booking_id"`
	Score     int       `db:"rating" json:"rating"`
	Comment   *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RatingWithReviewer adds the reviewing student's display name.
type RatingWithReviewer struct {
	Rating
	ReviewerName string `db:"reviewer_name" json:"reviewer_name"`
}

// RatingTotals is the raw aggregate read from the store.
type RatingTotals struct {
	Sum   int64 `db:"total"`
	Count int64 `db:"count"`
}

// Average is the arithmetic mean, or nil when there are no ratings.
func (t RatingTotals) Average() *float64 {
	if t.Count <= 0 {
		return nil
	}
	avg := float64(t.Sum) / float64(t.Count)
	return &avg
}

// TotalsOf aggregates a list of scores.
func TotalsOf(scores []int) RatingTotals {
	totals := RatingTotals{Count: int64(len(scores))}
	for _, score := range scores {
		totals.Sum += int64(score)
	}
	return totals
}

// RatingSummary is the average score of a tutor. Average is nil when the
// tutor has no ratings.
type RatingSummary struct {
	TutorID string   `json:"tutor_id"`
	Average *float64 `json:"average"`
	Count   int64    `json:"count"`
}

// SubmitRatingRequest is sent by the booking's student.
type SubmitRatingRequest struct {
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}
