package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduhire-api/internal/models"
	appErrors "github.com/noah-isme/eduhire-api/pkg/errors"
)

type fakeRatingSrv struct {
	rated   map[string]bool
	summary models.RatingSummary
}

func (f *fakeRatingSrv) Submit(_ context.Context, _ models.SessionContext, bookingID string, req models.SubmitRatingRequest) (*models.Rating, error) {
	if f.rated[bookingID] {
		return nil, appErrors.Clone(appErrors.ErrConflict, "booking already rated")
	}
	if f.rated == nil {
		f.rated = map[string]bool{}
	}
	f.rated[bookingID] = true
	return &models.Rating{ID: "r-1", BookingID: bookingID, Score: req.Rating}, nil
}

func (f *fakeRatingSrv) Summary(context.Context, string) (*models.RatingSummary, error) {
	return &f.summary, nil
}

func (f *fakeRatingSrv) ListForTutor(context.Context, string) ([]models.RatingWithReviewer, error) {
	return []models.RatingWithReviewer{{Rating: models.Rating{ID: "r-1", Score: 5}, ReviewerName: "Siti"}}, nil
}

func TestRatingHandlerSubmitTwiceConflicts(t *testing.T) {
	handler := NewRatingHandler(&fakeRatingSrv{})

	c, rec := newTestContext(http.MethodPost, "/bookings/b-1/rating", map[string]int{"rating": 5}, studentSession)
	withParam(c, "id", "b-1")
	handler.Submit(c)
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/bookings/b-1/rating", map[string]int{"rating": 4}, studentSession)
	withParam(c, "id", "b-1")
	handler.Submit(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decodeEnvelope(rec).Error.Code)
}

func TestRatingHandlerSummaryWithoutRatings(t *testing.T) {
	handler := NewRatingHandler(&fakeRatingSrv{summary: models.RatingSummary{TutorID: "tutor-1"}})

	c, rec := newTestContext(http.MethodGet, "/tutors/tutor-1/rating-summary", nil, models.SessionContext{})
	withParam(c, "id", "tutor-1")
	handler.Summary(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tutor_id":"tutor-1","average":null,"count":0}`, string(decodeEnvelope(rec).Data))
}

func TestRatingHandlerListForTutor(t *testing.T) {
	handler := NewRatingHandler(&fakeRatingSrv{})

	c, rec := newTestContext(http.MethodGet, "/tutors/tutor-1/ratings", nil, models.SessionContext{})
	withParam(c, "id", "tutor-1")
	handler.ListForTutor(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var ratings []models.RatingWithReviewer
	require.NoError(t, json.Unmarshal(decodeEnvelope(rec).Data, &ratings))
	require.Len(t, ratings, 1)
	assert.Equal(t, "Siti", ratings[0].ReviewerName)
}
