package models

import "time"

// BookingStatus is the closed set of booking states.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusAccepted  BookingStatus = "ACCEPTED"
	BookingStatusRejected  BookingStatus = "REJECTED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:  {BookingStatusAccepted, BookingStatusRejected},
	BookingStatusAccepted: {BookingStatusCompleted},
}

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusAccepted, BookingStatusRejected, BookingStatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is an edge out of s.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s BookingStatus) Terminal() bool {
	return len(bookingTransitions[s]) == 0
}

// Booking is a session between one student and one tutor.
type Booking struct {
	ID        string        `db:"id" json:"id"`
	StudentID string        `db:"student_id" json:"student_id"`
	TutorID   string        `db:"tutor_id" json:"tutor_id"`
	StartTime time.Time     `db:"start_time" json:"start_time"`
	EndTime   time.Time     `db:"end_time" json:"end_time"`
	Status    BookingStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// Overlaps reports whether b and other share any instant.
func (b Booking) Overlaps(other Booking) bool {
	return b.StartTime.Before(other.EndTime) && other.StartTime.Before(b.EndTime)
}

// StudentBooking is a booking as seen by its student.
type StudentBooking struct {
	Booking
	TutorName       string   `db:"tutor_name" json:"tutor_name"`
	TutorEmail      string   `db:"tutor_email" json:"tutor_email"`
	TutorHourlyRate *float64 `db:"tutor_hourly_rate" json:"tutor_hourly_rate"`
	Rated           bool     `db:"rated" json:"rated"`
}

// TutorBooking is a booking as seen by its tutor.
type TutorBooking struct {
	Booking
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
}

// BookingWithNames is the admin view of a booking.
type BookingWithNames struct {
	Booking
	StudentName string `db:"student_name" json:"student_name"`
	TutorName   string `db:"tutor_name" json:"tutor_name"`
}

// CreateBookingRequest is submitted by a student.
type CreateBookingRequest struct {
	TutorID   string    `json:"tutor_id" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

// UpdateBookingStatusRequest is submitted by the booking's tutor.
type UpdateBookingStatusRequest struct {
	Status BookingStatus `json:"status" validate:"required"`
}
