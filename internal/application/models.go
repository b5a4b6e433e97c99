package application

import "time"

// RSVP is a stored webinar registration.
type RSVP struct {
	ID          int64
	Name        string
	Email       string
	Phone       *string
	Branch      string
	Questions   *string
	OptIn       bool
	SpeakerName string
	SessionDate string
	CreatedAt   time.Time
}

// SubmitRSVPParams carries the raw form values of one submission.
type SubmitRSVPParams struct {
	Name         string
	Email        string
	Phone        string
	Branch       string
	CustomBranch string
	Questions    string
	OptIn        bool
	SpeakerName  string
	SessionDate  string
}
