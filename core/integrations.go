package core

import "context"

type (
	// SMSService sends text messages and runs phone number verifications.
	SMSService interface {
		SendSMS(ctx context.Context, to, body string) error
		// SendVerification starts a verification by sending a one-time code to the phone number.
		SendVerification(ctx context.Context, to string) error
		// CheckVerification reports whether code is the valid one-time code for the phone number.
		CheckVerification(ctx context.Context, to, code string) (bool, error)
	}

	// EventNotifier forwards domain events to the automation webhook (Zapier).
	// Notify must not block the caller and never fails: delivery errors are logged.
	EventNotifier interface {
		Notify(event string, payload map[string]interface{})
	}
)

// Automation events
const (
	EventCoachReviewDispute  = "coach_review_dispute"
	EventPlayerReviewDispute = "player_review_dispute"
	EventFacilitySubmission  = "facility_submission"
	EventSchoolSubmission    = "school_submission"
	EventContactMessage      = "contact_message"
	EventUserSignedUp        = "user_signed_up"
)
