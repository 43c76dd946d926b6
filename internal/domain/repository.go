package domain

import "errors"

var (
	// ErrRecordNotFound is returned when no record exists for a notification ID.
	ErrRecordNotFound = errors.New("notification record not found")

	// ErrInvalidNotificationID is returned when the notification ID is invalid.
	ErrInvalidNotificationID = errors.New("invalid notification ID")

	// ErrInvalidRequest is returned by RequestBuilder.Build for an incomplete request.
	ErrInvalidRequest = errors.New("invalid notification request")
)
