package domain

import "errors"

var (
	// ErrNotFound is returned when a record or queue entry does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyHandled is returned when a moderation decision lost the race for a submission.
	ErrAlreadyHandled = errors.New("submission already handled")
	// ErrNotPublishable is returned for entries that cannot be published, such as buy inquiries.
	ErrNotPublishable = errors.New("submission kind cannot be published")
	// ErrSelfInvite is returned when a user follows their own referral link.
	ErrSelfInvite = errors.New("self invite")
	// ErrAlreadyExists is returned on identifier collisions.
	ErrAlreadyExists = errors.New("already exists")
)
