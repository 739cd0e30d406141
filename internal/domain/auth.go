package domain

// SubjectType identifies who an admin token was issued to.
type SubjectType string

const (
	SubjectTypeModerator SubjectType = "MODERATOR"
)
