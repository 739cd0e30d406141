package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionBeginClearsCollectedData(t *testing.T) {
	sess := &Session{
		UserID:         7,
		State:          StateSellPreview,
		AwaitingReason: true,
		Data: SessionData{
			Title:           "Пекарня",
			Photos:          []string{"p1"},
			PendingAction:   PendingSell,
			PendingReferrer: 42,
		},
	}

	sess.Begin(StateBuyBudget)

	assert.Equal(t, StateBuyBudget, sess.State)
	assert.Equal(t, SessionData{}, sess.Data)
	assert.Equal(t, int64(7), sess.UserID)
	assert.True(t, sess.AwaitingReason)
}
