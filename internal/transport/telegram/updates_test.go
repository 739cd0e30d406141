package telegram

import (
	"context"
	"encoding/json"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/listing-bot/internal/domain"
)

func decode(t *testing.T, raw string) tgbotapi.Update {
	t.Helper()
	var u tgbotapi.Update
	require.NoError(t, json.Unmarshal([]byte(raw), &u))
	return u
}

func TestToInbound(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want domain.Inbound
		ok   bool
	}{
		{
			name: "start with referral",
			raw: `{"update_id":1,"message":{"message_id":10,"from":{"id":5,"is_bot":false,"first_name":"A"},"chat":{"id":5,"type":"private"},"date":0,
				"text":"/start ref_42","entities":[{"type":"bot_command","offset":0,"length":6}]}}`,
			want: domain.Inbound{Kind: domain.InboundCommand, UserID: 5, ChatID: 5, MessageID: 10, Command: "start", Args: "ref_42"},
			ok:   true,
		},
		{
			name: "text",
			raw:  `{"update_id":2,"message":{"message_id":11,"from":{"id":5,"is_bot":false,"first_name":"A"},"chat":{"id":5,"type":"private"},"date":0,"text":"150000"}}`,
			want: domain.Inbound{Kind: domain.InboundText, UserID: 5, ChatID: 5, MessageID: 11, Text: "150000"},
			ok:   true,
		},
		{
			name: "photo takes largest size",
			raw: `{"update_id":3,"message":{"message_id":12,"from":{"id":5,"is_bot":false,"first_name":"A"},"chat":{"id":5,"type":"private"},"date":0,
				"photo":[{"file_id":"small","file_unique_id":"s","width":90,"height":90},{"file_id":"large","file_unique_id":"l","width":1280,"height":1280}]}}`,
			want: domain.Inbound{Kind: domain.InboundPhoto, UserID: 5, ChatID: 5, MessageID: 12, FileID: "large"},
			ok:   true,
		},
		{
			name: "document",
			raw: `{"update_id":4,"message":{"message_id":13,"from":{"id":5,"is_bot":false,"first_name":"A"},"chat":{"id":5,"type":"private"},"date":0,
				"document":{"file_id":"doc","file_unique_id":"d","file_name":"table.xlsx"}}}`,
			want: domain.Inbound{Kind: domain.InboundDocument, UserID: 5, ChatID: 5, MessageID: 13, FileID: "doc", FileName: "table.xlsx"},
			ok:   true,
		},
		{
			name: "video note",
			raw: `{"update_id":5,"message":{"message_id":14,"from":{"id":5,"is_bot":false,"first_name":"A"},"chat":{"id":5,"type":"private"},"date":0,
				"video_note":{"file_id":"note","file_unique_id":"n","length":240,"duration":3}}}`,
			want: domain.Inbound{Kind: domain.InboundVideoNote, UserID: 5, ChatID: 5, MessageID: 14, FileID: "note"},
			ok:   true,
		},
		{
			name: "callback from moderation chat",
			raw: `{"update_id":6,"callback_query":{"id":"cb1","from":{"id":9,"is_bot":false,"first_name":"M"},"data":"mod:publish:abc","chat_instance":"x",
				"message":{"message_id":20,"chat":{"id":-100,"type":"supergroup"},"date":0}}}`,
			want: domain.Inbound{Kind: domain.InboundCallback, UserID: 9, ChatID: -100, MessageID: 20, CallbackID: "cb1", Data: "mod:publish:abc"},
			ok:   true,
		},
		{
			name: "sticker is ignored",
			raw:  `{"update_id":7,"message":{"message_id":15,"from":{"id":5,"is_bot":false,"first_name":"A"},"chat":{"id":5,"type":"private"},"date":0}}`,
			ok:   false,
		},
		{
			name: "channel post is ignored",
			raw:  `{"update_id":8,"channel_post":{"message_id":1,"chat":{"id":-100,"type":"channel"},"date":0,"text":"hi"}}`,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToInbound(decode(t, tt.raw))
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

type captureEnqueuer struct {
	got []domain.Inbound
}

func (c *captureEnqueuer) Enqueue(_ context.Context, in domain.Inbound) error {
	c.got = append(c.got, in)
	return nil
}

func TestForwardSkipsUnsupported(t *testing.T) {
	enq := &captureEnqueuer{}
	Forward(context.Background(), enq, tgbotapi.Update{UpdateID: 1}, zap.NewNop())
	assert.Empty(t, enq.got)

	Forward(context.Background(), enq, decode(t, `{"update_id":2,"message":{"message_id":1,"from":{"id":3,"is_bot":false,"first_name":"A"},"chat":{"id":3,"type":"private"},"date":0,"text":"hi"}}`), zap.NewNop())
	require.Len(t, enq.got, 1)
	assert.Equal(t, int64(3), enq.got[0].UserID)
}
