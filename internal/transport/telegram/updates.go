package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/listing-bot/internal/domain"
	"github.com/spec-kit/listing-bot/internal/service"
)

// ToInbound converts an update into a flow event. Updates the bot does not act on report false.
func ToInbound(u tgbotapi.Update) (domain.Inbound, bool) {
	if cq := u.CallbackQuery; cq != nil {
		if cq.From == nil {
			return domain.Inbound{}, false
		}
		in := domain.Inbound{
			Kind:       domain.InboundCallback,
			UserID:     cq.From.ID,
			ChatID:     cq.From.ID,
			CallbackID: cq.ID,
			Data:       cq.Data,
		}
		if cq.Message != nil {
			in.MessageID = cq.Message.MessageID
			if cq.Message.Chat != nil {
				in.ChatID = cq.Message.Chat.ID
			}
		}
		return in, true
	}

	msg := u.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return domain.Inbound{}, false
	}
	in := domain.Inbound{
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
	}
	switch {
	case msg.IsCommand():
		in.Kind = domain.InboundCommand
		in.Command = msg.Command()
		in.Args = msg.CommandArguments()
	case len(msg.Photo) > 0:
		// sizes are ordered smallest first
		in.Kind = domain.InboundPhoto
		in.FileID = msg.Photo[len(msg.Photo)-1].FileID
	case msg.Video != nil:
		in.Kind = domain.InboundVideo
		in.FileID = msg.Video.FileID
	case msg.VideoNote != nil:
		in.Kind = domain.InboundVideoNote
		in.FileID = msg.VideoNote.FileID
	case msg.Document != nil:
		in.Kind = domain.InboundDocument
		in.FileID = msg.Document.FileID
		in.FileName = msg.Document.FileName
	case msg.Text != "":
		in.Kind = domain.InboundText
		in.Text = msg.Text
	default:
		return domain.Inbound{}, false
	}
	return in, true
}

// Poller feeds long-polled updates into the dispatcher.
type Poller struct {
	client   *Client
	enqueuer service.Enqueuer
	timeout  int
	logger   *zap.Logger
}

// NewPoller creates a poller with the given long-poll timeout in seconds.
func NewPoller(client *Client, enqueuer service.Enqueuer, timeoutSeconds int, logger *zap.Logger) *Poller {
	return &Poller{client: client, enqueuer: enqueuer, timeout: timeoutSeconds, logger: logger}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.client.DeleteWebhook(ctx); err != nil {
		p.logger.Warn("delete webhook before polling", zap.Error(err))
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.timeout
	api := p.client.API()
	updates := api.GetUpdatesChan(cfg)
	defer api.StopReceivingUpdates()

	p.logger.Info("polling telegram updates", zap.String("bot", api.Self.UserName))
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return errors.New("telegram update channel closed")
			}
			Forward(ctx, p.enqueuer, u, p.logger)
		}
	}
}

// Forward converts and enqueues one update.
func Forward(ctx context.Context, enqueuer service.Enqueuer, u tgbotapi.Update, logger *zap.Logger) {
	in, ok := ToInbound(u)
	if !ok {
		logger.Debug("ignoring update", zap.Int("update_id", u.UpdateID))
		return
	}
	if err := enqueuer.Enqueue(ctx, in); err != nil {
		logger.Warn("enqueue update", zap.Int("update_id", u.UpdateID), zap.Int64("user_id", in.UserID), zap.Error(err))
	}
}
