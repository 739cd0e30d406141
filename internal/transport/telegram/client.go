// Package telegram adapts the Bot API to the service layer: outbound calls
// go through Client, inbound updates are converted by ToInbound.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/spec-kit/listing-bot/internal/config"
	"github.com/spec-kit/listing-bot/internal/domain"
	"github.com/spec-kit/listing-bot/internal/observability"
	"github.com/spec-kit/listing-bot/internal/service"
)

// Client implements service.Messenger over the Telegram Bot API.
type Client struct {
	api     *tgbotapi.BotAPI
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Metrics
	logger  *zap.Logger

	channelID       int64
	channelUsername string
}

var _ service.Messenger = (*Client)(nil)

// NewClient authenticates against the Bot API.
func NewClient(cfg config.TelegramConfig, metrics *observability.Metrics, logger *zap.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return newClient(api, cfg, metrics, logger), nil
}

// NewClientWithEndpoint is NewClient against a custom Bot API endpoint, such as a local bot server.
func NewClientWithEndpoint(cfg config.TelegramConfig, endpoint string, httpClient tgbotapi.HTTPClient, metrics *observability.Metrics, logger *zap.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return newClient(api, cfg, metrics, logger), nil
}

func newClient(api *tgbotapi.BotAPI, cfg config.TelegramConfig, metrics *observability.Metrics, logger *zap.Logger) *Client {
	c := &Client{api: api, metrics: metrics, logger: logger}
	if id, err := strconv.ParseInt(cfg.ChannelID, 10, 64); err == nil {
		c.channelID = id
	} else {
		c.channelUsername = "@" + strings.TrimPrefix(cfg.ChannelID, "@")
	}

	maxFailures := uint32(cfg.BreakerMaxFailures)
	if maxFailures == 0 {
		maxFailures = 5
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "telegram",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: isTransportSuccess,
	})
	return c
}

// isTransportSuccess counts only transport failures against the breaker.
// Bot API rejections such as a blocked bot or a deleted message mean Telegram is up.
func isTransportSuccess(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code > 0 && apiErr.Code < 500 && apiErr.Code != 429
	}
	return false
}

// API exposes the underlying bot for the update sources.
func (c *Client) API() *tgbotapi.BotAPI {
	return c.api
}

// BotUsername returns the bot's @username without the "@".
func (c *Client) BotUsername() string {
	return c.api.Self.UserName
}

// ChannelChatID resolves the numeric id of the gated channel.
func (c *Client) ChannelChatID(ctx context.Context) (int64, error) {
	if c.channelID != 0 {
		return c.channelID, nil
	}
	res, err := c.call(ctx, "getChat", func() (any, error) {
		return c.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{SuperGroupUsername: c.channelUsername}})
	})
	if err != nil {
		return 0, fmt.Errorf("resolve channel %s: %w", c.channelUsername, err)
	}
	c.channelID = res.(tgbotapi.Chat).ID
	return c.channelID, nil
}

// SendMessage sends an HTML message and returns its id.
func (c *Client) SendMessage(ctx context.Context, msg service.OutMessage) (int, error) {
	out := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	out.ParseMode = tgbotapi.ModeHTML
	out.DisableWebPagePreview = msg.DisablePreview
	if len(msg.Keyboard) > 0 {
		out.ReplyMarkup = inlineKeyboard(msg.Keyboard)
	}
	res, err := c.call(ctx, "sendMessage", func() (any, error) { return c.api.Send(out) })
	if err != nil {
		return 0, err
	}
	return res.(tgbotapi.Message).MessageID, nil
}

// SendMediaGroup sends photos and videos as one album.
func (c *Client) SendMediaGroup(ctx context.Context, chatID int64, media []service.Media) error {
	if len(media) == 0 {
		return nil
	}
	files := make([]any, 0, len(media))
	for _, m := range media {
		switch m.Kind {
		case service.MediaVideo:
			files = append(files, tgbotapi.NewInputMediaVideo(tgbotapi.FileID(m.FileID)))
		default:
			files = append(files, tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(m.FileID)))
		}
	}
	_, err := c.call(ctx, "sendMediaGroup", func() (any, error) {
		return c.api.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, files))
	})
	return err
}

// SendDocument resends a stored document.
func (c *Client) SendDocument(ctx context.Context, chatID int64, doc domain.Document, caption string) error {
	out := tgbotapi.NewDocument(chatID, tgbotapi.FileID(doc.FileID))
	out.Caption = caption
	_, err := c.call(ctx, "sendDocument", func() (any, error) { return c.api.Send(out) })
	return err
}

// SendVideoNote resends a stored round video.
func (c *Client) SendVideoNote(ctx context.Context, chatID int64, fileID string) error {
	out := tgbotapi.NewVideoNote(chatID, 0, tgbotapi.FileID(fileID))
	_, err := c.call(ctx, "sendVideoNote", func() (any, error) { return c.api.Send(out) })
	return err
}

// DeleteMessage removes a message from a chat.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := c.call(ctx, "deleteMessage", func() (any, error) {
		return c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	})
	return err
}

// AnswerCallback acknowledges a button press, optionally with a toast.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	_, err := c.call(ctx, "answerCallbackQuery", func() (any, error) {
		return c.api.Request(tgbotapi.NewCallback(callbackID, text))
	})
	return err
}

// ChatMemberStatus returns the user's status in the gated channel.
func (c *Client) ChatMemberStatus(ctx context.Context, userID int64) (string, error) {
	cfg := tgbotapi.GetChatMemberConfig{ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
		ChatID:             c.channelID,
		SuperGroupUsername: c.channelUsername,
		UserID:             userID,
	}}
	if c.channelID != 0 {
		cfg.SuperGroupUsername = ""
	}
	res, err := c.call(ctx, "getChatMember", func() (any, error) { return c.api.GetChatMember(cfg) })
	if err != nil {
		return "", err
	}
	return res.(tgbotapi.ChatMember).Status, nil
}

// SetWebhook registers the public webhook URL.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("webhook config: %w", err)
	}
	_, err = c.call(ctx, "setWebhook", func() (any, error) { return c.api.Request(wh) })
	return err
}

// DeleteWebhook switches the bot back to long polling.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	_, err := c.call(ctx, "deleteWebhook", func() (any, error) {
		return c.api.Request(tgbotapi.DeleteWebhookConfig{})
	})
	return err
}

// call runs one Bot API request through the breaker and records it.
func (c *Client) call(ctx context.Context, method string, fn func() (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := c.breaker.Execute(fn)
	c.metrics.RecordTelegramCall(method, err)
	if err != nil {
		return nil, fmt.Errorf("telegram %s: %w", method, err)
	}
	return res, nil
}

func inlineKeyboard(kb service.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
