package service

import (
	"context"

	"github.com/spec-kit/listing-bot/internal/domain"
)

// Button is one inline keyboard button. Exactly one of Data and URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Keyboard is a grid of inline buttons.
type Keyboard [][]Button

// OutMessage is an HTML-formatted text message.
type OutMessage struct {
	ChatID         int64
	Text           string
	Keyboard       Keyboard
	DisablePreview bool
}

// MediaKind distinguishes album items.
type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

// Media is one item of an album.
type Media struct {
	Kind   MediaKind
	FileID string
}

// Messenger is the chat transport used by the services.
type Messenger interface {
	SendMessage(ctx context.Context, msg OutMessage) (int, error)
	SendMediaGroup(ctx context.Context, chatID int64, media []Media) error
	SendDocument(ctx context.Context, chatID int64, doc domain.Document, caption string) error
	SendVideoNote(ctx context.Context, chatID int64, fileID string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	// ChatMemberStatus returns the user's status in the gated channel.
	ChatMemberStatus(ctx context.Context, userID int64) (string, error)
	BotUsername() string
}

// Enqueuer schedules an inbound event on its user's serial lane.
type Enqueuer interface {
	Enqueue(ctx context.Context, in domain.Inbound) error
}

const maxAlbumSize = 10

// albumFor collects the photos and the video of a listing into one album.
func albumFor(data domain.SessionData) []Media {
	media := make([]Media, 0, len(data.Photos)+1)
	for _, id := range data.Photos {
		if len(media) == maxAlbumSize {
			break
		}
		media = append(media, Media{Kind: MediaPhoto, FileID: id})
	}
	if data.Video != "" && len(media) < maxAlbumSize {
		media = append(media, Media{Kind: MediaVideo, FileID: data.Video})
	}
	return media
}

// sendListingMedia sends the album and the video note of a listing, stopping at the first failure.
func sendListingMedia(ctx context.Context, m Messenger, chatID int64, data domain.SessionData) error {
	if album := albumFor(data); len(album) > 0 {
		if err := m.SendMediaGroup(ctx, chatID, album); err != nil {
			return err
		}
	}
	if data.VideoNote != "" {
		if err := m.SendVideoNote(ctx, chatID, data.VideoNote); err != nil {
			return err
		}
	}
	return nil
}
