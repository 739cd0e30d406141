package service

import (
	"context"
	"strings"

	"github.com/spec-kit/listing-bot/internal/domain"
)

func (f *FlowService) chooseBuyCategory(ctx context.Context, t *turn, key string) error {
	if t.sess.State != domain.StateBuyCategory {
		t.toast = toastStale
		return nil
	}
	if _, ok := domain.CategoryName(key); !ok {
		t.toast = toastStale
		return nil
	}
	t.sess.Data.Category = key
	return f.advance(ctx, t, domain.StateBuyExperience, "")
}

func (f *FlowService) handleBuyInput(ctx context.Context, t *turn) error {
	state := t.sess.State
	if t.in.Kind != domain.InboundText || state == domain.StateBuyCategory {
		return f.reply(ctx, t.in.ChatID, msgUseInterface, nil)
	}
	text := strings.TrimSpace(t.in.Text)
	if text == "" {
		return f.reply(ctx, t.in.ChatID, msgTextHint, nil)
	}

	d := &t.sess.Data
	switch state {
	case domain.StateBuyBudget:
		d.Budget = text
		return f.advance(ctx, t, domain.StateBuyCity, "")
	case domain.StateBuyCity:
		d.City = NormalizeCity(text)
		return f.advance(ctx, t, domain.StateBuyCategory, "")
	case domain.StateBuyExperience:
		d.Experience = text
		return f.advance(ctx, t, domain.StateBuyPhone, "")
	case domain.StateBuyPhone:
		d.Contact = text
		return f.advance(ctx, t, domain.StateBuyWhenContact, "")
	case domain.StateBuyWhenContact:
		d.WhenContact = text
		if _, err := f.finalizer.FinalizeBuy(ctx, t.sess); err != nil {
			return &notifiedError{err: err}
		}
	}
	return nil
}
