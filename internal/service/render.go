package service

import (
	"html"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/spec-kit/listing-bot/internal/domain"
)

var titleCaser = cases.Title(language.Russian)

// FormatRubles groups digits by thousands with spaces: 1250000 -> "1 250 000".
func FormatRubles(v int64) string {
	digits := strconv.FormatInt(v, 10)
	sign := ""
	if v < 0 {
		sign, digits = "-", digits[1:]
	}
	var b strings.Builder
	b.WriteString(sign)
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PriceHashtag buckets an asking price for channel navigation.
func PriceHashtag(price int64) string {
	switch {
	case price <= 500_000:
		return "#До500тыс"
	case price <= 1_000_000:
		return "#До1млн"
	case price <= 1_500_000:
		return "#До1_5млн"
	case price <= 2_000_000:
		return "#До2млн"
	case price <= 3_000_000:
		return "#До3млн"
	case price <= 5_000_000:
		return "#До5млн"
	default:
		return "#Выше5млн"
	}
}

// NormalizeCity capitalises city names typed entirely in lower case.
func NormalizeCity(city string) string {
	city = strings.TrimSpace(city)
	if city == "" || city != strings.ToLower(city) {
		return city
	}
	return titleCaser.String(city)
}

// RenderSellPreview renders a listing. Empty optional sections are omitted.
func RenderSellPreview(d domain.SessionData) string {
	category, _ := domain.CategoryName(d.Category)

	var b strings.Builder
	b.WriteString("<b>📌 " + html.EscapeString(d.Title) + "</b>\n\n")
	b.WriteString("💰 <b>Чистая прибыль:</b> " + FormatRubles(d.Profit) + " ₽\n")
	b.WriteString("💵 <b>Стоимость:</b> " + FormatRubles(d.Price) + " ₽\n")
	b.WriteString("📍 <b>Город:</b> " + html.EscapeString(d.City) + "\n")
	b.WriteString("🏷️ <b>Категория:</b> " + category + "\n")

	section := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		b.WriteString("\n" + label + " " + html.EscapeString(value) + "\n")
	}
	section("📢 <b>Маркетинг:</b>", d.Marketing)
	section("👥 <b>Сотрудники:</b>", d.Employees)
	section("🏢 <b>Помещение:</b>", d.Premises)
	section("📦 <b>Входит в стоимость:</b>", d.Included)
	section("📝 <b>Доп. информация:</b>", d.Extra)

	return b.String()
}

// RenderModeratorPreview adds the details only moderators see.
func RenderModeratorPreview(id string, d domain.SessionData, agentContact string) string {
	var b strings.Builder
	b.WriteString(RenderSellPreview(d))
	if d.Address != "" {
		b.WriteString("\n🗺️ <b>Адрес:</b> " + html.EscapeString(d.Address) + "\n")
	}

	contact := d.Contact
	if contact == "" {
		contact = "Не указан"
	}
	b.WriteString("\n👤 <b>Контакт продавца:</b> " + html.EscapeString(contact))
	if d.WithAgent {
		b.WriteString("\n🤝 <b>Посредник:</b> " + html.EscapeString(agentContact))
		if d.Discount {
			b.WriteString("\n🎁 <b>Скидка на комиссию за приглашения</b>")
		}
	}
	if d.RejectedAll {
		b.WriteString("\n\n⚠️ <b>Пользователь отказался от посредничества и от приглашений.</b>")
	}
	b.WriteString("\n\n🆔 <code>" + html.EscapeString(id) + "</code>")
	return b.String()
}

// RenderChannelPost renders the public post of a published listing.
func RenderChannelPost(d domain.SessionData) string {
	return RenderSellPreview(d) + "\n" + PriceHashtag(d.Price)
}

// RenderBuyRequest renders a buy inquiry for the moderation chat.
func RenderBuyRequest(id string, d domain.SessionData) string {
	category, _ := domain.CategoryName(d.Category)

	var b strings.Builder
	b.WriteString("<b>🔍 НОВАЯ ЗАЯВКА НА ПОКУПКУ</b>\n\n")
	b.WriteString("💰 <b>Бюджет:</b> " + html.EscapeString(d.Budget) + "\n")
	b.WriteString("📍 <b>Город:</b> " + html.EscapeString(d.City) + "\n")
	b.WriteString("🏷️ <b>Категория:</b> " + category + "\n")
	b.WriteString("📚 <b>Опыт:</b> " + html.EscapeString(d.Experience) + "\n")
	b.WriteString("📞 <b>Контакт:</b> " + html.EscapeString(d.Contact) + "\n")
	b.WriteString("⏰ <b>Когда связаться:</b> " + html.EscapeString(d.WhenContact) + "\n")
	if id != "" {
		b.WriteString("\n🆔 <code>" + html.EscapeString(id) + "</code>")
	}
	return b.String()
}
