package service

import "github.com/spec-kit/listing-bot/internal/domain"

func dataButton(text, data string) Button { return Button{Text: text, Data: data} }

func urlButton(text, url string) Button { return Button{Text: text, URL: url} }

func navRow() []Button {
	return []Button{
		dataButton("◀️ Назад", domain.ActionBack),
		dataButton("🔄 Начать заново", domain.ActionRestart),
	}
}

func restartRow() []Button {
	return []Button{dataButton("🔄 Начать заново", domain.ActionRestart)}
}

func welcomeKeyboard() Keyboard {
	return Keyboard{{
		dataButton("Продать", domain.ActionStartSell),
		dataButton("Купить", domain.ActionStartBuy),
	}}
}

func subscribeKeyboard(channelURL string) Keyboard {
	var kb Keyboard
	if channelURL != "" {
		kb = append(kb, []Button{urlButton("Подписаться", channelURL)})
	}
	return append(kb, []Button{dataButton("Проверить подписку", domain.ActionCheckSub)})
}

func infoReadyKeyboard() Keyboard {
	return Keyboard{{dataButton("Информацию подготовил(а)", domain.ActionInfoReady)}}
}

func navKeyboard() Keyboard { return Keyboard{navRow()} }

func skipKeyboard() Keyboard {
	return Keyboard{{dataButton("Пропустить", domain.ActionSkipCurrent)}, navRow()}
}

func skipTableKeyboard() Keyboard {
	return Keyboard{{dataButton("Пропустить", domain.ActionSkipTable)}, navRow()}
}

func photosKeyboard() Keyboard {
	return Keyboard{{dataButton("Готово", domain.ActionPhotosDone)}, navRow()}
}

func categoryKeyboard(action func(string) string) Keyboard {
	var kb Keyboard
	row := make([]Button, 0, 2)
	for _, c := range domain.Categories {
		row = append(row, dataButton(c.Name, action(c.Key)))
		if len(row) == 2 {
			kb = append(kb, row)
			row = make([]Button, 0, 2)
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}
	return append(kb, navRow())
}

func previewKeyboard() Keyboard {
	return Keyboard{
		{dataButton("✅ Да, всё верно", domain.ActionPreviewOK), dataButton("❌ Отменить", domain.ActionPreviewCancel)},
		navRow(),
	}
}

func agentKeyboard() Keyboard {
	return Keyboard{
		{dataButton("Да", domain.ActionAgreeAgent), dataButton("Нет", domain.ActionNoAgent)},
		navRow(),
	}
}

func agentOfferKeyboard() Keyboard {
	return Keyboard{
		{dataButton("✅ Согласен на скидку", domain.ActionAgentInvite)},
		{dataButton("❌ Без скидки", domain.ActionAgentNoDisc)},
		restartRow(),
	}
}

func freeOfferKeyboard() Keyboard {
	return Keyboard{
		{dataButton("✅ Согласен пригласить", domain.ActionNoAgentInvite)},
		{dataButton("❌ Отказываюсь", domain.ActionNoAgentReject)},
		restartRow(),
	}
}

func invitesKeyboard() Keyboard {
	return Keyboard{
		{dataButton("📋 Скопировать", domain.ActionInviteCopy), dataButton("✅ Отправил", domain.ActionInviteSent)},
		restartRow(),
	}
}

func moderationKeyboard(id string) Keyboard {
	return Keyboard{{
		dataButton("✅ Опубликовать", domain.PublishAction(id)),
		dataButton("❌ Отклонить", domain.RejectAction(id)),
	}}
}

func contactSellerKeyboard(url string) Keyboard {
	if url == "" {
		return nil
	}
	return Keyboard{{urlButton("📞 Связаться с продавцом", url)}}
}
