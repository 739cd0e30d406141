package service

import (
	"fmt"
	"strings"
)

const (
	msgWelcome        = "Рады приветствовать вас! Вы хотите продать или купить бизнес?"
	msgRestart        = "🔄 Начинаем сначала!\n\nВы хотите продать или купить бизнес?"
	msgReset          = "Данные сброшены. Вы можете начать заново /start."
	msgStartHint      = "Чтобы начать, нажмите /start."
	msgSubscribedGo   = "Отлично — вы подписаны. Начинаем.\n\nВы хотите продать или купить бизнес?"
	msgNotSubscribed  = "Вы не подписаны. Пожалуйста, подпишитесь на канал."
	msgUseInterface   = "Пожалуйста, используйте интерфейс бота (кнопки) или дождитесь запроса. Если хотите сбросить данные — /reset."
	msgGenericFailure = "❌ Произошла ошибка. Попробуйте позже или начните заново /start."

	msgProfitHint = "Пожалуйста, укажите целое число — пример: 150000"
	msgPriceHint  = "Пожалуйста, укажите целое число — пример: 1250700"
	msgTextHint   = "Пожалуйста, ответьте текстом."

	msgTableAccepted   = "Таблица принята."
	msgTableNeedsFile  = "Прикрепите таблицу файлом или нажмите 'Пропустить'."
	msgPhotoDuplicate  = "Это фото уже добавлено."
	msgVideoDuplicate  = "Видео уже прикреплено. Можно прикрепить только одно видео."
	msgVideoAccepted   = "Видео принято."
	msgNoteDuplicate   = "Видеокружочек уже прикреплён. Можно прикрепить только один."
	msgNoteAccepted    = "🎥 Видеокружочек принят."
	msgPreviewCanceled = "Окей, объявление отменено. Если захотите начать заново — /start."

	msgSelfInvite     = "Вы не можете пригласить сами себя! 😄"
	msgAlreadyHelped  = "Вы уже помогли кому-то получить бонус! 🎁\n\nХотите разместить своё объявление?"
	msgInviteeThanks  = "🎉 Спасибо! Вы помогли другу получить бонус!\n\nТеперь вы можете:\n• Продать свой бизнес\n• Найти готовый бизнес для покупки"
	msgSubmitSaveFail = "❌ Ошибка при сохранении объявления. Попробуйте позже."
	msgSubmitQueueErr = "❌ Ошибка при отправке на модерацию. Попробуйте позже."
	msgBuyNotifyFail  = "❌ Произошла ошибка при отправке заявки. Пожалуйста, попробуйте позже или свяжитесь с администратором."
	msgBuyAccepted    = "✅ Спасибо! Ваша заявка принята и отправлена на рассмотрение.\n\nМы свяжемся с вами, как только появятся подходящие варианты."
	msgPublishedUser  = "✅ Ваше объявление опубликовано!\n\nСпасибо за использование нашего сервиса. Ожидайте предложений от заинтересованных покупателей."

	toastRestart      = "🔄 Перезапуск"
	toastBack         = "◀️ Возврат назад"
	toastNoPrevious   = "Нет предыдущего шага"
	toastFirstStep    = "Это первый шаг, назад вернуться нельзя"
	toastNoBackOffer  = "На этом шаге вернуться назад нельзя. Выберите вариант или начните заново."
	toastStale        = "Эта кнопка больше не активна."
	toastPublished    = "✅ Объявление опубликовано успешно!"
	toastHandled      = "❌ Заявка не найдена или уже обработана."
	toastBuyPublish   = "⚠️ Публикация заявок покупателей не поддерживается в общий канал."
	toastPublishError = "❌ Произошла ошибка при публикации. Попробуйте позже."
	toastForbidden    = "⛔ Недостаточно прав."

	msgRejectNoContext = "❌ Не найдена заявка для отклонения. Попробуйте снова."
	msgRejectHandled   = "❌ Заявка уже обработана или не найдена."
	msgRejectEmpty     = "Причина не может быть пустой. Напишите причину отклонения:"
)

var statePrompts = map[string]string{
	"title":        "Тогда начнём с названия объявления:",
	"profit":       "Какая чистая прибыль? (Должна совпадать с таблицей)",
	"marketing":    "Расскажите, как привлекаете клиентов (активные источники привлечения клиентов):",
	"employees":    "Заполните информацию про сотрудников (количество, ФОТ, стаж, должности):",
	"premises":     "Информация о помещении ((суб)аренда/собственность, площадь, коммунальные, ремонт и т.д.):",
	"included":     "Что входит в стоимость бизнеса? (Материальное и не материальное, обеспечительный платеж, товарные остатки, ваше сопровождение и т.д.)",
	"extra":        "Дополнительная информация (история бизнеса, причина продажи, доп. инвестиции):",
	"table":        "Прикрепите таблицу доходности (файл) или нажмите 'Пропустить' (не рекомендуется).",
	"city":         "Напишите город с большой буквы (например: Новосибирск):",
	"address":      "Укажите адрес бизнеса:",
	"price":        "Укажите стоимость бизнеса целым числом (например: 1250700):",
	"category":     "Выберите категорию:",
	"agent":        "Мы готовы разместить ваше объявление бесплатно, однако в случае заинтересованности мы выступим в качестве посредников. Вы согласны?",
	"contactAgent": "Оставьте контакт для связи (телефон или @username):",
	"contactFree":  "Хорошо. Укажите ваш контакт для связи (телефон или @username):",
	"contactAgain": "Пожалуйста, оставьте контакт для связи (телефон или @username):",

	"buyBudget":     "Отлично! Какой у вас бюджет?",
	"buyCity":       "В каком городе? (Напишите с большой буквы)",
	"buyCategory":   "Какой вид деятельности рассматриваете? Выберите категорию:",
	"buyExperience": "Есть ли у вас опыт в бизнесе? (Напишите Да/Нет или опишите опыт)",
	"buyPhone":      "Отлично! Теперь, пожалуйста, оставьте ваш контакт для связи (номер телефона или @username).",
	"buyWhen":       "Когда лучше связаться?",
}

func gateMessage(buy bool, channel string) string {
	if buy {
		return fmt.Sprintf("Чтобы отправить заявку, вы должны быть подписаны на канал @%s", channel)
	}
	return fmt.Sprintf("Чтобы выставить объявление, вы должны быть подписаны на канал @%s", channel)
}

func referralGateMessage(channel string) string {
	return fmt.Sprintf("❌ Чтобы помочь другу, сначала подпишитесь на канал!\n\n👉 @%s\n\nПосле подписки нажмите «Проверить подписку».", channel)
}

func sellInstructions(tableURL string) string {
	table := "таблицу доходности"
	if tableURL != "" {
		table = fmt.Sprintf(`<a href="%s">таблицу доходности</a>`, tableURL)
	}
	return "Для размещения объявления подготовьте:\n\n" +
		"1. Название объявления\n" +
		"2. Чистую прибыль в месяц\n" +
		"3. Источники привлечения клиентов\n" +
		"4. Информацию о сотрудниках\n" +
		"5. Информацию о помещении\n" +
		"6. Что входит в стоимость\n" +
		"7. Заполненную " + table + "\n" +
		"8. Фото и видео бизнеса\n\n" +
		"Когда всё будет готово, нажмите кнопку ниже."
}

func photosPrompt(count, limit int) string {
	return fmt.Sprintf("Прикрепите фото (до %d) и/или видео. Загружено фото: %d/%d\n\nПосле загрузки нажмите 'Готово'.", limit, count, limit)
}

func photoAccepted(count, limit int) string {
	return fmt.Sprintf("Фото принято (%d/%d).", count, limit)
}

func photoLimit(limit int) string {
	return fmt.Sprintf("Можно прикрепить максимум %d фото.", limit)
}

func agentOfferPrompt(threshold int) string {
	return fmt.Sprintf("Мы предоставим скидку 20%% на нашу комиссию, если вы пригласите %d друзей в канал.", threshold)
}

func freeOfferPrompt(threshold int) string {
	return fmt.Sprintf("Очень жаль! Но мы всё равно разместим ваше объявление бесплатно, вам всего лишь нужно пригласить %d друзей в наш канал. Согласны?", threshold)
}

func inviteText(channelLink, referralLink string) string {
	return "Привет! Появился новый ТГ канал, тут продают и покупают готовый бизнес. Я свой туда выставил. Подпишись пожалуйста, хочу бонус забрать 🎁\n\n" +
		"👉 Канал: " + channelLink + "\n" +
		"👉 Перейди в бота и нажми 'Старт': " + referralLink
}

func invitesCounting(text string, count, threshold int) string {
	return fmt.Sprintf("📨 Отправьте эти ссылки %d друзьям:\n\n%s\n\nПриглашено: %d/%d", threshold, text, count, threshold)
}

func invitesAgent(text string, threshold int) string {
	return fmt.Sprintf("📨 Отправьте эти ссылки %d друзьям:\n\n%s\n\nКогда будете готовы — нажмите «Отправил».", threshold, text)
}

func invitesProgress(count, threshold int) string {
	return fmt.Sprintf("⏳ Пока приглашено только %d/%d друзей.\nОтправьте ссылку ещё %d друзьям.\n\nКак только %d друзей подпишутся на канал и запустят бота, объявление автоматически отправится на модерацию.",
		count, threshold, threshold-count, threshold)
}

func inviterNotice(count, threshold int) string {
	return fmt.Sprintf("✅ Ваш друг подписался на канал и нажал START!\nПриглашено: %d/%d", count, threshold)
}

func thresholdCongrats(threshold int) string {
	return fmt.Sprintf("🎉 Поздравляем! Вы пригласили %d друзей.", threshold)
}

func submittedForModeration(id string) string {
	return "✅ Ваше объявление отправлено на модерацию!\nМы проверим его и опубликуем в ближайшее время.\n\nID объявления: <code>" + id + "</code>"
}

func rejectReasonPrompt(id string) string {
	return "Напишите причину отклонения для заявки " + id + ":"
}

func rejectedUser(reason string) string {
	return "❌ Ваше объявление отклонено.\n\n📝 Причина:\n" + reason
}

func rejectedModerator(id string) string {
	return "✅ Заявка " + id + " отклонена. Причина отправлена пользователю."
}

func lead(prefix, text string) string {
	if strings.TrimSpace(prefix) == "" {
		return text
	}
	return prefix + "\n\n" + text
}
