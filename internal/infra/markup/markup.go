// Package markup — формирование HTML-разметки исходящих сообщений Telegram
// (parse_mode=HTML) и человекочитаемых подписей. Вынесен отдельно: одни и те
// же приёмы нужны движку диалогов, верификации и обработчикам команд.
package markup

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"
)

// Bold экранирует value для HTML parse mode и оборачивает в <b>.
func Bold(value string) string {
	return "<b>" + html.EscapeString(value) + "</b>"
}

// Humanize превращает machine-ключ в подпись: подчёркивания — в пробелы,
// первая руна — верхний регистр, остальные — нижний ("first_name" → "First name").
func Humanize(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// isoTimestampLayouts — допустимые формы created_at после отрезания 'Z':
// с дробной частью секунд и без неё.
var isoTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// FormatTimestamp приводит ISO-8601 метку (с хвостовой 'Z' или без) к виду
// "YYYY-MM-DD HH:MM:SS". Неразборчивое значение возвращается как есть:
// лучше показать сырую метку, чем потерять уведомление.
func FormatTimestamp(raw string) string {
	trimmed := strings.TrimSuffix(raw, "Z")
	for _, layout := range isoTimestampLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts.Format("2006-01-02 15:04:05")
		}
	}
	return raw
}

// FormatValue печатает значение поля документа. json.Number и прочие
// примитивы выводятся своей литеральной записью.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
