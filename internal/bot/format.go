package bot

import (
	"sort"
	"strconv"
	"strings"

	"apexid-bot/internal/identity"
	"apexid-bot/internal/infra/markup"
)

// notificationsLimit - сколько уведомлений показывается без аргумента all.
const notificationsLimit = 5

const helpText = "Available commands:\n\n" +
	"/start - Start the bot\n" +
	"/help - Get help\n" +
	"/login - Login to the system\n" +
	"/register - Register to the system\n" +
	"/logout - Logout from the system\n" +
	"/profile - Get your profile\n" +
	"/notifications - Get your notifications\n" +
	"/cabinet - Get your applications\n" +
	"/documents - Get your documents"

func renderStart(name string, authorized bool) string {
	status := msgNotAuthorized
	if authorized {
		status = "I see that you already authorized, you can use /help to get more information"
	}
	parts := []string{
		"Hello, " + markup.Bold(name) + "!",
		"Here you can manage your ApexID account and some documents!\n",
		markup.Bold("This bot and API is Work In Progress (WIP) so keep an eye on updates.\n"),
		status,
	}
	return strings.Join(parts, "\n")
}

func renderProfile(p identity.Profile) string {
	parts := []string{
		"Your profile information:\n",
		"ID: " + markup.Bold(p.ID),
		"First Name: " + markup.Bold(p.FirstName) + "\n",
		"At the moment, this is the only information we able to provide you through profile.",
		"If you want to get your documents, please use /documents command.",
		"Or you can use /cabinet to manage your applications.",
	}
	return strings.Join(parts, "\n")
}

// renderNotifications показывает уведомления от новых к старым. Без флага all
// список усечён до пяти последних с подсказкой, как увидеть остальные.
func renderNotifications(list []identity.Notification, all bool) string {
	total := len(list)
	limit := notificationsLimit
	if all {
		limit = total
	}

	sorted := make([]identity.Notification, len(list))
	copy(sorted, list)
	// Метки времени ISO-8601 сравниваются как строки.
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt > sorted[j].CreatedAt })
	if limit < len(sorted) {
		sorted = sorted[:limit]
	}

	parts := []string{"Your notifications:\n"}
	for _, n := range sorted {
		parts = append(parts,
			n.Message+"\n"+markup.Bold(markup.FormatTimestamp(n.CreatedAt))+" from "+markup.Bold(n.CreatedBy)+"\n")
	}

	if total > limit {
		parts = append(parts,
			"Only "+markup.Bold(strconv.Itoa(limit))+" latest notifications are shown.\n"+
				"Use '/notifications all' to see all of them.")
	} else {
		parts = append(parts, "Total "+markup.Bold(strconv.Itoa(total))+" notifications are shown.")
	}
	return strings.Join(parts, "\n")
}

func renderCabinet(apps []identity.Application) string {
	parts := []string{"Your applications:\n"}
	for _, a := range apps {
		parts = append(parts, markup.Bold(a.Reference)+" is "+markup.Bold(a.Status)+"\n")
	}
	return strings.Join(parts, "\n")
}

// renderDocument отрисовывает документ в порядке полей сервера: заголовок с
// именем, затем поля. Вложенный объект разворачивается на один уровень,
// подпись складывается из родительского и дочернего ключей.
func renderDocument(doc identity.Document) string {
	parts := []string{markup.Bold(doc.Name) + "\n"}
	for _, f := range doc.Data {
		if nested, ok := f.Value.([]identity.Field); ok {
			for _, sub := range nested {
				parts = append(parts,
					markup.Humanize(f.Key)+" "+markup.Humanize(sub.Key)+"\n"+
						markup.Bold(markup.FormatValue(sub.Value))+"\n")
			}
			continue
		}
		parts = append(parts, markup.Humanize(f.Key)+"\n"+markup.Bold(markup.FormatValue(f.Value))+"\n")
	}
	return strings.Join(parts, "\n")
}
