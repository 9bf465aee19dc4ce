package botapi

import (
	"testing"

	"apexid-bot/internal/bot"
)

func TestToEvent(t *testing.T) {
	t.Parallel()

	from := &User{ID: 10, FirstName: "Ann", LastName: "Smith"}

	tests := []struct {
		name   string
		update Update
		want   bot.Event
		ok     bool
	}{
		{
			name: "text",
			update: Update{Message: &Message{
				MessageID: 3, From: from, Chat: Chat{ID: 10}, Text: "/start",
			}},
			want: bot.Event{
				Kind: bot.EventText, UserID: 10, ChatID: 10, MessageID: 3,
				UserName: "Ann Smith", Text: "/start",
			},
			ok: true,
		},
		{
			name: "photoPicksLargest",
			update: Update{Message: &Message{
				MessageID: 4, From: from, Chat: Chat{ID: 10},
				Photo: []PhotoSize{{FileID: "small"}, {FileID: "medium"}, {FileID: "large"}},
			}},
			want: bot.Event{
				Kind: bot.EventPhoto, UserID: 10, ChatID: 10, MessageID: 4,
				UserName: "Ann Smith", PhotoFileID: "large",
			},
			ok: true,
		},
		{
			name: "callback",
			update: Update{CallbackQuery: &CallbackQuery{
				ID:   "cb9",
				From: User{ID: 10, FirstName: "Ann"},
				Data: "document_65ce0001",
				Message: &Message{
					MessageID: 5, Chat: Chat{ID: 10},
				},
			}},
			want: bot.Event{
				Kind: bot.EventCallback, UserID: 10, ChatID: 10,
				UserName: "Ann", CallbackID: "cb9",
				CallbackData: "document_65ce0001", CallbackMessageID: 5,
			},
			ok: true,
		},
		{
			name: "channelPostSkipped",
			update: Update{Message: &Message{
				MessageID: 6, Chat: Chat{ID: -100200300}, Text: "broadcast",
			}},
			ok: false,
		},
		{
			name:   "emptyUpdateSkipped",
			update: Update{UpdateID: 12},
			ok:     false,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := toEvent(tc.update)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Errorf("event = %+v, want %+v", got, tc.want)
			}
		})
	}
}
