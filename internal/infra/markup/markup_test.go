package markup_test

import (
	"encoding/json"
	"testing"

	"apexid-bot/internal/infra/markup"
)

func TestBoldEscapesHTML(t *testing.T) {
	t.Parallel()

	if got := markup.Bold(`<Ann & "Co">`); got != "<b>&lt;Ann &amp; &#34;Co&#34;&gt;</b>" {
		t.Fatalf("Bold() = %q", got)
	}
}

func TestHumanize(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"first_name", "First name"},
		{"born_place", "Born place"},
		{"ID", "Id"},
		{"", ""},
		{"serial", "Serial"},
	}
	for _, tc := range cases {
		if got := markup.Humanize(tc.in); got != tc.want {
			t.Errorf("Humanize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"2024-02-15T22:37:27.535000Z", "2024-02-15 22:37:27"},
		{"2024-02-15T22:37:27Z", "2024-02-15 22:37:27"},
		{"2024-02-15T22:37:27", "2024-02-15 22:37:27"},
		{"not-a-date", "not-a-date"},
	}
	for _, tc := range cases {
		if got := markup.FormatTimestamp(tc.in); got != tc.want {
			t.Errorf("FormatTimestamp(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	t.Parallel()

	if got := markup.FormatValue(json.Number("2021")); got != "2021" {
		t.Errorf("FormatValue(Number) = %q", got)
	}
	if got := markup.FormatValue(nil); got != "" {
		t.Errorf("FormatValue(nil) = %q", got)
	}
	if got := markup.FormatValue(true); got != "true" {
		t.Errorf("FormatValue(true) = %q", got)
	}
}
