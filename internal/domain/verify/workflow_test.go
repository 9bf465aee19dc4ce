package verify_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"apexid-bot/internal/domain/verify"
	"apexid-bot/internal/identity"
	"apexid-bot/internal/infra/concurrency"
	"apexid-bot/internal/infra/qrcode"
)

// fakeCodec возвращает заранее заданную полезную нагрузку вместо настоящего
// распознавания: форма конверта проверяется в пакете qrcode.
type fakeCodec struct {
	payload   string
	decodeErr error
}

func (f *fakeCodec) DecodeBytes([]byte) (string, error) { return f.payload, f.decodeErr }
func (f *fakeCodec) EncodePNG(text string) ([]byte, error) {
	return []byte("png:" + text), nil
}

type fakeAPI struct {
	record      []identity.Field
	verifyErr   error
	verifyCalls int
	gotCode     string

	issueCode string
	issueErr  error
}

func (f *fakeAPI) VerifyCode(_ context.Context, code string) ([]identity.Field, error) {
	f.verifyCalls++
	f.gotCode = code
	return f.record, f.verifyErr
}

func (f *fakeAPI) RequestVerificationCode(context.Context, string, string) (string, error) {
	return f.issueCode, f.issueErr
}

// fakeOutbox протоколирует исходящие вызовы.
type fakeOutbox struct {
	sent     []string
	photos   []string
	captions []string
	edits    []string
	cleared  int
	deleted  []int
	nextID   int
}

func (f *fakeOutbox) SendHTML(_ context.Context, _ int64, text string) (int, error) {
	f.sent = append(f.sent, text)
	f.nextID++
	return f.nextID, nil
}

func (f *fakeOutbox) SendPhoto(_ context.Context, _ int64, photo []byte, caption string) error {
	f.photos = append(f.photos, string(photo))
	f.captions = append(f.captions, caption)
	return nil
}

func (f *fakeOutbox) EditHTML(_ context.Context, _ int64, _ int, text string) error {
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeOutbox) ClearKeyboard(context.Context, int64, int) error {
	f.cleared++
	return nil
}

func (f *fakeOutbox) DeleteMessage(_ context.Context, _ int64, id int) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func newWorkflow(t *testing.T, api *fakeAPI, codec *fakeCodec) (*verify.Workflow, *fakeOutbox, *concurrency.Scheduler) {
	t.Helper()
	out := &fakeOutbox{}
	sched := concurrency.NewScheduler()
	sched.Start(context.Background())
	t.Cleanup(sched.Stop)
	return verify.NewWorkflow(api, codec, out, sched), out, sched
}

func TestHandleScanRejectsMalformedPayloadBeforeNetwork(t *testing.T) {
	t.Parallel()

	cases := []struct{ name, payload string }{
		{"notHex", "not-hex!"},
		{"tooShort", "a1b2c3"},
		{"uppercase", "A1B2C3D4E5F6A1B2C3D4E5F6"},
		{"tooLong", "a1b2c3d4e5f6a1b2c3d4e5f6ff"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			api := &fakeAPI{}
			wf, out, _ := newWorkflow(t, api, &fakeCodec{payload: tc.payload})

			if err := wf.HandleScan(context.Background(), 1, []byte("img")); err != nil {
				t.Fatalf("HandleScan() error = %v", err)
			}
			if api.verifyCalls != 0 {
				t.Errorf("VerifyCode called %d times for malformed payload", api.verifyCalls)
			}
			if len(out.sent) != 1 || out.sent[0] != "Invalid QR code." {
				t.Errorf("sent = %v", out.sent)
			}
		})
	}
}

func TestHandleScanValidCodeCallsVerifyOnce(t *testing.T) {
	t.Parallel()

	const code = "65ce9227ac91b58fd40c91bd"
	api := &fakeAPI{record: []identity.Field{
		{Key: "document_name", Value: "Passport"},
		{Key: "first_name", Value: "Ann"},
	}}
	wf, out, sched := newWorkflow(t, api, &fakeCodec{payload: code})

	if err := wf.HandleScan(context.Background(), 1, []byte("img")); err != nil {
		t.Fatalf("HandleScan() error = %v", err)
	}

	if api.verifyCalls != 1 || api.gotCode != code {
		t.Errorf("VerifyCode calls = %d with %q, want exactly one with %q", api.verifyCalls, api.gotCode, code)
	}
	if len(out.sent) != 1 {
		t.Fatalf("sent = %v", out.sent)
	}
	text := out.sent[0]
	for _, fragment := range []string{
		"Document name\n<b>Passport</b>",
		"First name\n<b>Ann</b>",
		"Document is valid and verified.\nThis message will be deleted in 3 minutes.",
	} {
		if !strings.Contains(text, fragment) {
			t.Errorf("rendered text misses %q:\n%s", fragment, text)
		}
	}
	// Автоудаление запланировано.
	if got := sched.Pending(); got != 1 {
		t.Errorf("Pending() = %d, want 1", got)
	}
}

func TestHandleScanNoCodeDetected(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	wf, out, _ := newWorkflow(t, api, &fakeCodec{decodeErr: qrcode.ErrNotFound})

	if err := wf.HandleScan(context.Background(), 1, []byte("img")); err != nil {
		t.Fatalf("HandleScan() error = %v", err)
	}
	if api.verifyCalls != 0 {
		t.Error("VerifyCode called without a decoded payload")
	}
	if len(out.sent) != 1 || out.sent[0] != "No QR code detected." {
		t.Errorf("sent = %v", out.sent)
	}
}

func TestHandleScanVerifyFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "rejectionWithDetail",
			err:  &identity.APIError{Status: 410, Body: []byte(`{"detail":"code expired"}`)},
			want: "Verification failed: code expired",
		},
		{
			name: "rejectionWithoutDetail",
			err:  &identity.APIError{Status: 404, Body: []byte(`{}`)},
			want: "Verification failed.",
		},
		{
			name: "transportFailure",
			err:  errors.New("dial tcp: timeout"),
			want: "Verification failed.",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			api := &fakeAPI{verifyErr: tc.err}
			wf, out, sched := newWorkflow(t, api, &fakeCodec{payload: "65ce9227ac91b58fd40c91bd"})

			if err := wf.HandleScan(context.Background(), 1, []byte("img")); err != nil {
				t.Fatalf("HandleScan() error = %v", err)
			}
			if len(out.sent) != 1 || out.sent[0] != tc.want {
				t.Errorf("sent = %v, want [%q]", out.sent, tc.want)
			}
			if sched.Pending() != 0 {
				t.Error("retraction scheduled for failed verification")
			}
		})
	}
}

func TestIssueChallengeSendsQRPhoto(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{issueCode: "secret-code"}
	wf, out, _ := newWorkflow(t, api, &fakeCodec{})

	if err := wf.IssueChallenge(context.Background(), 1, 77, "token", "65ce0001"); err != nil {
		t.Fatalf("IssueChallenge() error = %v", err)
	}
	if out.cleared != 1 {
		t.Errorf("ClearKeyboard calls = %d, want 1", out.cleared)
	}
	if len(out.photos) != 1 || out.photos[0] != "png:secret-code" {
		t.Errorf("photos = %v", out.photos)
	}
	want := "Verification QR code.\nPlease, scan it with your device.\n\nThis QR code is valid for 3 minutes."
	if len(out.captions) != 1 || out.captions[0] != want {
		t.Errorf("captions = %v", out.captions)
	}
}

func TestIssueChallengeFailureEditsMessage(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{issueErr: &identity.APIError{Status: 500}}
	wf, out, _ := newWorkflow(t, api, &fakeCodec{})

	if err := wf.IssueChallenge(context.Background(), 1, 77, "token", "65ce0001"); err != nil {
		t.Fatalf("IssueChallenge() error = %v", err)
	}
	if len(out.edits) != 1 || out.edits[0] != "Something went wrong while requesting the verification code." {
		t.Errorf("edits = %v", out.edits)
	}
	if len(out.photos) != 0 {
		t.Errorf("photo sent despite failure: %v", out.photos)
	}
}
