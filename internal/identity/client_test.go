package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"apexid-bot/internal/identity"
)

func newClient(t *testing.T, handler http.HandlerFunc) *identity.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return identity.NewClient(srv.URL, 5*time.Second)
}

func TestLoginSendsCredentialsAndReturnsToken(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/public/authorization/signin" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("signin must be unauthenticated, got Authorization %q", got)
		}
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Email != "a@b.com" || body.Password != "pw" {
			t.Errorf("body = %+v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "T"})
	})

	token, err := client.Login(context.Background(), "a@b.com", "pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token != "T" {
		t.Fatalf("Login() token = %q, want %q", token, "T")
	}
}

func TestLoginRejectedBecomesAPIError(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"bad credentials"}`))
	})

	_, err := client.Login(context.Background(), "a@b.com", "nope")
	apiErr, ok := identity.AsAPIError(err)
	if !ok {
		t.Fatalf("Login() error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", apiErr.Status)
	}
	if got := apiErr.Detail(); got != "bad credentials" {
		t.Errorf("Detail() = %q, want %q", got, "bad credentials")
	}
}

func TestAuthorizedCallsCarryRawToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		wantPath string
		call     func(c *identity.Client, ctx context.Context) error
		respond  func(w http.ResponseWriter)
	}{
		{
			name:     "profile",
			wantPath: "/api/v1/private/profile/my",
			call: func(c *identity.Client, ctx context.Context) error {
				_, err := c.GetProfile(ctx, "raw-token")
				return err
			},
			respond: func(w http.ResponseWriter) { _, _ = w.Write([]byte(`{"id":"1","first_name":"Ann"}`)) },
		},
		{
			name:     "notifications",
			wantPath: "/api/v1/private/profile/my/notifications",
			call: func(c *identity.Client, ctx context.Context) error {
				_, err := c.GetNotifications(ctx, "raw-token")
				return err
			},
			respond: func(w http.ResponseWriter) { _, _ = w.Write([]byte(`[]`)) },
		},
		{
			name:     "cabinet",
			wantPath: "/api/v1/private/application/cabinet",
			call: func(c *identity.Client, ctx context.Context) error {
				_, err := c.Cabinet(ctx, "raw-token")
				return err
			},
			respond: func(w http.ResponseWriter) { _, _ = w.Write([]byte(`[]`)) },
		},
		{
			name:     "documents",
			wantPath: "/api/v1/private/profile/my/documents",
			call: func(c *identity.Client, ctx context.Context) error {
				_, err := c.GetDocuments(ctx, "raw-token")
				return err
			},
			respond: func(w http.ResponseWriter) { _, _ = w.Write([]byte(`[]`)) },
		},
		{
			name:     "confirm",
			wantPath: "/api/v1/private/profile/my/documents/abc/confirm",
			call: func(c *identity.Client, ctx context.Context) error {
				_, err := c.RequestVerificationCode(ctx, "raw-token", "abc")
				return err
			},
			respond: func(w http.ResponseWriter) { _, _ = w.Write([]byte(`{"token":"code"}`)) },
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != tc.wantPath {
					t.Errorf("path = %q, want %q", r.URL.Path, tc.wantPath)
				}
				// Токен уходит как есть, без префикса Bearer.
				if got := r.Header.Get("Authorization"); got != "raw-token" {
					t.Errorf("Authorization = %q, want %q", got, "raw-token")
				}
				tc.respond(w)
			})

			if err := tc.call(client, context.Background()); err != nil {
				t.Fatalf("call error = %v", err)
			}
		})
	}
}

func TestRegisterPayloadShape(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/public/authorization/signup" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var got map[string]any
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		want := map[string]any{
			"email": "a@b.com", "password": "pw",
			"first_name": "Ann", "last_name": "Lee",
			"phone_number": "+1-555", "gender": "female", "nationality": "US",
			"born": map[string]any{"place": "Boston", "date": "1990-01-01"},
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("payload = %#v, want %#v", got, want)
		}
		w.WriteHeader(http.StatusOK)
	})

	err := client.Register(context.Background(), identity.Registration{
		Email: "a@b.com", Password: "pw",
		FirstName: "Ann", LastName: "Lee",
		PhoneNumber: "+1-555", Gender: "female", Nationality: "US",
		Born: identity.Born{Place: "Boston", Date: "1990-01-01"},
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
}

func TestVerifyCodePreservesFieldOrder(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/public/document/verify/c0ffee" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"document_name":"Passport","zzz_first":"1","aaa_last":2}`))
	})

	fields, err := client.VerifyCode(context.Background(), "c0ffee")
	if err != nil {
		t.Fatalf("VerifyCode() error = %v", err)
	}

	wantKeys := []string{"document_name", "zzz_first", "aaa_last"}
	if len(fields) != len(wantKeys) {
		t.Fatalf("fields = %d, want %d", len(fields), len(wantKeys))
	}
	for i, k := range wantKeys {
		if fields[i].Key != k {
			t.Errorf("fields[%d].Key = %q, want %q", i, fields[i].Key, k)
		}
	}
}

func TestGetDocumentExtractsOrderedData(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"_id": "65ce0001",
			"metadata": {"document_name": "ID Card"},
			"data": {"serial": "AB-1", "holder": {"first_name": "Ann", "last_name": "Lee"}, "issued": 2021}
		}`))
	})

	doc, err := client.GetDocument(context.Background(), "tok", "65ce0001")
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if doc.ID != "65ce0001" || doc.Name != "ID Card" {
		t.Errorf("doc = %+v", doc)
	}
	if len(doc.Data) != 3 || doc.Data[0].Key != "serial" || doc.Data[1].Key != "holder" || doc.Data[2].Key != "issued" {
		t.Fatalf("data order broken: %+v", doc.Data)
	}
	nested, ok := doc.Data[1].Value.([]identity.Field)
	if !ok || len(nested) != 2 || nested[0].Key != "first_name" {
		t.Fatalf("nested block = %#v", doc.Data[1].Value)
	}
}

func TestTransportFailureIsNotAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // closed on purpose: connection refused

	client := identity.NewClient(srv.URL, time.Second)
	_, err := client.GetProfile(context.Background(), "t")
	if err == nil {
		t.Fatal("GetProfile() expected error")
	}
	if _, ok := identity.AsAPIError(err); ok {
		t.Fatalf("transport failure classified as API rejection: %v", err)
	}
}
