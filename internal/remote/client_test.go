package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/keshav2k4/employee-tracker-App/internal/location"
)

func testClient(url string) *Client {
	return NewClient(Options{
		BaseURL:       url,
		Subdomain:     "qtech.in",
		AppOS:         "web",
		AppUser:       "app-user",
		AppPassword:   "app-pwd",
		BasicUser:     "basic",
		BasicPassword: "secret",
		Timeout:       time.Second,
	})
}

func testSample() location.Sample {
	return location.Sample{
		Latitude:     37.7749,
		Longitude:    -122.4194,
		Accuracy:     location.Meters(10),
		Timestamp:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		LocationName: "SF",
	}
}

func TestPushSendsFormAndHeaders(t *testing.T) {
	var got http.Header
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != updatePath || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		got = r.Header.Clone()
		_ = r.ParseForm()
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		_, _ = w.Write([]byte(`{"apiexec_status":"success"}`))
	}))
	defer srv.Close()

	if err := testClient(srv.URL).Push(context.Background(), testSample(), "tok-1", "42"); err != nil {
		t.Fatalf("push: %v", err)
	}

	if got.Get("subdomain") != "qtech.in" || got.Get("user-access-token") != "tok-1" {
		t.Fatalf("missing tenant headers: %v", got)
	}
	if got.Get("app-auth-user") != "app-user" || got.Get("Authorization") == "" {
		t.Fatalf("missing app credentials: %v", got)
	}
	want := map[string]string{
		"employee_id":   "42",
		"latitude":      "37.7749",
		"longitude":     "-122.4194",
		"accuracy":      "10",
		"timestamp":     "2024-01-01T00:00:00Z",
		"location_name": "SF",
	}
	for k, v := range want {
		if form[k] != v {
			t.Fatalf("form %s = %q, want %q", k, form[k], v)
		}
	}
}

func TestPushAuthMissing(t *testing.T) {
	c := testClient("http://127.0.0.1:1")
	if err := c.Push(context.Background(), testSample(), "", "42"); !errors.Is(err, ErrAuthMissing) {
		t.Fatalf("expected auth missing, got %v", err)
	}
	if err := c.Push(context.Background(), testSample(), "tok", ""); !errors.Is(err, ErrAuthMissing) {
		t.Fatalf("expected auth missing, got %v", err)
	}
}

func TestPushServerErrors(t *testing.T) {
	status := http.StatusInternalServerError
	body := `{"usr_msg":"boom"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()
	c := testClient(srv.URL)

	var serverErr *ServerError
	err := c.Push(context.Background(), testSample(), "tok", "42")
	if !errors.As(err, &serverErr) || serverErr.StatusCode != 500 || serverErr.Message != "boom" {
		t.Fatalf("expected server error, got %v", err)
	}

	status = http.StatusOK
	body = `{"apiexec_status":"failed","usr_msg":"invalid employee"}`
	err = c.Push(context.Background(), testSample(), "tok", "42")
	if !errors.As(err, &serverErr) || serverErr.Message != "invalid employee" {
		t.Fatalf("expected rejected update, got %v", err)
	}
}

func TestPushNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := testClient(url).Push(context.Background(), testSample(), "tok", "42")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("username") != "9990001111" {
			w.WriteHeader(452)
			return
		}
		if r.PostForm.Get("password") != "pw" {
			_, _ = w.Write([]byte(`{"apiexec_status":"failed","usr_msg":"Invalid credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"apiexec_status": "success",
			"logged_user": map[string]any{
				"api_access_token": "tok-123",
				"full_name":        "Asha Rao",
				"email":            "asha@example.com",
				"usertype_name":    "Employee",
				"mobile_phone":     "9990001111",
				"employee_id":      17,
			},
		})
	}))
	defer srv.Close()
	c := testClient(srv.URL)

	user, err := c.Login(context.Background(), "9990001111", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.AccessToken != "tok-123" || user.EmployeeID != "17" || user.FullName != "Asha Rao" {
		t.Fatalf("unexpected user: %+v", user)
	}

	var loginErr *LoginError
	_, err = c.Login(context.Background(), "9990001111", "wrong")
	if !errors.As(err, &loginErr) || loginErr.Message != "Invalid credentials" {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	_, err = c.Login(context.Background(), "someone", "pw")
	if !errors.As(err, &loginErr) || loginErr.StatusCode != 452 {
		t.Fatalf("expected 452 login error, got %v", err)
	}
}

func TestFetchHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != historyPath || r.URL.Query().Get("employeeId") != "17" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"id":1,"locationName":"San Francisco, CA","timestamp":"2024-01-01T00:00:00Z","latitude":37.7749,"longitude":-122.4194}]`))
	}))
	defer srv.Close()

	start := time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC)
	entries, err := testClient(srv.URL).FetchHistory(context.Background(), "tok", "17", &start, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "remote-1" || entries[0].LocationName != "San Francisco, CA" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	if _, err := testClient(srv.URL).FetchHistory(context.Background(), "", "17", nil, nil); !errors.Is(err, ErrAuthMissing) {
		t.Fatalf("expected auth missing, got %v", err)
	}
}

func TestFlexString(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"x1","b":42,"c":null}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A != "x1" || v.B != "42" || v.C != "" {
		t.Fatalf("unexpected values: %+v", v)
	}
}

func TestLoginUnparsableResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	var loginErr *LoginError
	_, err := testClient(srv.URL).Login(context.Background(), "9990001111", "pw")
	if !errors.As(err, &loginErr) || loginErr.Message != "Login failed" {
		t.Fatalf("expected generic login failure, got %v", err)
	}
}
