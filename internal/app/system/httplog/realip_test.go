package httplog_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/hirehub/internal/app/system/httplog"
	"github.com/dalemusser/hirehub/internal/app/system/ratelimit"
)

func TestParseTrustedProxies(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    int
		wantErr bool
	}{
		{name: "empty", in: nil, want: 0},
		{name: "bare ipv4", in: []string{"10.0.0.1"}, want: 1},
		{name: "cidr and ipv6", in: []string{"10.0.0.0/8", " fd00::1 ", ""}, want: 2},
		{name: "bad ip", in: []string{"proxy.internal"}, wantErr: true},
		{name: "bad cidr", in: []string{"10.0.0.0/99"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := httplog.ParseTrustedProxies(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %v", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d prefixes, want %d", len(got), tt.want)
			}
		})
	}
}

func TestTrustedRealIP(t *testing.T) {
	trusted, err := httplog.ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.7"})
	if err != nil {
		t.Fatalf("ParseTrustedProxies: %v", err)
	}

	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"trusted range honours header", "10.1.2.3:4000", "198.51.100.4, 10.1.2.3", "198.51.100.4"},
		{"trusted single ip honours header", "192.0.2.7:4000", "198.51.100.5", "198.51.100.5"},
		{"untrusted peer ignored", "203.0.113.9:4000", "198.51.100.6", "203.0.113.9"},
		{"trusted without header", "10.1.2.3:4000", "", "10.1.2.3"},
		{"trusted with garbage header", "10.1.2.3:4000", "not-an-ip", "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := httplog.TrustedRealIP(trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ratelimit.ClientIP(r)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("client ip = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTrustedRealIP_NoProxiesLeavesRequestAlone(t *testing.T) {
	var got string
	h := httplog.TrustedRealIP(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.RemoteAddr
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:4000"
	req.Header.Set("X-Real-IP", "198.51.100.9")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != "10.1.2.3:4000" {
		t.Errorf("RemoteAddr = %q, want it unchanged", got)
	}
}
