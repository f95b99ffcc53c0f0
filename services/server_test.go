package services

import (
	"net/http"
	"testing"
)

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name           string
		origin         string
		allowedOrigins string
		want           bool
	}{
		{
			name:           "allowed origin",
			origin:         "http://localhost:3000",
			allowedOrigins: "http://localhost:3000",
			want:           true,
		},
		{
			name:           "second origin in list",
			origin:         "https://admin.example.com",
			allowedOrigins: "http://localhost:3000,https://admin.example.com",
			want:           true,
		},
		{
			name:           "disallowed origin",
			origin:         "https://evil.example.com",
			allowedOrigins: "http://localhost:3000",
			want:           false,
		},
		{
			name:           "empty allowlist denies everything",
			origin:         "http://localhost:3000",
			allowedOrigins: "",
			want:           false,
		},
		{
			name:           "whitespace around entries",
			origin:         "https://admin.example.com",
			allowedOrigins: "http://localhost:3000, https://admin.example.com",
			want:           true,
		},
		{
			name:           "port must match",
			origin:         "http://localhost:3001",
			allowedOrigins: "http://localhost:3000",
			want:           false,
		},
		{
			name:           "scheme must match",
			origin:         "https://localhost:3000",
			allowedOrigins: "http://localhost:3000",
			want:           false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest(http.MethodGet, "/ws", nil)
			r.Header.Set("Origin", tt.origin)

			if got := checkOrigin(r, tt.allowedOrigins); got != tt.want {
				t.Errorf("checkOrigin(%q, %q) = %v, want %v", tt.origin, tt.allowedOrigins, got, tt.want)
			}
		})
	}
}

func TestSplitOrigins(t *testing.T) {
	origins := splitOrigins(" http://a.example , http://b.example,http://c.example")
	if len(origins) != 3 {
		t.Fatalf("Expected 3 origins, got %d", len(origins))
	}
	for i, want := range []string{"http://a.example", "http://b.example", "http://c.example"} {
		if origins[i] != want {
			t.Errorf("origins[%d] = %q, want %q", i, origins[i], want)
		}
	}
}
