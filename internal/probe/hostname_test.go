package probe

import "testing"

func TestExtractHostname(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "https://example.com/path", want: "example.com"},
		{in: "http://example.com", want: "example.com"},
		{in: "example.com/x", want: "example.com"},
		{in: "https://example.com:8443/a/b?q=1", want: "example.com:8443"},
		{in: "https://https://example.com", want: "https:"},
		{in: "HTTPS://example.com/", want: "HTTPS:"},
		{in: "", want: ""},
		{in: "https://", want: ""},
		{in: "https://user@example.com/", want: "user@example.com"},
	}
	for _, tt := range tests {
		if got := ExtractHostname(tt.in); got != tt.want {
			t.Errorf("ExtractHostname(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
