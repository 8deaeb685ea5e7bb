package utils

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "http://example.com"},
		{"example.com/path?q=1", "http://example.com/path?q=1"},
		{"https://example.com", "https://example.com"},
		{"http://example.com", "http://example.com"},
		{"ftp://files.example.com", "ftp://files.example.com"},
		{"  example.com  ", "http://example.com"},
		{"", ""},
		{"example.com/go?to=http://x", "http://example.com/go?to=http://x"},
		{"example.com?next=https://other.example", "http://example.com?next=https://other.example"},
		{"example.com#https://frag", "http://example.com#https://frag"},
		{"example.com:8080/a", "http://example.com:8080/a"},
		{"//cdn.example.com/x", "http://cdn.example.com/x"},
		{"https://example.com/go?to=http://x", "https://example.com/go?to=http://x"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeURL(tt.in); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestHashURL_Stable(t *testing.T) {
	a := HashURL("http://example.com")
	b := HashURL("http://example.com")
	if a != b {
		t.Fatalf("HashURL not stable: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("len(HashURL) = %d, want 64", len(a))
	}
	if a == HashURL("http://example.org") {
		t.Error("distinct URLs hashed to the same key")
	}
}
