package mediauri

import "testing"

func TestCanonicalizer_Canonical(t *testing.T) {
	c := MustNew("http://192.168.118.163:3000", "https://cdn.example.com/media/")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "canonical input unchanged", in: "/uploads/123.jpg", want: "/uploads/123.jpg"},
		{name: "known base stripped", in: "http://192.168.118.163:3000/uploads/123.jpg", want: "/uploads/123.jpg"},
		{name: "base with path prefix", in: "https://cdn.example.com/media/uploads/9.png", want: "/uploads/9.png"},
		{name: "scheme and host case-insensitive", in: "HTTPS://CDN.example.com/media/uploads/9.png", want: "/uploads/9.png"},
		{name: "upload path without leading slash", in: "uploads/123.jpg", want: "/uploads/123.jpg"},
		{name: "other relative path left as is", in: "media/123.jpg", want: "media/123.jpg"},
		{name: "surrounding whitespace", in: "  /uploads/1.jpg ", want: "/uploads/1.jpg"},
		{name: "unknown host left as is", in: "http://evil.example/uploads/123.jpg", want: "http://evil.example/uploads/123.jpg"},
		{name: "path prefix must match on segment", in: "https://cdn.example.com/mediaX/uploads/1.jpg", want: "https://cdn.example.com/mediaX/uploads/1.jpg"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Canonical(tt.in); got != tt.want {
				t.Errorf("Canonical(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalizer_Absolute(t *testing.T) {
	c := MustNew("https://cdn.example.com/media")
	if got := c.Absolute("/uploads/1.jpg"); got != "https://cdn.example.com/media/uploads/1.jpg" {
		t.Errorf("Absolute = %q", got)
	}
	if got := c.Canonical(c.Absolute("/uploads/1.jpg")); got != "/uploads/1.jpg" {
		t.Errorf("round trip = %q", got)
	}

	empty := MustNew()
	if got := empty.Absolute("/uploads/1.jpg"); got != "/uploads/1.jpg" {
		t.Errorf("Absolute without bases = %q", got)
	}
}

func TestNew_RejectsRelativeBase(t *testing.T) {
	if _, err := New([]string{"/uploads"}); err == nil {
		t.Fatal("expected error for relative base url")
	}
}
