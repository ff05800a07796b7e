package object

import (
	"strings"
	"testing"
	"time"
)

func TestNewKeyIsTimeBasedAndUnique(t *testing.T) {
	now := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	a := NewKey("owner-1", now, "image/jpeg")
	b := NewKey("owner-1", now, "image/jpeg")

	if a == b {
		t.Fatalf("expected unique keys, both %q", a)
	}
	if !strings.Contains(a, "/2026/03/") {
		t.Fatalf("expected year/month segment in %q", a)
	}
	if !strings.HasSuffix(a, ".jpg") {
		t.Fatalf("expected .jpg suffix in %q", a)
	}
	if strings.Contains(a, "owner-1") {
		t.Fatalf("owner id must be hashed in key %q", a)
	}
	if !ValidKey(a) {
		t.Fatalf("generated key should be valid: %q", a)
	}
}

func TestValidKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{key: "abc/2026/01/1-x.jpg", want: true},
		{key: "", want: false},
		{key: "/etc/passwd", want: false},
		{key: "abc/../../etc", want: false},
		{key: "abc//x", want: false},
	}
	for _, tt := range tests {
		if got := ValidKey(tt.key); got != tt.want {
			t.Fatalf("ValidKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestOwnerPrefix(t *testing.T) {
	got := OwnerPrefix("owner-12345")
	if got != OwnerPrefix("owner-12345") {
		t.Fatalf("expected stable prefix")
	}
	if len(got) != 64 || strings.Trim(got, "0123456789abcdef") != "" {
		t.Fatalf("expected 64 lowercase hex characters, got %q", got)
	}
	if got == OwnerPrefix("owner-12346") {
		t.Fatalf("different owners must not share a prefix")
	}
	key := NewKey("owner-12345", time.Now(), "image/png")
	if !strings.HasPrefix(key, got+"/") {
		t.Fatalf("key %q should start with the owner prefix", key)
	}
}

func TestContentTypeForRoundTripsExtension(t *testing.T) {
	for _, ct := range []string{"image/jpeg", "image/png", "image/webp", "image/gif"} {
		key := NewKey("owner", time.Now(), ct)
		if got := ContentTypeFor(key); got != ct {
			t.Fatalf("key %q: expected %s, got %s", key, ct, got)
		}
	}
	if got := ContentTypeFor("a/b/c.bin"); got != "application/octet-stream" {
		t.Fatalf("unexpected fallback %q", got)
	}
}
