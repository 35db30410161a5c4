package signature

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/user/log-audit/internal/domain"
)

func occurrence(method, path string, status int, message string) domain.ErrorOccurrence {
	return domain.ErrorOccurrence{
		Service:    "api",
		Method:     method,
		Path:       path,
		StatusCode: status,
		Message:    message,
		OccurredAt: time.Now(),
	}
}

func TestNormalizePath(t *testing.T) {
	b := NewBuilder()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"uuid segment", "/users/3f9e1b2a-1c4d-4e6f-8a9b-0c1d2e3f4a5b/orders", "/users/:id/orders"},
		{"uppercase uuid segment", "/users/3F9E1B2A-1C4D-4E6F-8A9B-0C1D2E3F4A5B", "/users/:id"},
		{"numeric segment", "/orders/88412", "/orders/:id"},
		{"trailing numeric segment", "/invoices/2024/7", "/invoices/:id/:id"},
		{"query string stripped", "/search?q=foo&page=2", "/search"},
		{"mixed alnum segment untouched", "/orders/abc123", "/orders/abc123"},
		{"root", "/", "/"},
		{"empty path", "", "/unknown"},
		{"no leading slash", "healthz", "/unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.NormalizePath(tt.in))
		})
	}
}

func TestNormalizeMessage(t *testing.T) {
	b := NewBuilder()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"uuid replaced", "duplicate key 3f9e1b2a-1c4d-4e6f-8a9b-0c1d2e3f4a5b", "duplicate key <*>"},
		{"long number replaced", "order 1234567 not found", "order <*> not found"},
		{"short code kept", "upstream returned 503", "upstream returned 503"},
		{"timestamp replaced", "expired at 2026-08-29T14:03:55", "expired at <*>"},
		{"ipv4 replaced", "refused connection from 10.0.14.233", "refused connection from <*>"},
		{"empty message", "", "unknown"},
		{"whitespace only", "   ", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.NormalizeMessage(tt.in))
		})
	}
}

func TestNormalizeMessageRuleOrder(t *testing.T) {
	b := NewBuilder()

	// A UUID contains digit runs and an IPv4-shaped fragment could survive a
	// careless ordering; the full line must collapse to single placeholders.
	got := b.NormalizeMessage("user 4fa85f64-5717-4562-b3fc-2c963f66afa6 from 192.168.100.250 at 2026-08-29T09:12:44 id 9912345678")
	assert.Equal(t, "user <*> from <*> at <*> id <*>", got)
}

func TestNormalizeMessageTruncation(t *testing.T) {
	b := NewBuilder()

	long := make([]byte, 2*maxPatternLen)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, b.NormalizeMessage(string(long)), maxPatternLen)
}

func TestBuildDeterminism(t *testing.T) {
	b := NewBuilder()

	a := b.Build(occurrence("POST", "/users/3f9e1b2a-1c4d-4e6f-8a9b-0c1d2e3f4a5b", 500, "duplicate key 88412345 at 2026-08-29T10:00:00"))
	c := b.Build(occurrence("POST", "/users/aaaa1111-bbbb-2222-cccc-333344445555", 500, "duplicate key 11199999 at 2025-01-02T03:04:05"))

	assert.Equal(t, a.Signature, c.Signature)
	assert.Equal(t, a.Path, c.Path)
	assert.Equal(t, a.Pattern, c.Pattern)
}

func TestBuildDistinctDimensions(t *testing.T) {
	b := NewBuilder()
	base := b.Build(occurrence("POST", "/users/42", 500, "boom"))

	t.Run("method differs", func(t *testing.T) {
		other := b.Build(occurrence("PUT", "/users/42", 500, "boom"))
		assert.NotEqual(t, base.Signature, other.Signature)
	})
	t.Run("status differs", func(t *testing.T) {
		other := b.Build(occurrence("POST", "/users/42", 503, "boom"))
		assert.NotEqual(t, base.Signature, other.Signature)
	})
	t.Run("path differs", func(t *testing.T) {
		other := b.Build(occurrence("POST", "/orders/42", 500, "boom"))
		assert.NotEqual(t, base.Signature, other.Signature)
	})
	t.Run("pattern differs", func(t *testing.T) {
		other := b.Build(occurrence("POST", "/users/42", 500, "bang"))
		assert.NotEqual(t, base.Signature, other.Signature)
	})
}

func TestSignatureFormat(t *testing.T) {
	sig := Compute("/users/:id", "GET", 404, "not found")
	assert.Regexp(t, `^err_[0-9a-f]{16}$`, sig)
	assert.Equal(t, sig, Compute("/users/:id", "GET", 404, "not found"))
}

func TestTruncateSample(t *testing.T) {
	long := make([]byte, MaxSampleLen+100)
	for i := range long {
		long[i] = 'y'
	}
	assert.Len(t, TruncateSample(string(long)), MaxSampleLen)
	assert.Equal(t, "short", TruncateSample("short"))
}
