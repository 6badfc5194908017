// nolint: lll
package log

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMasker(t *testing.T) {
	replAToB := MaskingRuleConfig{Masks: []MaskConfig{{`A`, `B`}}}
	replBToA := MaskingRuleConfig{Masks: []MaskConfig{{`B`, `A`}}}
	cases := []struct {
		ruleConfig []MaskingRuleConfig
		input      string
		expected   string
	}{
		{
			[]MaskingRuleConfig{replAToB},
			"ABA",
			"BBB",
		},
		{
			[]MaskingRuleConfig{replAToB, replBToA},
			"ABA",
			"AAA",
		},
		{
			[]MaskingRuleConfig{replBToA, replAToB},
			"ABA",
			"BBB",
		},
	}
	for _, c := range cases {
		t.Run(c.input, func(t *testing.T) {
			m := NewMasker(c.ruleConfig)
			out := m.Mask(c.input)
			require.Equal(t, c.expected, out)
		})
	}
}

func TestDefaultMasks(t *testing.T) {
	tests := []struct {
		name, s, expected string
	}{
		{
			name:     "client_secret URL encoded, last",
			s:        "POST /idp/token HTTP/1.1\r\nHost: example.com\r\nContent-Type: application/x-www-form-urlencoded\r\n\r\ngrant_type=urn%3Aietf%3Aparams%3Aoauth%3Agrant-type%3Ajwt-bearer&client_secret=eyJhbGciOiJSUzI1NiJ9.4liWPGg",
			expected: "POST /idp/token HTTP/1.1\r\nHost: example.com\r\nContent-Type: application/x-www-form-urlencoded\r\n\r\ngrant_type=urn%3Aietf%3Aparams%3Aoauth%3Agrant-type%3Ajwt-bearer&client_secret=***",
		},
		{
			name:     "client_secret URL encoded, middle",
			s:        "client_secret=eyJhbGciOiJSUzI1NiJ9.4liWPGg&scope=widgets%3Aread",
			expected: "client_secret=***&scope=widgets%3Aread",
		},
		{
			name:     "client_secret URL encoded, trailing new line",
			s:        "client_secret=eyJhbGciOiJSUzI1NiJ9.4liWPGg\n",
			expected: "client_secret=***\n",
		},
		{
			name:     "Authorization",
			s:        "GET /api/v1/widgets HTTP/1.1\r\nHost: example.com\r\nAuthorization: Bearer abcdef\r\nContent-Length: 3691\r\n\r\n",
			expected: "GET /api/v1/widgets HTTP/1.1\r\nHost: example.com\r\nAuthorization: ***\r\nContent-Length: 3691\r\n\r\n",
		},
		{
			name:     "authorization, lower case",
			s:        "GET /api/v1/widgets HTTP/1.1\r\nHost: example.com\r\nauthorization: Bearer abcdef\r\nContent-Length: 3691\r\n\r\n",
			expected: "GET /api/v1/widgets HTTP/1.1\r\nHost: example.com\r\nAuthorization: ***\r\nContent-Length: 3691\r\n\r\n",
		},
		{
			name:     "Cookie",
			s:        "GET /api/v1/widgets HTTP/1.1\r\nHost: example.com\r\nCookie: session=abcdef; theme=dark\r\n\r\n",
			expected: "GET /api/v1/widgets HTTP/1.1\r\nHost: example.com\r\nCookie: ***\r\n\r\n",
		},
		{
			name:     "Set-Cookie",
			s:        "HTTP/1.1 200 OK\r\nSet-Cookie: session=abcdef; HttpOnly\r\n\r\n",
			expected: "HTTP/1.1 200 OK\r\nSet-Cookie: ***\r\n\r\n",
		},
		{
			name:     "password JSON",
			s:        `{"password": "abc"},`,
			expected: `{"password": "***"},`,
		},
		{
			name:     "password JSON, no spaces",
			s:        `{"username":"admin","password":"abc"}`,
			expected: `{"username":"admin","password": "***"}`,
		},
		{
			name:     "password JSON, escaped quote",
			s:        `{"password": "a\"bc"}`,
			expected: `{"password": "***"}`,
		},
		{
			name:     "password URL encoded",
			s:        `grant_type=password&username=admin&password=asdf$%^*(&scope=widgets%3Aread`,
			expected: `grant_type=password&username=admin&password=***&scope=widgets%3Aread`,
		},
		{
			name:     "access_token JSON",
			s:        `{"access_token": "abc", "token_type": "bearer"}`,
			expected: `{"access_token": "***", "token_type": "bearer"}`,
		},
		{
			name:     "access_token URL encoded",
			s:        `access_token=eyJhbGciOiJSUzI1NiJ9.4liWPGg&state=xyz`,
			expected: `access_token=***&state=xyz`,
		},
		{
			name:     "refresh_token JSON",
			s:        `{"refresh_token": "abc"}`,
			expected: `{"refresh_token": "***"}`,
		},
		{
			name:     "api_key JSON",
			s:        `{"api_key": "abc"}`,
			expected: `{"api_key": "***"}`,
		},
		{
			name:     "api_key URL encoded",
			s:        `GET /api/v1/feed?api_key=abcdef&limit=10`,
			expected: `GET /api/v1/feed?api_key=***&limit=10`,
		},
		{
			name:     "nothing to mask",
			s:        `{"theme": "dark", "widgets": ["feed", "search"]}`,
			expected: `{"theme": "dark", "widgets": ["feed", "search"]}`,
		},
	}
	masker := NewMasker(DefaultMasks)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, masker.Mask(tt.s))
		})
	}
}

func BenchmarkMaskerWithSecrets(b *testing.B) {
	masker := NewMasker(DefaultMasks)
	s := strings.Repeat(`{"widget": "feed", "limit": 10} `, 16) + `{"access_token": "eyJhbGciOiJSUzI1NiJ9.4liWPGg"}`
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		masker.Mask(s)
	}
}

func BenchmarkMaskerWithoutSecrets(b *testing.B) {
	masker := NewMasker(DefaultMasks)
	s := strings.Repeat(`{"widget": "feed", "limit": 10} `, 16)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		masker.Mask(s)
	}
}
