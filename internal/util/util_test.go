package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHost(t *testing.T) {
	cases := map[string]string{
		"":                                   "",
		"acme":                               "acme",
		"ACME.Portal.io":                     "acme.portal.io",
		"https://www.acme.portal.io:8443/x":  "acme.portal.io",
		"http://acme.portal.io./?q=1":        "acme.portal.io",
		"acme.portal.io:80":                  "acme.portal.io",
		"https://user@acme.portal.io":        "acme.portal.io",
		"[::1]:8080":                         "::1",
		"  Admin.Example.COM  ":              "admin.example.com",
		"http://localhost:3000/dashboard":    "localhost",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeHost(in), "input %q", in)
	}
}

func TestFirstLabel(t *testing.T) {
	assert.Equal(t, "acme", FirstLabel("acme.portal.example.com"))
	assert.Equal(t, "", FirstLabel("localhost"))
	assert.Equal(t, "", FirstLabel("127.0.0.1"))
	assert.Equal(t, "", FirstLabel(""))
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, IsLoopback("localhost"))
	assert.True(t, IsLoopback("127.0.0.1"))
	assert.True(t, IsLoopback("::1"))
	assert.False(t, IsLoopback("acme.io"))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "j…@e….com", MaskEmail("John@Example.com"))
	assert.Equal(t, "", MaskEmail(""))
	assert.Equal(t, "***", MaskEmail("abc"))
	assert.Equal(t, "a…r", MaskEmail("administrator"))
}
