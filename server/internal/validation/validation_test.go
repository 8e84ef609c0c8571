package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModelName(t *testing.T) {
	tcs := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:  "simple",
			input: "tiny-gpt2",
		},
		{
			name:  "namespaced",
			input: "zoo/tiny-gpt2_v1.0",
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "space",
			input:   "tiny gpt2",
			wantErr: true,
		},
		{
			name:    "traversal",
			input:   "../etc/passwd",
			wantErr: true,
		},
		{
			name:    "absolute",
			input:   "/etc/passwd",
			wantErr: true,
		},
		{
			name:    "too long",
			input:   strings.Repeat("a", 257),
			wantErr: true,
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := ModelName(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestInputText(t *testing.T) {
	got, err := InputText("  the   quick\tbrown\nfox  ")
	assert.NoError(t, err)
	assert.Equal(t, "the quick brown fox", got)

	_, err = InputText("   ")
	assert.Error(t, err)

	_, err = InputText(strings.Repeat("a", 2001))
	assert.Error(t, err)
}

func TestInputTextDangerousPatterns(t *testing.T) {
	for _, text := range []string{
		"'; DROP TABLE users; --",
		`" OR 1=1 --`,
		"hello <script>alert(1)</script>",
		"click javascript:alert(1)",
		"template ${injection}",
	} {
		_, err := InputText(text)
		assert.Error(t, err, "expected rejection for %q", text)
	}
}

func TestViewType(t *testing.T) {
	assert.NoError(t, ViewType("head"))
	assert.NoError(t, ViewType("model"))
	assert.Error(t, ViewType(""))
	assert.Error(t, ViewType("layer"))
}
