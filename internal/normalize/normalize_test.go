package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "uuid",
			input:    "session=3f2b8c1a-9d4e-4f6a-b1c2-0123456789ab;",
			expected: "session=SESSIONID;",
		},
		{
			name:     "bare 32 hex",
			input:    "token 0123456789abcdef0123456789abcdef end",
			expected: "token SESSIONID end",
		},
		{
			name:     "iso timestamp with fraction",
			input:    `"updated":"2024-05-01T12:30:45.123Z"`,
			expected: `"updated":"TIMESTAMP"`,
		},
		{
			name:     "millisecond epoch with underscore",
			input:    "bundle_1714567890123.js",
			expected: "bundle_TIMESTAMP.js",
		},
		{
			name:     "epoch seconds",
			input:    "ts 1714567890 done",
			expected: "ts TIMESTAMP done",
		},
		{
			name:     "nonce and integrity",
			input:    `<script nonce="abc+/=" integrity="sha384-xyz">`,
			expected: `<script nonce="NONCE" integrity="INTEGRITY">`,
		},
		{
			name:     "no matches",
			input:    "Software Engineering Intern\nHardware Intern",
			expected: "Software Engineering Intern\nHardware Intern",
		},
		{
			name:     "nine digits are kept",
			input:    "id 123456789",
			expected: "id 123456789",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Text(tt.input))
		})
	}
}

func TestTextIdempotent(t *testing.T) {
	samples := []string{
		"",
		"Job A\nJob B",
		"3f2b8c1a-9d4e-4f6a-b1c2-0123456789ab 0123456789abcdef0123456789abcdef0123456789abcdef",
		"2024-05-01T12:30:45.123456 _1714567890123 1714567890 12345678901",
		`nonce="x" integrity="y" nonce="NONCE"`,
		"deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdead",
		"2024-05-01T12:30:45.0123456789abcdef0123456789abcdef0Z",
	}
	for _, s := range samples {
		once := Text(s)
		assert.Equal(t, once, Text(once), "input %q", s)
	}
}

func TestItems(t *testing.T) {
	got := Items([]string{"  Intern,   Compiler Team ", "", "Intern, Compiler Team", "Café Intern"})
	assert.Equal(t, []string{"Intern, Compiler Team", "Café Intern"}, got)
}

func TestFold(t *testing.T) {
	assert.Equal(t, "thuc tap sinh golang", Fold("Thực Tập Sinh Golang"))
}
