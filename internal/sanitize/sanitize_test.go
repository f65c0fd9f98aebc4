package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text", "once upon a time", "once upon a time"},
		{"trim", "  hello  ", "hello"},
		{"strip script", `<script>alert(1)</script>hi`, "hi"},
		{"strip tags keep text", "<b>bold</b> move", "bold move"},
		{"empty", "", ""},
		{"ampersand kept", "Tom & Jerry", "Tom & Jerry"},
		{"less than kept", "1 < 2", "1 < 2"},
		{"encoded script stripped", "&lt;script&gt;alert(1)&lt;/script&gt;ok", "ok"},
		{"double encoded tag stripped", "&amp;lt;b&amp;gt;x", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Clean(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "你好", Truncate("你好世界", 2))
	assert.Equal(t, "", Truncate("abc", 0))
}

func TestText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ab", Text("<i>abcd</i>", 2))
	// 按原始字符计数，不会截断在实体中间
	assert.Equal(t, "Tom & ", Text("Tom & Jerry", 6))
}

func TestNickname(t *testing.T) {
	t.Parallel()

	name, err := Nickname("  Alice   Smith ")
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", name)

	name, err = Nickname("<b>Bob</b>")
	require.NoError(t, err)
	assert.Equal(t, "Bob", name)

	name, err = Nickname("Tom & Jerry")
	require.NoError(t, err)
	assert.Equal(t, "Tom & Jerry", name)

	_, err = Nickname("   ")
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Nickname("<script></script>")
	assert.ErrorIs(t, err, ErrEmpty)
}
