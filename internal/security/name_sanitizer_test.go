package security

import (
	"strings"
	"testing"
)

func TestNameSanitizer_PlainText_Unchanged(t *testing.T) {
	s := NewNameSanitizer()

	if got := s.Sanitize("Taro Yamada"); got != "Taro Yamada" {
		t.Errorf("Sanitize = %q, want %q", got, "Taro Yamada")
	}
}

func TestNameSanitizer_StripsHTMLTags(t *testing.T) {
	s := NewNameSanitizer()

	tests := []struct {
		input string
		want  string
	}{
		{`<script>alert(1)</script>Taro`, "Taro"},
		{`<b>Taro</b>`, "Taro"},
		{`Taro<img src=x onerror=alert(1)>`, "Taro"},
		{`<a href="https://evil.example">Taro</a>`, "Taro"},
	}

	for _, tt := range tests {
		if got := s.Sanitize(tt.input); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNameSanitizer_UnescapesEntities(t *testing.T) {
	s := NewNameSanitizer()

	// サニタイズ後のエンティティは表示用テキストに戻す
	if got := s.Sanitize("Tom & Jerry"); got != "Tom & Jerry" {
		t.Errorf("Sanitize = %q, want %q", got, "Tom & Jerry")
	}
}

func TestNameSanitizer_TrimsWhitespace(t *testing.T) {
	s := NewNameSanitizer()

	if got := s.Sanitize("  Taro  "); got != "Taro" {
		t.Errorf("Sanitize = %q, want %q", got, "Taro")
	}
}

func TestNameSanitizer_EmptyInput_ReturnsEmpty(t *testing.T) {
	s := NewNameSanitizer()

	if got := s.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want empty", got)
	}
}

func TestNameSanitizer_TruncatesLongNames(t *testing.T) {
	s := NewNameSanitizer()

	long := strings.Repeat("あ", 200)
	got := s.Sanitize(long)
	if len([]rune(got)) != 128 {
		t.Errorf("rune length = %d, want 128", len([]rune(got)))
	}
}

func TestNameSanitizer_Idempotent(t *testing.T) {
	s := NewNameSanitizer()

	input := `<b>Taro</b> & Jiro`
	once := s.Sanitize(input)
	twice := s.Sanitize(once)
	if once != twice {
		t.Errorf("Sanitize is not idempotent: %q -> %q", once, twice)
	}
}

func TestNameSanitizer_PreservesUnicode(t *testing.T) {
	s := NewNameSanitizer()

	if got := s.Sanitize("山田 太郎"); got != "山田 太郎" {
		t.Errorf("Sanitize = %q, want %q", got, "山田 太郎")
	}
}
