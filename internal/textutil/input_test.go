package textutil_test

import (
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"

	"github.com/wesm/mailquery/internal/testutil"
	"github.com/wesm/mailquery/internal/textutil"
)

func TestEnsureUTF8_AlreadyValid(t *testing.T) {
	for _, s := range []string{"", "from:alice", "你好世界", "Привет мир", "Hello 👋 World"} {
		if got := textutil.EnsureUTF8(s); got != s {
			t.Errorf("EnsureUTF8(%q) = %q", s, got)
		}
	}
}

func TestEnsureUTF8_Western(t *testing.T) {
	enc := testutil.EncodedSamples()
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"smart single quote", enc.Win1252_SmartQuoteRight, "Rand’s Opponent"},
		{"en dash", enc.Win1252_EnDash, "2020 – 2024"},
		{"euro sign", enc.Win1252_Euro, "Price: €100"},
		{"u with umlaut", enc.Latin1_UUmlaut, "München"},
		{"n with tilde", enc.Latin1_NTilde, "España"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := textutil.EnsureUTF8(string(tt.input))
			if result != tt.expected {
				t.Errorf("got %q, want %q", result, tt.expected)
			}
			testutil.AssertValidUTF8(t, result)
		})
	}
}

func TestEnsureUTF8_AsianEncodings(t *testing.T) {
	// chardet heuristics vary between versions, so only a clean decode is
	// asserted here.
	enc := testutil.EncodedSamples()
	tests := []struct {
		name  string
		input []byte
	}{
		{"Shift-JIS Japanese", enc.ShiftJIS_Long},
		{"GBK Simplified Chinese", enc.GBK_Long},
		{"EUC-KR Korean", enc.EUCKR_Long},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := textutil.EnsureUTF8(string(tt.input))
			testutil.AssertValidUTF8(t, result)
			if result == "" || strings.ContainsRune(result, '�') {
				t.Errorf("decode failed: %q", result)
			}
		})
	}
}

func TestEnsureUTF8_QueryText(t *testing.T) {
	result := textutil.EnsureUTF8("emails from Fran\xe7ois about \x93budget\x94")
	testutil.AssertValidUTF8(t, result)
	testutil.AssertContainsAll(t, result, []string{"emails from Fran", "about"})
}

func TestSanitizeUTF8(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"valid UTF-8 unchanged", "Hello, 世界!", "Hello, 世界!"},
		{"single invalid byte", "Hello\x80World", "Hello�World"},
		{"multiple invalid bytes", "Test\x80\x81String", "Test��String"},
		{"truncated sequence", "Hello\xc3", "Hello�"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := textutil.SanitizeUTF8(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeUTF8(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestCleanInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "emails from bob", "emails from bob"},
		{"decomposed accent", "Jose\u0301", "Jos\u00e9"},
		{"control characters", "from:bob\x00\x1bin:inbox", "from:bob  in:inbox"},
		{"line breaks kept", "Query:\r\nfrom:bob\tis:unread", "Query:\r\nfrom:bob\tis:unread"},
		{"latin-1 repaired", "Gar\xe7on", "Garçon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := textutil.CleanInput(tt.input); got != tt.expected {
				t.Errorf("CleanInput(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestEncodingByName(t *testing.T) {
	if textutil.EncodingByName("Windows-1252") != charmap.Windows1252 {
		t.Error("Windows-1252 not mapped")
	}
	if textutil.EncodingByName(" Shift_JIS ") != japanese.ShiftJIS {
		t.Error("Shift_JIS not mapped")
	}
	if textutil.EncodingByName("UTF-8") != nil || textutil.EncodingByName("") != nil {
		t.Error("unknown charset should map to nil")
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		input    string
		maxRunes int
		expected string
	}{
		{"Hello", 10, "Hello"},
		{"Hello", 5, "Hello"},
		{"Hello World", 8, "Hello..."},
		{"Hello", 3, "Hel"},
		{"Hello", 0, ""},
		{"你好世界！", 4, "你..."},
	}
	for _, tt := range tests {
		if got := textutil.TruncateRunes(tt.input, tt.maxRunes); got != tt.expected {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.input, tt.maxRunes, got, tt.expected)
		}
	}
}
