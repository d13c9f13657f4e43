package reply

import (
	"testing"

	"github.com/onnwee/livereply/persona"
)

func TestIsMeaninglessDisabledNeverFilters(t *testing.T) {
	p := persona.DefaultPersona()
	p.FilteringEnabled = false
	for _, text := range []string{"", "6", "666666", "哈哈", "。。。"} {
		if IsMeaningless(text, p) {
			t.Errorf("filtering disabled but %q was filtered", text)
		}
	}
}

func TestIsMeaninglessDefaultPersona(t *testing.T) {
	p := persona.DefaultPersona()
	cases := []struct {
		text string
		want bool
	}{
		{"", true},
		{"哈", true},
		{"你好", false},
		{"666666", true},
		{"今天天气不错啊", false},
		{"哈哈", true},
		{"  哈哈  ", true},
		{"哈哈哈哈", true},
		{"主播来了吗", false},
		{"。。。", true},
		{"这个多少钱？", false},
		{"扣1扣1", true},
		{"请问这件衣服有什么颜色", false},
	}
	for _, tc := range cases {
		if got := IsMeaningless(tc.text, p); got != tc.want {
			t.Errorf("IsMeaningless(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestIsMeaninglessShortTextAlwaysFiltered(t *testing.T) {
	p := persona.Persona{FilteringEnabled: true, MinMessageLength: 5}
	for _, text := range []string{"a", "ab", "abc", "今天好"} {
		if !IsMeaningless(text, p) {
			t.Errorf("%q is shorter than 5 and should be filtered", text)
		}
	}
}

func TestIsMeaninglessCaseInsensitiveRatio(t *testing.T) {
	p := persona.Persona{FilteringEnabled: true, MeaninglessPatterns: []string{"ok"}}
	if !IsMeaningless("OK呀", p) {
		t.Errorf("pattern covering half the message should filter regardless of case")
	}
	if IsMeaningless("OK我想问一下", p) {
		t.Errorf("pattern covering less than half should not filter")
	}
}

func TestIsMeaninglessInvalidPatternSkipped(t *testing.T) {
	p := persona.Persona{FilteringEnabled: true, MeaninglessPatterns: []string{"(", "", "哈哈"}}
	if IsMeaningless("(abc", p) {
		t.Errorf("invalid pattern should not filter")
	}
	if !IsMeaningless("哈哈", p) {
		t.Errorf("patterns after an invalid one should still apply")
	}
}

func TestIsMeaninglessTwoCharactersNotRepeatSpam(t *testing.T) {
	p := persona.Persona{FilteringEnabled: true}
	if IsMeaningless("……", p) {
		t.Errorf("two-character message is not longer than 2 and should pass")
	}
	if !IsMeaningless("AaAa", p) {
		t.Errorf("case-folded repeat should be filtered")
	}
}
