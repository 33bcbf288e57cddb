package kana

import "testing"

func TestToKatakana(t *testing.T) {
	cases := []struct{ in, want string }{
		{"こんにちは", "コンニチハ"},
		{"わせだ", "ワセダ"},
		{"ABC123", "ABC123"},
		{"", ""},
	}
	for _, c := range cases {
		if got := ToKatakana(c.in); got != c.want {
			t.Errorf("ToKatakana(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestToHiragana(t *testing.T) {
	cases := []struct{ in, want string }{
		{"コンニチハ", "こんにちは"},
		{"ワセダ", "わせだ"},
		{"歯医者", "歯医者"},
	}
	for _, c := range cases {
		if got := ToHiragana(c.in); got != c.want {
			t.Errorf("ToHiragana(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	s := "きょうはいいてんきですね"
	if got := ToHiragana(ToKatakana(s)); got != s {
		t.Errorf("round trip changed %q to %q", s, got)
	}
}

func TestIsKanji(t *testing.T) {
	if !IsKanji('漢') {
		t.Error("漢 should be kanji")
	}
	if IsKanji('あ') {
		t.Error("あ should not be kanji")
	}
}

func TestContainsKanji(t *testing.T) {
	if !ContainsKanji("早稲田大学") {
		t.Error("expected kanji")
	}
	if ContainsKanji("わせだ") {
		t.Error("did not expect kanji")
	}
}
