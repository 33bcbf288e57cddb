package romaji

// rule is one entry of the romaji→hiragana table: a Latin-prefix that, once
// matched exactly, emits hiragana output and seeds the next pending buffer
// with carryover (§4.B). The table below is built programmatically — real
// Google-IME-compatible romaji tables are large, regular grids (row ×
// vowel), so generating them from the grid plus a short exception list is
// both shorter and less error-prone than transcribing 200+ literals by hand.
type rule struct {
	latin     string
	hiragana  string
	carryover string
}

// vowelKana is the あ/い/う/え/お column, indexed 0..4 for a/i/u/e/o.
var vowelKana = [5]string{"あ", "い", "う", "え", "お"}
var vowelLetter = [5]byte{'a', 'i', 'u', 'e', 'o'}

// row describes one consonant row of the gojūon grid: the Latin consonant
// prefix and its five kana (a,i,u,e,o), with "" marking a cell that has no
// direct monograph (filled by the exceptions table instead).
type row struct {
	consonant string
	kana      [5]string
}

var plainRows = []row{
	{"k", [5]string{"か", "き", "く", "け", "こ"}},
	{"s", [5]string{"さ", "", "す", "せ", "そ"}}, // shi handled as exception
	{"t", [5]string{"た", "", "", "て", "と"}},   // chi/tsu exceptions
	{"n", [5]string{"な", "に", "ぬ", "ね", "の"}},
	{"h", [5]string{"は", "ひ", "", "へ", "ほ"}}, // fu exception
	{"m", [5]string{"ま", "み", "む", "め", "も"}},
	{"y", [5]string{"や", "", "ゆ", "", "よ"}},
	{"r", [5]string{"ら", "り", "る", "れ", "ろ"}},
	{"w", [5]string{"わ", "", "", "", "を"}},
	{"g", [5]string{"が", "ぎ", "ぐ", "げ", "ご"}},
	{"z", [5]string{"ざ", "", "ず", "ぜ", "ぞ"}}, // ji exception (zi)
	{"d", [5]string{"だ", "", "", "で", "ど"}},   // ji/zu exceptions (di/du)
	{"b", [5]string{"ば", "び", "ぶ", "べ", "ぼ"}},
	{"p", [5]string{"ぱ", "ぴ", "ぷ", "ぺ", "ぽ"}},
}

// exceptions are monographs that don't fit the regular consonant+vowel
// pattern (irregular romanization) or have more than one accepted spelling.
var exceptions = []rule{
	{"shi", "し", ""}, {"si", "し", ""},
	{"chi", "ち", ""}, {"ti", "ち", ""},
	{"tsu", "つ", ""}, {"tu", "つ", ""},
	{"fu", "ふ", ""}, {"hu", "ふ", ""},
	{"ji", "じ", ""}, {"zi", "じ", ""}, {"di", "ぢ", ""},
	{"zu", "ず", ""}, {"du", "づ", ""},
	{"wi", "うぃ", ""}, {"we", "うぇ", ""}, {"wu", "う", ""},
	{"ye", "いぇ", ""},
	{"va", "ゔぁ", ""}, {"vi", "ゔぃ", ""}, {"vu", "ゔ", ""}, {"ve", "ゔぇ", ""}, {"vo", "ゔぉ", ""},
	{"tsa", "つぁ", ""}, {"tsi", "つぃ", ""}, {"tse", "つぇ", ""}, {"tso", "つぉ", ""},
	{"she", "しぇ", ""}, {"je", "じぇ", ""}, {"che", "ちぇ", ""},
	{"thi", "てぃ", ""}, {"dhi", "でぃ", ""}, {"twu", "とぅ", ""}, {"dwu", "どぅ", ""},
	{"fa", "ふぁ", ""}, {"fi", "ふぃ", ""}, {"fe", "ふぇ", ""}, {"fo", "ふぉ", ""},
	{"-", "ー", ""},
}

// yCombos are the small-ya/yu/yo digraphs (きゃ行): consonant + "y" + vowel,
// one kana syllable, built from a base mora plus the usual alternate
// spellings (sha/sya, cha/tya, ja/jya/zya...).
var yCombos = []struct {
	latinBases []string
	kanaBase   string // full-size kana the small-y marker attaches to, e.g. き
}{
	{[]string{"ky"}, "き"},
	{[]string{"sh", "sy"}, "し"},
	{[]string{"ch", "ty", "cy"}, "ち"},
	{[]string{"ny"}, "に"},
	{[]string{"hy"}, "ひ"},
	{[]string{"my"}, "み"},
	{[]string{"ry"}, "り"},
	{[]string{"gy"}, "ぎ"},
	{[]string{"j", "jy", "zy"}, "じ"},
	{[]string{"by"}, "び"},
	{[]string{"py"}, "ぴ"},
	{[]string{"dy"}, "ぢ"},
	{[]string{"fy"}, "ふ"},
}

var smallY = [3]string{"ゃ", "ゅ", "ょ"} // a, u, o
var yVowelLetter = [3]byte{'a', 'u', 'o'}

// sokuonConsonants are the consonants whose doubling marks a geminate
// (doubled) consonant: "tt" -> っ, carryover "t" (§4.B).
var sokuonConsonants = "kstpgzdbhmrfcjvy"

// nRules are the literal "ん" spellings that aren't produced by the
// lookahead special case in the FSM (§4.B): "nn" and "n'" always mean ん
// regardless of what follows.
var nRules = []rule{
	{"nn", "ん", ""},
	{"n'", "ん", ""},
}

// smallKanaPrefixed are the Google-IME "x"/"l" prefix conventions for typing
// a small kana directly (xa -> ぁ, xtsu -> っ), an alternate input path to
// the same sokuon/small-y kana produced by doubling or y-combos above.
var smallKanaPrefixed = []rule{
	{"xa", "ぁ", ""}, {"xi", "ぃ", ""}, {"xu", "ぅ", ""}, {"xe", "ぇ", ""}, {"xo", "ぉ", ""},
	{"la", "ぁ", ""}, {"li", "ぃ", ""}, {"lu", "ぅ", ""}, {"le", "ぇ", ""}, {"lo", "ぉ", ""},
	{"xya", "ゃ", ""}, {"xyu", "ゅ", ""}, {"xyo", "ょ", ""},
	{"lya", "ゃ", ""}, {"lyu", "ゅ", ""}, {"lyo", "ょ", ""},
	{"xtsu", "っ", ""}, {"ltsu", "っ", ""}, {"xtu", "っ", ""}, {"ltu", "っ", ""},
	{"xwa", "ゎ", ""},
}

// labialized rows (くゎ行) for the borrowed-word くぁ/ぐぁ family.
var labialized = []rule{
	{"kwa", "くぁ", ""}, {"kwi", "くぃ", ""}, {"kwe", "くぇ", ""}, {"kwo", "くぉ", ""},
	{"gwa", "ぐぁ", ""}, {"gwi", "ぐぃ", ""}, {"gwe", "ぐぇ", ""}, {"gwo", "ぐぉ", ""},
	{"qwa", "くぁ", ""}, {"qa", "くぁ", ""}, {"qi", "くぃ", ""}, {"qe", "くぇ", ""}, {"qo", "くぉ", ""},
}

func buildRuleTable() []rule {
	var rules []rule

	for _, r := range plainRows {
		for i, k := range r.kana {
			if k == "" {
				continue
			}
			rules = append(rules, rule{latin: r.consonant + string(vowelLetter[i]), hiragana: k})
		}
	}
	for i, k := range vowelKana {
		rules = append(rules, rule{latin: string(vowelLetter[i]), hiragana: k})
	}
	rules = append(rules, exceptions...)
	rules = append(rules, nRules...)
	rules = append(rules, smallKanaPrefixed...)
	rules = append(rules, labialized...)

	for _, yc := range yCombos {
		for _, base := range yc.latinBases {
			for i, sy := range smallY {
				rules = append(rules, rule{latin: base + string(yVowelLetter[i]), hiragana: yc.kanaBase + sy})
			}
		}
	}

	for i := 0; i < len(sokuonConsonants); i++ {
		c := sokuonConsonants[i]
		rules = append(rules, rule{latin: string([]byte{c, c}), hiragana: "っ", carryover: string(c)})
	}

	return rules
}
