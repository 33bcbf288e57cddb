package candidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karukan-ime/karukan/dict"
	"github.com/karukan-ime/karukan/learning"
	"github.com/karukan-ime/karukan/neural"
)

func TestMergeOrdersByPriorityAndDeduplicates(t *testing.T) {
	cache := learning.New(100)
	cache.Record("かんじ", "漢字・学")

	userDict := dict.Build(map[string][]dict.Record{
		"かんじ": {{Surface: "感じ", Score: 0}},
	})
	sysDict := dict.Build(map[string][]dict.Record{
		"かんじ": {{Surface: "漢字", Score: 0}, {Surface: "幹事", Score: 1}},
	})

	list := Merge("かんじ", Sources{
		Learning:   cache,
		UserDict:   userDict,
		SystemDict: sysDict,
		ModelResults: []neural.Result{
			{Decoded: "漢字", CumulativeLogProb: -0.1}, // duplicate of system entry, the earlier model source wins
		},
	}, 10)

	require.True(t, len(list.Items) >= 4)
	assert.Equal(t, SourceLearning, list.Items[0].Source)
	assert.Equal(t, "漢字・学", list.Items[0].Surface)
	assert.Equal(t, SourceUser, list.Items[1].Source)

	seen := map[string]int{}
	for _, c := range list.Items {
		seen[c.Surface]++
	}
	for surface, count := range seen {
		assert.Equalf(t, 1, count, "surface %q appeared %d times", surface, count)
	}
}

func TestMergeTruncatesToNumCandidates(t *testing.T) {
	sysDict := dict.Build(map[string][]dict.Record{
		"あ": {{Surface: "亜", Score: 0}, {Surface: "阿", Score: 1}, {Surface: "唖", Score: 2}},
	})
	list := Merge("あ", Sources{SystemDict: sysDict}, 2)
	assert.Len(t, list.Items, 2)
}

func TestMergeFallbackAlwaysPresentWhenSourcesEmpty(t *testing.T) {
	list := Merge("てすと", Sources{}, 10)
	require.Len(t, list.Items, 2)
	assert.Equal(t, SourceFallback, list.Items[0].Source)
	assert.Equal(t, "てすと", list.Items[0].Surface)
	assert.Equal(t, SourceFallback, list.Items[1].Source)
}

func TestSuggestCapsAtThreeAndUsesPrefixMatches(t *testing.T) {
	cache := learning.New(100)
	cache.Record("わせだだいがく", "早稲田大学")
	cache.Record("わせだえき", "早稲田駅")
	cache.Record("わせだどおり", "早稲田通り")
	cache.Record("わせだまえ", "早稲田前")

	list := Suggest("わせだ", cache)
	assert.LessOrEqual(t, len(list.Items), 3)
	for _, c := range list.Items {
		assert.Equal(t, SourceLearning, c.Source)
	}
}

func TestListPaginationWrapsAtEnd(t *testing.T) {
	items := make([]Candidate, 20)
	for i := range items {
		items[i] = Candidate{Surface: string(rune('a' + i))}
	}
	list := &List{Items: items}
	list.SetCursor(19)
	list.Advance()
	assert.Equal(t, 0, list.Cursor())

	list.SetCursor(0)
	list.Retreat()
	assert.Equal(t, 19, list.Cursor())
}

func TestListPageAndSelect(t *testing.T) {
	items := make([]Candidate, 12)
	for i := range items {
		items[i] = Candidate{Surface: string(rune('a' + i))}
	}
	list := &List{Items: items}
	list.SetCursor(10)

	page, localCursor := list.Page()
	assert.Len(t, page, 3) // items 9,10,11 on the second page
	assert.Equal(t, 1, localCursor)

	c, ok := list.Select(2)
	require.True(t, ok)
	assert.Equal(t, "l", c.Surface)

	_, ok = list.Select(5)
	assert.False(t, ok)
}
