package catalog

import (
	"encoding/json"
	"testing"
)

func TestPartitionSizes(t *testing.T) {
	want := map[MainCategory]int{
		Reply:    9,
		Opener:   6,
		Polish:   8,
		RolePlay: 12,
		LifeWiki: 6,
	}
	total := 0
	for _, m := range MainCategories() {
		got := len(m.SubCategories())
		if got != want[m] {
			t.Errorf("%s has %d sub categories, want %d", m, got, want[m])
		}
		total += got
	}
	if total != 41 {
		t.Errorf("total sub categories = %d, want 41", total)
	}
}

func TestEverySubCategoryBelongsToExactlyOneMain(t *testing.T) {
	for _, sc := range SubCategoryValues() {
		owner := sc.MainCategory()
		count := 0
		for _, candidate := range owner.SubCategories() {
			if candidate == sc {
				count++
			}
		}
		if count != 1 {
			t.Errorf("%s appears %d times in %s, want 1", sc, count, owner)
		}
		for _, other := range MainCategories() {
			if other == owner {
				continue
			}
			for _, candidate := range other.SubCategories() {
				if candidate == sc {
					t.Errorf("%s also listed under %s", sc, other)
				}
			}
		}
	}
}

func TestSubCategoryIndexMatchesList(t *testing.T) {
	for _, m := range MainCategories() {
		for i, sc := range m.SubCategories() {
			if sc.Index() != i {
				t.Errorf("%s.Index() = %d, want %d", sc, sc.Index(), i)
			}
			got, ok := m.SubCategoryAt(i)
			if !ok || got != sc {
				t.Errorf("%s.SubCategoryAt(%d) = %s, %v", m, i, got, ok)
			}
		}
		if _, ok := m.SubCategoryAt(len(m.SubCategories())); ok {
			t.Errorf("%s.SubCategoryAt(len) should be out of range", m)
		}
		if _, ok := m.SubCategoryAt(-1); ok {
			t.Errorf("%s.SubCategoryAt(-1) should be out of range", m)
		}
	}
}

func TestDefaultSubCategoryIsFirst(t *testing.T) {
	tests := []struct {
		main MainCategory
		want SubCategory
	}{
		{Reply, HighEQ},
		{Opener, HumorBreaker},
		{Polish, Professional},
		{RolePlay, Lawyer},
		{LifeWiki, QuickExplain},
	}
	for _, tt := range tests {
		if got := tt.main.DefaultSubCategory(); got != tt.want {
			t.Errorf("%s.DefaultSubCategory() = %s, want %s", tt.main, got, tt.want)
		}
	}
}

func TestTableComplete(t *testing.T) {
	seen := make(map[string]bool)
	for _, sc := range SubCategoryValues() {
		if sc.Token() == "" || sc.DisplayName() == "" || sc.PromptCore() == "" {
			t.Errorf("sub category %d has empty metadata", int(sc))
		}
		if seen[sc.Token()] {
			t.Errorf("duplicate token %q", sc.Token())
		}
		seen[sc.Token()] = true
	}
	for _, m := range MainCategories() {
		if m.DisplayName() == "" || m.Icon() == "" || m.Description() == "" {
			t.Errorf("main category %s has empty metadata", m)
		}
	}
}

func TestTokensRoundTrip(t *testing.T) {
	for _, sc := range SubCategoryValues() {
		got, err := ParseSubCategory(sc.Token())
		if err != nil || got != sc {
			t.Errorf("ParseSubCategory(%q) = %v, %v", sc.Token(), got, err)
		}
	}
	for _, m := range MainCategories() {
		got, err := ParseMainCategory(m.Token())
		if err != nil || got != m {
			t.Errorf("ParseMainCategory(%q) = %v, %v", m.Token(), got, err)
		}
	}
	if _, err := ParseSubCategory("nope"); err == nil {
		t.Error("expected error for unknown sub category token")
	}
}

func TestDefaultStyleParams(t *testing.T) {
	flirty := Flirty.DefaultStyleParams()
	if flirty != (StyleParams{Ambiguity: 5, EmojiDensity: EmojiHigh, Length: LengthShort}) {
		t.Errorf("Flirty default = %+v", flirty)
	}
	lawyer := Lawyer.DefaultStyleParams()
	if lawyer != (StyleParams{Ambiguity: 0, EmojiDensity: EmojiNone, Length: LengthLong}) {
		t.Errorf("Lawyer default = %+v", lawyer)
	}
}

func TestStyleParamsClamp(t *testing.T) {
	if got := NewStyleParams(9, EmojiLow, LengthShort).Ambiguity; got != 5 {
		t.Errorf("ambiguity = %d, want 5", got)
	}
	if got := NewStyleParams(-3, EmojiLow, LengthShort).Ambiguity; got != 0 {
		t.Errorf("ambiguity = %d, want 0", got)
	}

	var p StyleParams
	if err := json.Unmarshal([]byte(`{"ambiguity":12,"emojiDensity":"low","length":"long"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Ambiguity != 5 || p.EmojiDensity != EmojiLow || p.Length != LengthLong {
		t.Errorf("decoded = %+v", p)
	}
}

func TestStyleEnumsRejectUnknown(t *testing.T) {
	var p StyleParams
	if err := json.Unmarshal([]byte(`{"ambiguity":1,"emojiDensity":"tons","length":"long"}`), &p); err == nil {
		t.Error("expected error for unknown emoji density")
	}
	var c SlotConfigV2
	if err := json.Unmarshal([]byte(`{"wordCount":"huge"}`), &c); err == nil {
		t.Error("expected error for unknown word count")
	}
}

func TestWireValues(t *testing.T) {
	if got := EmojiMedium.PromptValue(); got != "适中" {
		t.Errorf("EmojiMedium.PromptValue() = %q", got)
	}
	if got := LengthLong.PromptValue(); got != "长" {
		t.Errorf("LengthLong.PromptValue() = %q", got)
	}
	cfg := DefaultSlotConfigV2()
	if cfg.WordCount.Value() != "中" || cfg.AggressionLevel.Value() != "中" || cfg.AdultStyle.Value() != "无" {
		t.Errorf("default config values = %q %q %q", cfg.WordCount.Value(), cfg.AggressionLevel.Value(), cfg.AdultStyle.Value())
	}
	if w, err := ParseWordCount("少"); err != nil || w != WordCountFew {
		t.Errorf("ParseWordCount(少) = %v, %v", w, err)
	}
	if w, err := ParseWordCount("长"); err != nil || w != WordCountMany {
		t.Errorf("ParseWordCount(长) = %v, %v", w, err)
	}
}
