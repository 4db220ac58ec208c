package fallback

import (
	"testing"

	"github.com/kalambet/forlove/internal/catalog"
)

func TestAlwaysThreeNonEmpty(t *testing.T) {
	contents := []string{"", "  ", "在吗", "最近怎么样", "周末出来吃饭吗", "随便说点什么", "这句话帮我改改"}
	for _, m := range catalog.MainCategories() {
		for _, content := range contents {
			got := Generate(m, m.DefaultSubCategory().DisplayName(), content)
			if len(got) != Count {
				t.Fatalf("%s/%q: len = %d, want %d", m, content, len(got), Count)
			}
			for i, c := range got {
				if c.Text == "" {
					t.Errorf("%s/%q: candidate %d is empty", m, content, i)
				}
				if !c.IsOfflineTemplate {
					t.Errorf("%s/%q: candidate %d not marked offline", m, content, i)
				}
			}
		}
	}
}

func TestReplyHighEQGreeting(t *testing.T) {
	tag := catalog.HighEQ.DisplayName()
	got := Generate(catalog.Reply, tag, "在吗")
	want := []string{"在呢在呢～", "嗨！在的", "来啦来啦！怎么了"}
	for i, c := range got {
		if c.Text != want[i] {
			t.Errorf("candidate %d = %q, want %q", i, c.Text, want[i])
		}
		if !c.HasTag(tag) {
			t.Errorf("candidate %d tags = %v, want to include %q", i, c.Tags, tag)
		}
	}
}

func TestReplyKeywordRules(t *testing.T) {
	tests := []struct {
		message string
		first   string
	}{
		{"", "我在想怎么开个好头呢..."},
		{"你好呀", "在呢在呢～"},
		{"最近忙吗", "还不错呀，就是有点忙"},
		{"一起吃饭？", "好呀！什么时候"},
		{"今天下雨了", "好滴，我再想想怎么回你更好"},
	}
	for _, tt := range tests {
		if got := Texts(catalog.Reply, tt.message)[0]; got != tt.first {
			t.Errorf("Texts(reply, %q)[0] = %q, want %q", tt.message, got, tt.first)
		}
	}
}

func TestPolishUsesContent(t *testing.T) {
	got := Texts(catalog.Polish, "明天见")
	want := [Count]string{"明天见～", "其实呢，明天见", "明天见 😊"}
	if got != want {
		t.Errorf("Texts(polish) = %v, want %v", got, want)
	}
}

func TestDeterministic(t *testing.T) {
	for _, m := range catalog.MainCategories() {
		a := Texts(m, "最近怎么样")
		b := Texts(m, "最近怎么样")
		if a != b {
			t.Errorf("%s: texts differ between calls: %v vs %v", m, a, b)
		}
	}
}
