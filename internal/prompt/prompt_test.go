package prompt

import (
	"strings"
	"testing"

	"github.com/kalambet/forlove/internal/catalog"
	"github.com/kalambet/forlove/internal/generator"
	"github.com/kalambet/forlove/internal/identity"
	"github.com/kalambet/forlove/internal/slots"
)

func request(main catalog.MainCategory, content string) generator.Request {
	slot := slots.Default().AllSlots[main]
	id := identity.Default()
	id.DisplayName = "小林"
	id.TabooList = []string{"前任"}
	return generator.NewRequest(slot, content, id, "聊过周末")
}

func TestUserPrompt(t *testing.T) {
	tests := []struct {
		main catalog.MainCategory
		want string
	}{
		{catalog.Reply, "对方刚发来一条消息：「在吗」\n\n请按照【高情商】的风格生成 3 条回复。上下文信息：聊过周末"},
		{catalog.Opener, "我想找对方开启对话，请按照【" + catalog.Opener.DefaultSubCategory().DisplayName() + "】的方式生成 3 条开场白。"},
		{catalog.Polish, "我想发这句话：「在吗」\n\n请帮我按照【" + catalog.Polish.DefaultSubCategory().DisplayName() + "】进行润色。"},
	}
	for _, tt := range tests {
		if got := UserPrompt(request(tt.main, "在吗")); got != tt.want {
			t.Errorf("UserPrompt(%s) = %q, want %q", tt.main, got, tt.want)
		}
	}
}

func TestUserPrompt_RolePlayAndWiki(t *testing.T) {
	rp := UserPrompt(request(catalog.RolePlay, "要不要辞职"))
	if !strings.Contains(rp, "的角度回答这个问题：「要不要辞职」") {
		t.Errorf("role-play prompt = %q", rp)
	}
	wiki := UserPrompt(request(catalog.LifeWiki, "牛油果怎么挑"))
	if !strings.HasPrefix(wiki, "关于「牛油果怎么挑」") {
		t.Errorf("life-wiki prompt = %q", wiki)
	}
}

func TestSystemPrompt_Sections(t *testing.T) {
	sys := SystemPrompt(request(catalog.Reply, "在吗"))
	for _, want := range []string{
		"## 用户背景",
		"- 用户称呼：小林",
		"- 用户身份：学生",
		"- 严禁提及：前任",
		"## 铁律",
		"你现在是一个社交回复专家",
		"风格要求【高情商】",
		"- 字数控制：适中篇幅，像正常人说话",
		"- 成人风格：标准社交风格，不涉及任何成人或撩拨暗示",
		`"candidates"`,
	} {
		if !strings.Contains(sys, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestSystemPrompt_MismatchedSubCategoryUsesDefault(t *testing.T) {
	req := request(catalog.Reply, "x")
	req.SubCategory = catalog.Lawyer
	if sys := SystemPrompt(req); !strings.Contains(sys, "风格要求【高情商】") {
		t.Error("mismatched sub-category not replaced by the main category default")
	}
}

func TestDescriptions(t *testing.T) {
	if got := wordCountDescription("短"); got != "简短精炼，不超过 30 字" {
		t.Errorf("wordCountDescription(短) = %q", got)
	}
	if got := wordCountDescription("多"); got != "详细充分，可以展开描述" {
		t.Errorf("wordCountDescription(多) = %q", got)
	}
	if got := aggressionDescription("高"); got != "大胆直接，敢于打破常规，极具冲击力" {
		t.Errorf("aggressionDescription(高) = %q", got)
	}
}

func TestBuild(t *testing.T) {
	cr := Build(request(catalog.Reply, "在吗"), Options{Model: "m", Temperature: 0.7, MaxTokens: 500})
	if cr.Model != "m" || cr.MaxTokens != 500 || cr.Temperature != 0.7 {
		t.Errorf("Build = %+v", cr)
	}
	if len(cr.Messages) != 2 || cr.Messages[0].Role != "system" || cr.Messages[1].Role != "user" {
		t.Errorf("messages = %+v", cr.Messages)
	}
	if cr.ResponseFormat == nil || cr.ResponseFormat.Type != "json_object" {
		t.Errorf("ResponseFormat = %+v", cr.ResponseFormat)
	}
}

func TestParseCandidates(t *testing.T) {
	got := ParseCandidates(`{"candidates":[{"text":"A","preview":"a"},{"text":"B"}]}`)
	if len(got) != 2 || got[0].Text != "A" || got[0].Preview != "a" {
		t.Errorf("ParseCandidates(json) = %+v", got)
	}

	long := strings.Repeat("好", 40)
	got = ParseCandidates("  " + long + "\n")
	if len(got) != 1 || got[0].Text != long {
		t.Fatalf("ParseCandidates(text) = %+v", got)
	}
	if n := len([]rune(got[0].Preview)); n != 30 {
		t.Errorf("preview runes = %d, want 30", n)
	}

	if got := ParseCandidates("   "); got != nil {
		t.Errorf("ParseCandidates(blank) = %+v, want nil", got)
	}
}
