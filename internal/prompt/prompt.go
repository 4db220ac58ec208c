// Package prompt turns a generation request into the chat messages sent to
// the upstream model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/kalambet/forlove/internal/catalog"
	"github.com/kalambet/forlove/internal/generator"
	"github.com/kalambet/forlove/internal/proxy"
)

var mainTasks = map[catalog.MainCategory]string{
	catalog.Reply:    "你现在是一个社交回复专家，帮助用户针对对方发来的消息生成高情商回复。",
	catalog.Opener:   "你现在是一个社交破冰专家，帮助用户主动发起有吸引力的开场对话。",
	catalog.Polish:   "你现在是一个文字润色专家，帮助用户把表达优化得更加得体有情商。",
	catalog.RolePlay: "你现在是一个角色扮演专家，从特定专业身份角度给出回答。",
	catalog.LifeWiki: "你现在是一个生活百科专家，解答各类知识问题并提供实用建议。",
}

const rules = `## 铁律
1. 严禁复读：不要回复“嗯嗯”、“然后呢”、“有意思”、“继续说”这类没有信息量的话。
2. 强制输出：按照【%s】的风格给出有实质内容、有情绪色彩的回复。
3. 严禁专家感：不要说“从XX角度看”、“作为XX”、“我建议”，你就是那个真实的人。
4. 严禁 AI 感：输出要像真人在聊天软件里的即时反应。
5. 纯文字：只返回会说出口的那句话本身，不要加引号。`

const outputFormat = `## 输出格式
必须返回严格的 JSON：
{
  "candidates": [
    {"text": "回复内容1", "preview": "预览1"},
    {"text": "回复内容2", "preview": "预览2"},
    {"text": "回复内容3", "preview": "预览3"}
  ]
}`

// Options are the upstream completion parameters.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Build returns the chat request for req.
func Build(req generator.Request, opts Options) proxy.ChatRequest {
	return proxy.ChatRequest{
		Model: opts.Model,
		Messages: []proxy.Message{
			{Role: "system", Content: SystemPrompt(req)},
			{Role: "user", Content: UserPrompt(req)},
		},
		MaxTokens:      opts.MaxTokens,
		Temperature:    opts.Temperature,
		ResponseFormat: proxy.JSONObject,
	}
}

// SystemPrompt describes the user, the category's task and the expression
// parameters.
func SystemPrompt(req generator.Request) string {
	c := req.Context
	main := resolveMain(req)
	sub := resolveSub(req, main)

	var b strings.Builder
	b.WriteString("## 用户背景\n")
	if c.DisplayName != "" {
		fmt.Fprintf(&b, "- 用户称呼：%s\n", c.DisplayName)
	}
	fmt.Fprintf(&b, "- 用户性别：%s\n", orDefault(c.UserGender, "未知"))
	fmt.Fprintf(&b, "- 用户身份：%s\n", orDefault(c.Persona, "普通用户"))
	fmt.Fprintf(&b, "- 交往目标：%s\n", orDefault(c.RelationshipGoal, "交友"))
	fmt.Fprintf(&b, "- 说话风格：%s\n", orDefault(c.SpeakingStyle, "自然"))
	fmt.Fprintf(&b, "- 语言偏好：%s\n", orDefault(c.Language, "中文"))
	if c.TabooList != "" {
		fmt.Fprintf(&b, "- 严禁提及：%s\n", c.TabooList)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, rules, sub.DisplayName())

	b.WriteString("\n\n## 角色定位\n")
	b.WriteString(mainTasks[main])
	fmt.Fprintf(&b, "\n风格要求【%s】：%s\n", sub.DisplayName(), sub.PromptCore())
	b.WriteString("你现在就是对话的参与者，而不是一个助手。\n")

	b.WriteString("\n## 表达参数\n")
	fmt.Fprintf(&b, "- 字数控制：%s\n", wordCountDescription(req.ConfigV2.WordCount))
	fmt.Fprintf(&b, "- 激进程度：%s\n", aggressionDescription(req.ConfigV2.AggressionLevel))
	fmt.Fprintf(&b, "- 成人风格：%s\n", adultDescription(req.ConfigV2.AdultStyle))
	fmt.Fprintf(&b, "- 暧昧程度：%d/5\n", req.StyleParams.Ambiguity)
	fmt.Fprintf(&b, "- 表情密度：%s\n", orDefault(req.StyleParams.EmojiDensity, "适中"))
	fmt.Fprintf(&b, "- 篇幅：%s\n", orDefault(req.StyleParams.Length, "中"))

	b.WriteString("\n")
	b.WriteString(outputFormat)
	return b.String()
}

// UserPrompt frames the user's input for the category.
func UserPrompt(req generator.Request) string {
	main := resolveMain(req)
	name := resolveSub(req, main).DisplayName()
	content := req.Content()

	switch main {
	case catalog.Opener:
		return fmt.Sprintf("我想找对方开启对话，请按照【%s】的方式生成 3 条开场白。", name)
	case catalog.Polish:
		return fmt.Sprintf("我想发这句话：「%s」\n\n请帮我按照【%s】进行润色。", content, name)
	case catalog.RolePlay:
		return fmt.Sprintf("从【%s】的角度回答这个问题：「%s」", name, content)
	case catalog.LifeWiki:
		return fmt.Sprintf("关于「%s」，请按照【%s】的要求给出解答。", content, name)
	default:
		return fmt.Sprintf("对方刚发来一条消息：「%s」\n\n请按照【%s】的风格生成 3 条回复。上下文信息：%s", content, name, req.Context.ChatContext)
	}
}

func resolveMain(req generator.Request) catalog.MainCategory {
	if req.MainCategory.Valid() {
		return req.MainCategory
	}
	return catalog.Reply
}

// resolveSub falls back to the main category's default when the requested
// sub-category is unknown or belongs elsewhere.
func resolveSub(req generator.Request, main catalog.MainCategory) catalog.SubCategory {
	if req.SubCategory.Valid() && req.SubCategory.MainCategory() == main {
		return req.SubCategory
	}
	return main.DefaultSubCategory()
}

func wordCountDescription(v string) string {
	switch v {
	case "少", "短":
		return "简短精炼，不超过 30 字"
	case "多", "长":
		return "详细充分，可以展开描述"
	default:
		return "适中篇幅，像正常人说话"
	}
}

func aggressionDescription(v string) string {
	switch v {
	case "低":
		return "保守稳妥，措辞谨慎，绝对安全"
	case "高":
		return "大胆直接，敢于打破常规，极具冲击力"
	default:
		return "适度直接，兼顾礼貌与个人特色"
	}
}

func adultDescription(v string) string {
	switch v {
	case "轻":
		return "允许适度的荷尔蒙暗示，轻微的语言拉扯，但不涉及低俗"
	case "重":
		return "语言更加热烈直白，可以进行深度的情感博弈或成人话题暗示，严禁色情"
	default:
		return "标准社交风格，不涉及任何成人或撩拨暗示"
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
