// Package fallback produces canned candidates when the remote generator is
// unreachable or answers with something unusable. It performs no I/O and
// never fails.
package fallback

import (
	"strings"

	"github.com/kalambet/forlove/internal/candidate"
	"github.com/kalambet/forlove/internal/catalog"
)

// Count is the number of candidates every call returns.
const Count = 3

type replyRule struct {
	keywords []string
	texts    [Count]string
}

var replyRules = []replyRule{
	{[]string{"你好", "在吗"}, [Count]string{"在呢在呢～", "嗨！在的", "来啦来啦！怎么了"}},
	{[]string{"最近", "怎么样"}, [Count]string{"还不错呀，就是有点忙", "挺好的～你呢", "一般般吧"}},
	{[]string{"吃饭", "出来"}, [Count]string{"好呀！什么时候", "可以啊，你想去哪", "看情况诶"}},
}

var (
	replyEmpty   = [Count]string{"我在想怎么开个好头呢...", "准备开启话题挑战！", "在呢，咱们聊点什么有意思的？"}
	replyDefault = [Count]string{"好滴，我再想想怎么回你更好", "确实是这样，我也在考虑这个问题", "你说的很有道理，我完全赞同"}
	openers      = [Count]string{"嗨～在忙什么呢", "好久不见！最近有什么新鲜事吗", "刚看到你的动态，挺有趣的"}
	polishEmpty  = [Count]string{"（请先输入需要润色的内容）", "把想说的话写下来，我来帮你改得更好", "先输入一句话，再选一个润色风格"}
	rolePlay     = [Count]string{"既然你问到我了，那我肯定得给你点真本事看看...", "这事儿落我手里，那就是找对人了，听好...", "这波操作我熟，看我怎么给你秀翻全场..."}
	lifeWiki     = [Count]string{"这个问题的核心在于...", "简单来说，你可以这样做...", "根据实际经验，建议您..."}
)

// Generate returns exactly Count non-empty candidates for main, tagged with
// tag and marked as offline templates. Equal inputs yield equal texts.
func Generate(main catalog.MainCategory, tag, content string) []candidate.Candidate {
	texts := Texts(main, content)
	out := make([]candidate.Candidate, Count)
	for i, text := range texts {
		out[i] = candidate.New(text, candidate.WithTags(tag), candidate.Offline())
	}
	return out
}

// Texts returns the canned texts Generate would use.
func Texts(main catalog.MainCategory, content string) [Count]string {
	content = strings.TrimSpace(content)
	switch main {
	case catalog.Opener:
		return openers
	case catalog.Polish:
		if content == "" {
			return polishEmpty
		}
		return [Count]string{content + "～", "其实呢，" + content, content + " 😊"}
	case catalog.RolePlay:
		return rolePlay
	case catalog.LifeWiki:
		return lifeWiki
	default:
		return replyTexts(content)
	}
}

func replyTexts(message string) [Count]string {
	if message == "" {
		return replyEmpty
	}
	for _, r := range replyRules {
		for _, kw := range r.keywords {
			if strings.Contains(message, kw) {
				return r.texts
			}
		}
	}
	return replyDefault
}

// Generator adapts Generate to the orchestrator's fallback dependency.
type Generator struct{}

func (Generator) Generate(main catalog.MainCategory, tag, content string) []candidate.Candidate {
	return Generate(main, tag, content)
}
