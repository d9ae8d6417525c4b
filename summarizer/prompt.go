package summarizer

import (
	"strings"

	"digestbot/config"
	"digestbot/types"
)

const promptTemplate = `你是一名专业的 AI 产业分析师兼内容编辑。请对以下来自多个微信公众号的文章进行主题聚合和要点提炼，输出一份简洁的周报摘要。

要求：
1. 分两大板块输出：「技术动态」和「投融资动态」
2. 每个板块下按主题分小节（如：大模型进展、产品发布、行业动态、融资事件、IPO/上市等）
3. 每条要点一行，突出数字和关键事件
4. 语言简洁直接，避免模糊表述
5. 最后输出「本周关键信号」1-3条（影响最大的判断）
6. 输出格式为 Markdown

---

{articles}

---

请输出周报摘要：`

// BuildPrompt renders the grouped articles into the summary prompt. Each
// account contributes at most its first PromptArticlesPerAccount entries and
// accounts without articles are left out.
func BuildPrompt(groups []types.GroupArticles) string {
	return strings.Replace(promptTemplate, "{articles}", renderArticles(groups), 1)
}

func renderArticles(groups []types.GroupArticles) string {
	var b strings.Builder
	for _, g := range groups {
		if countGroup(g) == 0 {
			continue
		}
		b.WriteString("# 板块：" + g.Group + "\n")
		for _, acc := range g.Accounts {
			if len(acc.Articles) == 0 {
				continue
			}
			b.WriteString("## 来源：" + acc.Account + "\n")
			articles := acc.Articles
			if len(articles) > config.PromptArticlesPerAccount {
				articles = articles[:config.PromptArticlesPerAccount]
			}
			for _, a := range articles {
				b.WriteString("- [" + a.Date() + "] " + a.Title + "\n")
				if a.Summary != "" {
					b.WriteString("  摘要：" + types.TruncateRunes(a.Summary, config.PromptSummaryRunes) + "\n")
				}
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func countGroup(g types.GroupArticles) int {
	n := 0
	for _, acc := range g.Accounts {
		n += len(acc.Articles)
	}
	return n
}
