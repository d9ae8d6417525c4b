package outputs

import (
	"fmt"
	"strings"

	"digestbot/config"
	"digestbot/types"
)

const sourceNote = "数据来源：搜狗微信搜索（链接点击后跳转原文）"

// RenderMarkdown renders the human readable report. The summary section is
// omitted when there is no summary.
func RenderMarkdown(d *Digest) string {
	lines := []string{
		"# " + d.Title,
		"",
		fmt.Sprintf("> 爬取范围：%s  ·  合计：%d 篇", d.DateRange, d.Total()),
		"> " + sourceNote,
		"> 生成时间：" + d.GeneratedAt.Format("2006-01-02 15:04"),
		"",
		"---",
		"",
	}

	if summary := strings.TrimSpace(d.Summary); summary != "" {
		lines = append(lines, "## 📊 AI 智能摘要", "", summary, "", "---", "")
	}

	for _, acc := range d.Result.Accounts {
		lines = append(lines, fmt.Sprintf("## %s（%d 篇）", acc.Account, len(acc.Articles)), "")
		for _, a := range acc.Articles {
			if a.URL != "" {
				lines = append(lines, fmt.Sprintf("- [%s] [%s](%s)", a.Date(), a.Title, a.URL))
			} else {
				lines = append(lines, fmt.Sprintf("- [%s] %s", a.Date(), a.Title))
			}
			if a.Summary != "" {
				lines = append(lines, "  > "+types.TruncateRunes(a.Summary, config.MarkdownSummaryRunes))
			}
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
