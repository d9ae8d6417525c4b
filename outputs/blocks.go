package outputs

import (
	"fmt"
	"strings"
)

// Block is one Feishu docx block. Exactly one content field is set.
type Block struct {
	BlockType int        `json:"block_type"`
	Text      *blockBody `json:"text,omitempty"`
	Heading2  *blockBody `json:"heading2,omitempty"`
	Bullet    *blockBody `json:"bullet,omitempty"`
}

type blockBody struct {
	Elements []textElement `json:"elements"`
	Style    blockStyle    `json:"style"`
}

type blockStyle struct {
	Align int `json:"align"`
}

type textElement struct {
	TextRun textRun `json:"text_run"`
}

type textRun struct {
	Content string       `json:"content"`
	Style   elementStyle `json:"text_element_style"`
}

type elementStyle struct {
	Bold bool  `json:"bold,omitempty"`
	Link *link `json:"link,omitempty"`
}

type link struct {
	URL string `json:"url"`
}

func plain(content string) textElement {
	return textElement{TextRun: textRun{Content: content}}
}

func bold(content string) textElement {
	return textElement{TextRun: textRun{Content: content, Style: elementStyle{Bold: true}}}
}

func linked(content, url string) textElement {
	return textElement{TextRun: textRun{Content: content, Style: elementStyle{Link: &link{URL: EscapeLink(url)}}}}
}

func textBlock(s string) Block {
	return Block{BlockType: blockText, Text: &blockBody{Elements: []textElement{plain(s)}, Style: blockStyle{Align: 1}}}
}

func heading2Block(s string) Block {
	return Block{BlockType: blockHeading2, Heading2: &blockBody{Elements: []textElement{plain(s)}, Style: blockStyle{Align: 1}}}
}

func bulletBlock(elems ...textElement) Block {
	return Block{BlockType: blockBullet, Bullet: &blockBody{Elements: elems, Style: blockStyle{Align: 1}}}
}

// BuildBlocks lays out the document: meta lines, the optional summary, then
// one heading per account followed by its articles as bullets.
func BuildBlocks(d *Digest) []Block {
	counts := make([]string, 0, len(d.Result.Accounts))
	for _, acc := range d.Result.Accounts {
		counts = append(counts, fmt.Sprintf("%s: %d篇", acc.Account, len(acc.Articles)))
	}

	blocks := []Block{
		textBlock(fmt.Sprintf("爬取范围: %s  |  合计: %d篇  |  %s", d.DateRange, d.Total(), strings.Join(counts, "  "))),
		textBlock("数据来源: 搜狗微信搜索（链接点击后跳转原文）"),
	}

	if d.Summary != "" {
		blocks = append(blocks, heading2Block("📊 AI 智能摘要"))
		blocks = append(blocks, summaryBlocks(d.Summary)...)
	}

	for _, acc := range d.Result.Accounts {
		blocks = append(blocks, heading2Block(fmt.Sprintf("%s（%d篇）", acc.Account, len(acc.Articles))))
		for _, a := range acc.Articles {
			title := bold(a.Title)
			if a.URL != "" {
				title = linked(a.Title, a.URL)
			}
			blocks = append(blocks, bulletBlock(plain("["+a.Date()+"]  "), title))
		}
	}
	return blocks
}

// summaryBlocks maps markdown lines onto text and bullet blocks
func summaryBlocks(summary string) []Block {
	var blocks []Block
	for _, line := range strings.Split(summary, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "## "), strings.HasPrefix(line, "### "):
			blocks = append(blocks, textBlock("▶ "+strings.TrimSpace(strings.TrimLeft(line, "#"))))
		case strings.HasPrefix(line, "- "):
			blocks = append(blocks, bulletBlock(plain(strings.TrimSpace(line[2:]))))
		case strings.HasPrefix(line, "• "):
			blocks = append(blocks, bulletBlock(plain(strings.TrimSpace(strings.TrimPrefix(line, "• ")))))
		case len(line) > 4 && strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**"):
			blocks = append(blocks, textBlock(strings.Trim(line, "*")))
		default:
			blocks = append(blocks, textBlock(line))
		}
	}
	return blocks
}

// linkSafe lists the punctuation EscapeLink leaves as is
const linkSafe = ":/?=&%#@+._-~"

// EscapeLink percent-encodes every byte of u except ASCII letters, digits
// and linkSafe.
func EscapeLink(u string) string {
	var b strings.Builder
	for i := 0; i < len(u); i++ {
		c := u[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') || strings.IndexByte(linkSafe, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}
