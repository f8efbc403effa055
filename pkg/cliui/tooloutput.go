package cliui

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/papercomputeco/turntable/pkg/chat"
)

// ToolOutputMarkdown formats a function result as markdown: a link list for
// web searches, a ranked list for hot topics, and a fenced JSON block for
// anything else. Returns "" for nil output or output without data.
func ToolOutputMarkdown(out *chat.ToolOutput) string {
	if out == nil {
		return ""
	}

	var b strings.Builder
	if out.Error != "" {
		fmt.Fprintf(&b, "**Function `%s` failed:** %s\n", orUnknown(out.Type), out.Error)
		return b.String()
	}
	if len(out.Data) == 0 {
		return ""
	}

	data := gjson.ParseBytes(out.Data)

	switch out.Type {
	case chat.FunctionWebSearch:
		query := out.Query
		if query == "" {
			query = data.Get("query").String()
		}
		results := data.Get("results").Array()
		if len(results) == 0 {
			fmt.Fprintf(&b, "_No search results for %q._\n", query)
			return b.String()
		}
		if query != "" {
			fmt.Fprintf(&b, "### Search results for %q\n\n", query)
		}
		for _, r := range results {
			b.WriteString("- ")
			b.WriteString(linkOrTitle(r))
			if s := r.Get("snippet").String(); s != "" {
				b.WriteString(": ")
				b.WriteString(s)
			}
			b.WriteString("\n")
		}

	case chat.FunctionHotTopics:
		if date := data.Get("date").String(); date != "" {
			fmt.Fprintf(&b, "### Hot topics as of %s\n\n", date)
		} else {
			b.WriteString("### Hot topics\n\n")
		}
		for i, t := range data.Get("topics").Array() {
			fmt.Fprintf(&b, "%d. %s", i+1, linkOrTitle(t))
			if p := t.Get("popularity"); p.Exists() {
				fmt.Fprintf(&b, " (%s)", p.String())
			}
			b.WriteString("\n")
			if d := t.Get("description").String(); d != "" {
				fmt.Fprintf(&b, "   %s\n", d)
			}
		}

	default:
		fmt.Fprintf(&b, "### Function `%s`\n\n```json\n%s\n```\n", orUnknown(out.Type), data.Get("@pretty").String())
	}

	return b.String()
}

func linkOrTitle(item gjson.Result) string {
	title := item.Get("title").String()
	if title == "" {
		title = "untitled"
	}
	if link := item.Get("link").String(); link != "" {
		return fmt.Sprintf("[%s](%s)", title, link)
	}
	return title
}

func orUnknown(functionType string) string {
	if functionType == "" {
		return chat.FunctionUnknown
	}
	return functionType
}
