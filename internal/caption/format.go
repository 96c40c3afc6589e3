package caption

import (
	"fmt"
	"strings"

	"relaybot/internal/domain"
)

// Brand holds the fixed pieces of the republished caption.
type Brand struct {
	Header    string // lines printed above the title
	Tag       string // line printed between the title and the links
	Connector string // glyph in front of a single link
	Footer    string
}

// DefaultBrand is the branding used when no override is configured.
func DefaultBrand() Brand {
	return Brand{
		Header:    "🎃 ᴘᴏᴡᴇʀᴇᴅ ʙʏ↓ Telegram\n                🍯 @HotError",
		Tag:       "⌬ Hot Error",
		Connector: "╰─➩",
		Footer:    "Other Categories ↓ 🥵⚡\nhttps://t.me/HotError",
	}
}

// Format renders info with the default brand.
func Format(info domain.CaptionInfo) string {
	return DefaultBrand().Format(info)
}

// Format renders info into the branded template:
//
//	header
//
//	Title - <title>
//	tag
//	<link section>
//
//	footer
//
// The link section is omitted for zero links, a single connector line for one
// link, and one "(Part N) link" line followed by a blank line per link otherwise.
func (b Brand) Format(info domain.CaptionInfo) string {
	var sb strings.Builder
	if b.Header != "" {
		sb.WriteString(b.Header)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "Title - %s\n", info.Title)
	if b.Tag != "" {
		sb.WriteString(b.Tag)
		sb.WriteString("\n")
	}

	switch len(info.Links) {
	case 0:
		sb.WriteString("\n")
	case 1:
		connector := b.Connector
		if connector == "" {
			connector = DefaultBrand().Connector
		}
		fmt.Fprintf(&sb, "%s %s\n\n", connector, info.Links[0])
	default:
		for i, link := range info.Links {
			fmt.Fprintf(&sb, "(Part %d) %s\n\n", i+1, link)
		}
	}

	sb.WriteString(b.Footer)
	return strings.TrimRight(sb.String(), "\n")
}
