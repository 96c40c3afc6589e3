// Package caption extracts a title and links from free-form caption text and
// renders them into the branded caption template.
package caption

import (
	"regexp"
	"strings"

	"relaybot/internal/domain"
)

var (
	titlePattern = regexp.MustCompile(`Title=\s*\{(.*?)\}`)
	linkPattern  = regexp.MustCompile(`https?://\S+`)
)

// Parse extracts the title and every http(s) link from a caption.
// It never fails: a caption without a Title={...} tag gets "No Title", and one
// without links an empty list. A matched but blank title stays empty.
func Parse(text string) domain.CaptionInfo {
	info := domain.CaptionInfo{Title: domain.DefaultTitle, Links: []string{}}
	if text == "" {
		return info
	}

	if m := titlePattern.FindStringSubmatch(text); m != nil {
		info.Title = strings.TrimSpace(m[1])
	}

	if links := linkPattern.FindAllString(text, -1); links != nil {
		info.Links = links
	}
	return info
}
