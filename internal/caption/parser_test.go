package caption

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantTitle string
		wantLinks []string
	}{
		{"title and link", "Title={Foo} https://a.com/x", "Foo", []string{"https://a.com/x"}},
		{"nothing", "no title or link here", "No Title", []string{}},
		{"empty", "", "No Title", []string{}},
		{"links keep order", "https://a.com https://b.com", "No Title", []string{"https://a.com", "https://b.com"}},
		{"duplicates kept", "http://x.io http://x.io", "No Title", []string{"http://x.io", "http://x.io"}},
		{"title trimmed", "Title=   {  Big Buck Bunny  }", "Big Buck Bunny", []string{}},
		{"blank title stays empty", "Title={   }", "", []string{}},
		{"blank title with link", "Title={   } https://a.com", "", []string{"https://a.com"}},
		{"first title wins", "Title={One} Title={Two}", "One", []string{}},
		{"scheme is case sensitive", "HTTPS://a.com https://b.com", "No Title", []string{"https://b.com"}},
		{"link stops at whitespace", "see https://t.me/x\nand more", "No Title", []string{"https://t.me/x"}},
		{"unclosed title", "Title={Foo https://a.com", "No Title", []string{"https://a.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.in)
			if got.Title != tt.wantTitle {
				t.Errorf("title: got %q, want %q", got.Title, tt.wantTitle)
			}
			if !reflect.DeepEqual(got.Links, tt.wantLinks) {
				t.Errorf("links: got %q, want %q", got.Links, tt.wantLinks)
			}
		})
	}
}

func TestParse_LinksNeverNil(t *testing.T) {
	if Parse("plain").Links == nil {
		t.Fatal("expected empty, non-nil links")
	}
}
