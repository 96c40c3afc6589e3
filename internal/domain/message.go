package domain

// DefaultTitle is used when a caption carries no Title={...} marker.
const DefaultTitle = "No Title"

// MediaKind names the variant held by a Media value.
type MediaKind string

const (
	KindPhoto     MediaKind = "photo"
	KindVideo     MediaKind = "video"
	KindDocument  MediaKind = "document"
	KindVoice     MediaKind = "voice"
	KindAnimation MediaKind = "animation"
)

// Media is a closed sum type over the media kinds the relay understands.
// Only the variants declared in this package implement it.
type Media interface {
	Kind() MediaKind
	FileID() string
	sealed()
}

// Photo references the largest size Telegram offered for a photo.
type Photo struct{ ID string }

type Video struct{ ID string }

type Document struct{ ID string }

type Voice struct{ ID string }

type Animation struct{ ID string }

func (Photo) Kind() MediaKind     { return KindPhoto }
func (Video) Kind() MediaKind     { return KindVideo }
func (Document) Kind() MediaKind  { return KindDocument }
func (Voice) Kind() MediaKind     { return KindVoice }
func (Animation) Kind() MediaKind { return KindAnimation }

func (p Photo) FileID() string     { return p.ID }
func (v Video) FileID() string     { return v.ID }
func (d Document) FileID() string  { return d.ID }
func (v Voice) FileID() string     { return v.ID }
func (a Animation) FileID() string { return a.ID }

func (Photo) sealed()     {}
func (Video) sealed()     {}
func (Document) sealed()  {}
func (Voice) sealed()     {}
func (Animation) sealed() {}

// MediaItem is one inbound message as seen by the relay.
// Media is nil for plain text messages; Caption is empty when absent.
type MediaItem struct {
	ChatID    int64
	MessageID int
	SenderID  int64
	Command   string // bot command without the slash, e.g. "start"
	Media     Media
	Caption   string
}

// HasCaption reports whether the item carries caption text.
func (m MediaItem) HasCaption() bool { return m.Caption != "" }

// CaptionInfo is the structured content extracted from a caption.
type CaptionInfo struct {
	Title string
	Links []string
}

// RenderedOutput is what gets republished for one inbound item.
// Image is only set for photos and holds PNG bytes.
type RenderedOutput struct {
	Kind    MediaKind
	Caption string
	Image   []byte
}
