package domain

import "strings"

type Role string

const (
	User   Role = "user"
	System Role = "system"
)

type Transport string

const (
	WhatsApp Transport = "whatsapp"
	Telegram Transport = "telegram"
	Console  Transport = "console"
)

// InboundMessage is a single user-originated chat event.
type InboundMessage struct {
	ID        string
	Sender    string
	Body      string
	MediaURL  string
	MediaType string
	Transport Transport
}

// Validate reports ErrEmptyMessage when the message carries neither text nor media.
func (m *InboundMessage) Validate() error {
	if strings.TrimSpace(m.Body) == "" && m.MediaURL == "" {
		return ErrEmptyMessage
	}

	return nil
}

func (m *InboundMessage) HasMedia() bool {
	return m.MediaURL != ""
}

type Media struct {
	Data     []byte
	MIMEType string
}

// Document is reference material attached to augmented completion requests.
type Document struct {
	Name    string
	Content string
}

// Block is one role-tagged piece of a completion request. A block carries either text, an
// inlined base64 image, or both (image with caption).
type Block struct {
	Role          Role
	Text          string
	ImageBase64   string
	ImageMIMEType string
}

func (b Block) HasImage() bool {
	return b.ImageBase64 != ""
}

type ModelRequest struct {
	Blocks    []Block
	Reference *Document
}

// ImageCount returns the number of blocks carrying an inlined image.
func (r ModelRequest) ImageCount() int {
	n := 0
	for _, b := range r.Blocks {
		if b.HasImage() {
			n++
		}
	}

	return n
}

// WithReference returns a copy of the request with the given document attached.
func (r ModelRequest) WithReference(doc *Document) ModelRequest {
	blocks := make([]Block, len(r.Blocks))
	copy(blocks, r.Blocks)

	return ModelRequest{Blocks: blocks, Reference: doc}
}

type ModelResponse struct {
	Response string
	Metadata ResponseMetadata
}

type ResponseMetadata struct {
	Model            string
	CompletionTokens int
	TotalTokens      int
}

// Reply is the text delivered to the sender.
type Reply struct {
	To   string
	Text string
}
