package profile

// ContentTypeThumbnail es el content type de una thumbnail card.
const ContentTypeThumbnail = "application/vnd.microsoft.card.thumbnail"

// Attachment es el adjunto opaco que consume la UI.
type Attachment struct {
	ContentType string        `json:"contentType"`
	Content     ThumbnailCard `json:"content"`
}

type ThumbnailCard struct {
	Title    string      `json:"title,omitempty"`
	Subtitle string      `json:"subtitle,omitempty"`
	Images   []CardImage `json:"images,omitempty"`
}

type CardImage struct {
	URL string `json:"url"`
}

// ThumbnailRenderer implementa Renderer.
type ThumbnailRenderer struct{}

func (ThumbnailRenderer) RenderCard(displayName, photoURL, subtitle string) Attachment {
	card := ThumbnailCard{Title: displayName, Subtitle: subtitle}
	if photoURL != "" {
		card.Images = []CardImage{{URL: photoURL}}
	}
	return Attachment{ContentType: ContentTypeThumbnail, Content: card}
}
