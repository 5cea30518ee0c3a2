package types

// ImageSource records where an image in a day's CustomImages came from.
type ImageSource string

const (
	ImageSourceGenerated   ImageSource = "generated"
	ImageSourceUploaded    ImageSource = "uploaded"
	ImageSourcePlaceholder ImageSource = "placeholder"
)

// ImageBlob is a self-contained image reference: a data: URL for generated and
// uploaded images, a seeded stock-photo URL for placeholders.
type ImageBlob struct {
	Source   ImageSource `json:"source"`
	MIMEType string      `json:"mimeType,omitempty"`
	URL      string      `json:"url"`
}

// ImageRequest is a single call to the image collaborator.
type ImageRequest struct {
	Prompt      string
	AspectRatio string
}

// ImageResponse is raw image bytes returned by the image collaborator.
type ImageResponse struct {
	Data     []byte
	MIMEType string
}

// ReferenceFile is optional source material attached to a plan request.
type ReferenceFile struct {
	Name     string
	MIMEType string
	Data     []byte
}
