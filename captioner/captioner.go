package captioner

import "context"

// Captioner generates an image description using a specific LLM backend.
type Captioner interface {
	// Name returns the name of the backing service, e.g. "lmstudio" or
	// "openai".
	Name() string

	// Model returns the model identifier requests are issued against.
	Model() string

	// Caption returns a natural-language description of the provided image,
	// with no conversational framing. The image data should be the full
	// contents of an encoded raster file (PNG or JPEG, header included). The
	// provided ctx is used as a parent context for the request to the server.
	Caption(ctx context.Context, image []byte) (string, error)

	// IsHealthy returns whether the backing server is reachable.
	IsHealthy() bool
}
