package storage

// Store persists binary assets (uploaded photos, generated pages, final
// PDFs) and hands back publicly reachable URLs.
type Store interface {
	// Upload writes data under the given object path and returns its
	// public URL.
	Upload(path, contentType string, data []byte) (string, error)
	PublicURL(path string) string
	Download(path string) ([]byte, error)
	Delete(path string) error
}
