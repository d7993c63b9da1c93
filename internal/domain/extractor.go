package domain

import "context"

// Extractor is the external extraction capability. Implementations
// must honor ctx cancellation on both calls and return classified
// *DownloadError values, never raw process or network errors.
type Extractor interface {
	// Resolve fetches metadata for a URL without downloading bytes
	Resolve(ctx context.Context, url string) (*VideoMetadata, error)

	// Fetch downloads the selected variant to destPath and returns the
	// number of bytes written
	Fetch(ctx context.Context, url string, variant QualityVariant, destPath string) (int64, error)
}
