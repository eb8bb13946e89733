package services

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/example/farmfresh/internal/errutil"
)

// MaxPictureSize is the largest profile picture accepted.
const MaxPictureSize = 2 << 20

// pictureKeyPrefix is where profile pictures live inside the bucket.
const pictureKeyPrefix = "farmfresh/profiles"

// Picture is an uploaded image on its way to the blob store.
type Picture struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Validate checks the picture is a non-empty image within the size limit.
func (p Picture) Validate() error {
	if !strings.HasPrefix(strings.ToLower(p.ContentType), "image/") {
		return errutil.Validation("Only image files are allowed")
	}
	if p.Size <= 0 {
		return errutil.Validation("Profile picture is empty")
	}
	if p.Size > MaxPictureSize {
		return errutil.Validation("Profile picture must be at most 2MB")
	}
	return nil
}

// BlobStore keeps profile pictures and hands back a public URL for each.
type BlobStore interface {
	Upload(ctx context.Context, p Picture) (string, error)
	// Delete releases a URL returned by Upload. URLs the store did not issue
	// are ignored.
	Delete(ctx context.Context, url string) error
}

// BlobConfig carries the settings shared by the MinIO and S3 stores.
type BlobConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	PublicURL string
}

func (c BlobConfig) scheme() string {
	if c.UseSSL {
		return "https"
	}
	return "http"
}

// pictureKey builds a fresh object key keeping the original extension.
func pictureKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(pictureKeyPrefix, uuid.NewString()+ext)
}

// objectURLs maps keys to public URLs and back.
type objectURLs struct {
	base string
}

func newObjectURLs(base string) objectURLs {
	return objectURLs{base: strings.TrimRight(base, "/")}
}

func (o objectURLs) url(key string) string {
	return o.base + "/" + key
}

// key returns the object key for a URL issued by this store.
func (o objectURLs) key(url string) (string, bool) {
	rest, ok := strings.CutPrefix(url, o.base+"/")
	if !ok || !strings.HasPrefix(rest, pictureKeyPrefix+"/") {
		return "", false
	}
	return rest, true
}

// DisabledBlobStore rejects uploads. It is used when no blob driver is configured.
type DisabledBlobStore struct{}

func (DisabledBlobStore) Upload(context.Context, Picture) (string, error) {
	return "", errutil.Validation("Profile picture uploads are not enabled")
}

func (DisabledBlobStore) Delete(context.Context, string) error { return nil }
