package config

// UploadConfig controls non-interactive scanner uploads. CI pipelines
// post scan results with X-Upload-Key instead of a bearer token; the
// key is compared against a bcrypt hash so the clear value never lives
// in the environment of the server process.
type UploadConfig interface {
	GetUploadKeyHash() string
}

type Upload struct{}

var _ UploadConfig = Upload{}

func (Upload) GetUploadKeyHash() string {
	return GetEnv("UPLOAD_KEY_HASH", "")
}
