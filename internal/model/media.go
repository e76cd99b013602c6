package model

const (
	MaxProfilePictureBytes = 5 * 1024 * 1024
	ProfilePictureWidth    = 200
	ProfilePictureHeight   = 200

	MaxPhotoBytes = 10 * 1024 * 1024

	UploadFolder       = "uploads"
	UploadCacheControl = "public, max-age=31536000" // 1 year
)

// Supported image content types for upload validation
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
	ContentTypeWebP = "image/webp"
)

var allowedImageTypes = map[string]string{
	ContentTypeJPEG: ".jpg",
	ContentTypePNG:  ".png",
	ContentTypeGIF:  ".gif",
	ContentTypeWebP: ".webp",
}

// IsAllowedImageType reports whether the content type may be uploaded.
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}

// ExtensionFor returns the file extension stored objects of this type receive.
func ExtensionFor(contentType string) string {
	if ext, ok := allowedImageTypes[contentType]; ok {
		return ext
	}
	return ".bin"
}
