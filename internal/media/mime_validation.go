package media

import (
	"net/http"

	pkgerrors "github.com/cartfold/cartfold-backend/pkg/errors"
)

// sniffLen is how many leading bytes content sniffing needs.
const sniffLen = 512

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// detectImageType sniffs the content type from the file's leading bytes and
// rejects anything that is not JPEG or PNG. The declared Content-Type is
// ignored on purpose.
func detectImageType(head []byte) (contentType, extension string, err error) {
	contentType = http.DetectContentType(head)
	extension, ok := allowedImageTypes[contentType]
	if !ok {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "only JPEG and PNG images are accepted")
	}
	return contentType, extension, nil
}
