package ocr

import (
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/ecoscore/internal/common"
)

var reDataURI = regexp.MustCompile(`^data:[^;]+;base64,(.*)$`)

// DecodeBase64Payload accepts raw base64 or a data URI and returns the bytes.
// Embedded whitespace is ignored.
func DecodeBase64Payload(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if m := reDataURI.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return nil, common.NewAppError("EMPTY_INPUT", "empty payload", common.ErrEmptyInput)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, common.ValidationErrorf("payload is not valid base64: %v", err)
	}
	return b, nil
}
