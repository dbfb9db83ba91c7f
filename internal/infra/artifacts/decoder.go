package artifacts

import (
	"encoding/base64"

	"dispute-assistant/internal/domain/apperrors"
	"dispute-assistant/internal/domain/dto"
	"dispute-assistant/internal/domain/entities"

	"github.com/google/uuid"
)

// Decode converts backend base64 payloads into artifacts. Every entry decodes
// independently: a malformed payload is reported in the returned failures and
// never hides its siblings.
func Decode(payloads []dto.PDFPayload) ([]entities.Artifact, []*apperrors.DecodeError) {
	var decoded []entities.Artifact
	var failures []*apperrors.DecodeError

	for _, payload := range payloads {
		data, err := base64.StdEncoding.DecodeString(payload.PDFBase64)
		if err != nil {
			failures = append(failures, &apperrors.DecodeError{Filename: payload.Filename, Err: err})
			continue
		}
		decoded = append(decoded, entities.Artifact{
			ID:       uuid.NewString(),
			Filename: payload.Filename,
			Data:     data,
		})
	}
	return decoded, failures
}
