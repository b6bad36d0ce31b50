package schema

import (
	"strings"

	"github.com/google/uuid"

	"github.com/k-shibuki/lyra-sub001/pkg/domain"
	"github.com/k-shibuki/lyra-sub001/pkg/logging"
)

// SanitizeError converts an internal error into the payload safe to return
// to an external client: a single-line, path-free message plus a short
// correlation id. The caller logs the full error internally against the id.
func SanitizeError(err error) domain.ErrorResponse {
	errorID := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if err == nil {
		return domain.ErrorResponse{Error: "unknown error", ErrorID: errorID}
	}
	return domain.ErrorResponse{
		Error:   logging.ScrubMessage(err.Error()),
		ErrorID: errorID,
	}
}
