package console

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/votedesk/console/internal/elections"
	"github.com/votedesk/console/internal/gateway"
	"github.com/votedesk/console/internal/panel"
	"github.com/votedesk/console/pkg/response"
)

// respondError maps an operation error onto the console envelope.
func (h *Handler) respondError(c *gin.Context, err error) {
	var (
		vErr   *elections.ValidationError
		apiErr *gateway.APIError
		httpEr *gateway.HTTPError
	)
	switch {
	case errors.As(err, &vErr):
		response.Invalid(c, vErr.Field, vErr.Message)
	case errors.Is(err, panel.ErrUnknownPanel), errors.Is(err, panel.ErrUnknownKind):
		response.BadRequest(c, err.Error())
	case errors.Is(err, elections.ErrElectionNotFound), errors.Is(err, ErrArchiveNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, gateway.ErrMissingCredential):
		h.logger.Error("voting api admin credential missing", zap.String("path", c.FullPath()))
		response.Internal(c, "admin credential is not configured (VOTE_API_ADMIN_KEY)")
	case errors.As(err, &apiErr):
		response.Unprocessable(c, apiErr.Message)
	case errors.As(err, &httpEr):
		response.BadGateway(c, httpEr.Error())
	default:
		_ = c.Error(err)
		response.BadGateway(c, err.Error())
	}
}

// staleWarning splits a StaleError off a mutation result: the mutation went
// through, only the follow-up refresh failed.
func staleWarning(err error) (string, error) {
	var stale *elections.StaleError
	if errors.As(err, &stale) {
		return stale.Error(), nil
	}
	return "", err
}
