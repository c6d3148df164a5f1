package bot

import (
	"errors"
	"net/http"

	"github.com/disgoorg/disgo/rest"
	"github.com/robalyx/warden/internal/automod/response"
)

// classify maps a REST error onto an action outcome.
func classify(err error) response.ActionResult {
	if err == nil {
		return response.ActionResult{Outcome: response.OutcomeSuccess}
	}

	var restErr *rest.Error
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return response.ActionResult{Outcome: response.OutcomeNotFound, Err: err}
		case http.StatusForbidden, http.StatusUnauthorized:
			return response.ActionResult{Outcome: response.OutcomeForbidden, Err: err}
		}
	}

	return response.ActionResult{Outcome: response.OutcomeFailed, Err: err}
}
