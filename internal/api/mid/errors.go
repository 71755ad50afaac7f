package mid

import (
	"context"
	"net/http"

	"github.com/tomkralidis/gocsw/internal/api/errs"
	"github.com/tomkralidis/gocsw/pkg/common/logger"
	"github.com/tomkralidis/gocsw/pkg/web"
)

// Errors handles errors coming out of the call chain. It detects normal
// application errors which are used to respond to the client in a uniform way.
func Errors(log *logger.Logger) web.MidFunc {
	m := func(next web.HandlerFunc) web.HandlerFunc {
		h := func(ctx context.Context, r *http.Request) web.Encoder {
			resp := next(ctx, r)

			err, ok := resp.(*errs.Error)
			if !ok {
				return resp
			}

			log.Error(ctx, "handled error during request",
				"err", err.Message,
				"code", err.Code.String(),
				"path", r.URL.Path)

			if err.Code == errs.Internal {
				// Internal details never leave the service.
				return errs.Newf(errs.Internal, "internal error")
			}

			return err
		}

		return h
	}

	return m
}
