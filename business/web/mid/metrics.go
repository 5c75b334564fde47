package mid

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ardanlabs/miner/business/sys/metrics"
	"github.com/ardanlabs/miner/foundation/web"
)

// Metrics updates program counters. It must wrap the Errors middleware so
// the status written for a failed request is the one that gets counted.
func Metrics() web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Call the next handler.
			err := handler(ctx, w, r)

			// Handle updating the metrics that can be updated.
			var status int
			if v, verr := web.GetValues(ctx); verr == nil {
				status = v.StatusCode
			}
			metrics.AddRequest(r.Method, strconv.Itoa(status))

			if err != nil || status >= http.StatusBadRequest {
				metrics.AddErrors()
			}

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return m
}
