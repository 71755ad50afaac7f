package web

import (
	"context"
	"errors"
	"net/http"
)

// httpStatus is checked for a custom status code on response values.
type httpStatus interface {
	HTTPStatus() int
}

// NoResponse tells the Respond function to not respond to the request. In
// these cases the app layer code has already done so.
type NoResponse struct{}

// NewNoResponse constructs a no response value.
func NewNoResponse() NoResponse {
	return NoResponse{}
}

// Encode implements the Encoder interface.
func (NoResponse) Encode() ([]byte, string, error) {
	return nil, "", nil
}

// Respond sends a response to the client.
func Respond(ctx context.Context, w http.ResponseWriter, resp Encoder) error {
	// If the context has been canceled, it means the client is no longer
	// waiting for a response.
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("client disconnected, do not send response")
		}
	}

	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}

	if _, ok := resp.(NoResponse); ok {
		return nil
	}

	statusCode := http.StatusOK
	if v, ok := resp.(httpStatus); ok {
		statusCode = v.HTTPStatus()
	}

	data, contentType, err := resp.Encode()
	if err != nil {
		return err
	}

	if statusCode == http.StatusNoContent || len(data) == 0 {
		w.WriteHeader(statusCode)
		return nil
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(statusCode)

	if _, err := w.Write(data); err != nil {
		return err
	}

	return nil
}
