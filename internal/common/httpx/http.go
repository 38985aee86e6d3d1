// Package httpx adapts handlers that return (*Response, error) to
// http.HandlerFunc and renders francine's JSON error envelope.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/tansive/francine/internal/common/apperrors"
)

// MaxRequestBytes bounds request bodies read by GetRequestData.
const MaxRequestBytes int64 = 1 << 20

// GetRequestData decodes the JSON body of a POST or PUT request into data.
func GetRequestData(r *http.Request, data any) error {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		return ErrReqMethodNotSupported()
	}
	if r.Body == nil || r.Body == http.NoBody {
		log.Ctx(r.Context()).Error().Msg("empty request body")
		return ErrUnableToParseReqData()
	}
	body := http.MaxBytesReader(nil, r.Body, MaxRequestBytes)
	if err := json.NewDecoder(body).Decode(data); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrRequestTooLarge(MaxRequestBytes)
		}
		return ErrUnableToParseReqData()
	}
	return nil
}

// Response is what a RequestHandler returns on success. ContentType
// defaults to application/json; text/plain expects a string Response.
type Response struct {
	StatusCode  int
	Location    string
	Response    any
	ContentType string
}

type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp renders the handler's response, or its error through AsError.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			AsError(r.Context(), err).Send(w)
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		if rsp.ContentType == "" {
			rsp.ContentType = "application/json"
		}
		var location []string
		if rsp.Location != "" {
			location = append(location, rsp.Location)
		}
		switch rsp.ContentType {
		case "application/json":
			SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response, location...)
		case "text/plain":
			text, ok := rsp.Response.(string)
			if !ok {
				ErrApplicationError("text response is not a string").Send(w)
				return
			}
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			if rsp.StatusCode == http.StatusCreated && len(location) > 0 {
				w.Header().Set("Location", location[0])
			}
			w.WriteHeader(rsp.StatusCode)
			w.Write([]byte(text))
		default:
			ErrApplicationError("unsupported response type").Send(w)
		}
	}
}

// AsError maps err onto an HTTP error. apperrors carry their own status
// code; an expired request context becomes a timeout.
func AsError(ctx context.Context, err error) *Error {
	var httpErr *Error
	if errors.As(err, &httpErr) {
		return httpErr
	}
	if appErr, ok := err.(apperrors.Error); ok {
		statusCode := appErr.StatusCode()
		if statusCode == 0 {
			statusCode = http.StatusInternalServerError
		}
		return &Error{StatusCode: statusCode, Description: appErr.ErrorAll()}
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
		return ErrRequestTimeout()
	}
	return ErrApplicationError(err.Error())
}
