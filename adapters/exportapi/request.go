package exportapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/goliatone/go-report/export"
)

// DefaultMaxBodyBytes caps request bodies when Config.MaxBodyBytes is unset.
const DefaultMaxBodyBytes int64 = 32 * 1024 * 1024

// Request provides minimal request access for transport adapters.
type Request interface {
	Context() context.Context
	Method() string
	Path() string
	Header(name string) string
	Query(name string) string
	Body() io.ReadCloser
}

// RequestDecoder parses a transport request into an export request.
type RequestDecoder interface {
	Decode(req Request) (export.ExportRequest, error)
}

// JSONRequestDecoder decodes a JSON body into an export request.
type JSONRequestDecoder struct {
	MaxBodyBytes int64
}

// Decode decodes a JSON request body into an export request. The format is
// normalized so aliases like "excel" resolve before dispatch.
func (d JSONRequestDecoder) Decode(req Request) (export.ExportRequest, error) {
	if req == nil {
		return export.ExportRequest{}, export.NewError(export.KindInternal, "request is nil", nil)
	}
	body := req.Body()
	if body == nil {
		return export.ExportRequest{}, export.NewError(export.KindValidation, "request body is required", nil)
	}
	defer body.Close()

	limit := d.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}

	reqModel, err := decodePayload(io.LimitReader(body, limit+1), limit)
	if err != nil {
		return export.ExportRequest{}, err
	}
	reqModel.Format = export.NormalizeFormat(reqModel.Format)
	return reqModel, nil
}

func decodePayload(body io.Reader, limit int64) (export.ExportRequest, error) {
	counter := &countingReader{r: body}
	var payload export.ExportRequest
	decoder := json.NewDecoder(counter)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		if counter.n > limit {
			return export.ExportRequest{}, export.NewError(export.KindValidation, "request body too large", nil)
		}
		var exportErr *export.ExportError
		if errors.As(err, &exportErr) {
			return export.ExportRequest{}, err
		}
		return export.ExportRequest{}, export.NewError(export.KindValidation, "invalid request payload", err)
	}
	return payload, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
