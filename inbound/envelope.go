package inbound

import (
	"errors"
	"io"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-formbridge/normalize"
)

// Delivery is an undecoded webhook request: the raw query string, the body
// and its content type. Reading one is a bounded copy, so the request can be
// acknowledged before any decoding work.
type Delivery struct {
	ContentType string
	RawQuery    string
	Body        []byte
}

// ReadDelivery copies the request query and body. Bodies larger than
// maxBytes are rejected; the query is kept so the caller can still submit it.
func ReadDelivery(r *http.Request, maxBytes int64) (Delivery, error) {
	if r == nil {
		return Delivery{}, inboundBadInput("inbound: request is nil", nil)
	}
	delivery := Delivery{ContentType: r.Header.Get("Content-Type")}
	if r.URL != nil {
		delivery.RawQuery = r.URL.RawQuery
	}
	if r.Body == nil {
		return delivery, nil
	}
	raw, err := readLimited(r.Body, maxBytes)
	if err != nil {
		return delivery, err
	}
	delivery.Body = raw
	return delivery, nil
}

// Envelope decodes the body by content type and merges the query string on
// top. Each source is decoded on its own: when one fails the other is still
// returned, together with the error.
func (d Delivery) Envelope() (normalize.Fields, error) {
	var errs []error
	query, err := normalize.DecodeQuery(d.RawQuery)
	if err != nil {
		query = normalize.Fields{}
		errs = append(errs, inboundWrapError(err, goerrors.CategoryBadInput, "inbound: query string could not be decoded", nil))
	}
	body, err := normalize.Decode(d.ContentType, d.Body)
	if err != nil {
		body = normalize.Fields{}
		errs = append(errs, inboundWrapError(err, goerrors.CategoryBadInput, "inbound: body could not be decoded", map[string]any{
			"content_type": d.ContentType,
			"size":         len(d.Body),
		}))
	}
	return normalize.Envelope(body, query), errors.Join(errs...)
}

// ReadEnvelope reads and decodes a request in one step.
func ReadEnvelope(r *http.Request, maxBytes int64) (normalize.Fields, error) {
	delivery, readErr := ReadDelivery(r, maxBytes)
	if r == nil {
		return nil, readErr
	}
	envelope, err := delivery.Envelope()
	return envelope, errors.Join(readErr, err)
}

func readLimited(body io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, inboundWrapError(err, goerrors.CategoryBadInput, "inbound: read body failed", nil)
		}
		return raw, nil
	}
	raw, err := io.ReadAll(io.LimitReader(body, maxBytes+1))
	if err != nil {
		return nil, inboundWrapError(err, goerrors.CategoryBadInput, "inbound: read body failed", nil)
	}
	if int64(len(raw)) > maxBytes {
		return nil, inboundBadInput("inbound: body exceeds size limit", map[string]any{
			"max_body_bytes": maxBytes,
		})
	}
	return raw, nil
}
