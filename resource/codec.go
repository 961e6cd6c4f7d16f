package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/goliatone/go-listquery/query"
	"github.com/vmihailenco/msgpack/v5"
)

// Content types understood by the HTTP client.
const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgpack = "application/msgpack"

	contentTypeXMsgpack = "application/x-msgpack"
)

var (
	errMissingItems  = errors.New(`response has no "items"`)
	errMissingTotal  = errors.New(`response has no "total"`)
	errNegativeTotal = errors.New(`"total" must be non-negative`)
)

// wirePage distinguishes absent fields from zero values.
type wirePage[T any] struct {
	Items *[]T `json:"items" msgpack:"items"`
	Total *int `json:"total" msgpack:"total"`
}

type format int

const (
	formatJSON format = iota
	formatMsgpack
)

// formatOf picks the decoder for a Content-Type header. An empty header is read as JSON.
func formatOf(contentType string) (format, error) {
	if strings.TrimSpace(contentType) == "" {
		return formatJSON, nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return 0, fmt.Errorf("content type %q: %w", contentType, err)
	}
	switch {
	case mediaType == ContentTypeJSON, strings.HasSuffix(mediaType, "+json"):
		return formatJSON, nil
	case mediaType == ContentTypeMsgpack, mediaType == contentTypeXMsgpack:
		return formatMsgpack, nil
	default:
		return 0, fmt.Errorf("unsupported content type %q", mediaType)
	}
}

func decode(contentType string, body []byte, v any) error {
	f, err := formatOf(contentType)
	if err != nil {
		return err
	}
	if f == formatMsgpack {
		return msgpack.Unmarshal(body, v)
	}
	return json.Unmarshal(body, v)
}

// decodePage reads a {"items": [...], "total": n} body.
func decodePage[T any](contentType string, body []byte) (query.Page[T], error) {
	var wire wirePage[T]
	if err := decode(contentType, body, &wire); err != nil {
		return query.Page[T]{}, query.MalformedResponseError(err)
	}
	if wire.Items == nil {
		return query.Page[T]{}, query.MalformedResponseError(errMissingItems)
	}
	if wire.Total == nil {
		return query.Page[T]{}, query.MalformedResponseError(errMissingTotal)
	}
	if *wire.Total < 0 {
		return query.Page[T]{}, query.MalformedResponseError(errNegativeTotal)
	}
	return query.Page[T]{Items: *wire.Items, Total: *wire.Total}, nil
}

func decodeRecord[T any](contentType string, body []byte) (T, error) {
	var record T
	if err := decode(contentType, body, &record); err != nil {
		return record, query.MalformedResponseError(err)
	}
	return record, nil
}
