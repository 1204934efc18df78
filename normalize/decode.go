package normalize

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	ContentTypeJSON      = "application/json"
	ContentTypeForm      = "application/x-www-form-urlencoded"
	ContentTypeMultipart = "multipart/form-data"
)

// Decode picks a decoder from the request content type. An unknown or empty
// content type is sniffed: a body that starts with '{' is JSON, anything else
// is treated as url-encoded.
func Decode(contentType string, body []byte) (Fields, error) {
	mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(contentType))
	if err != nil {
		mediaType = ""
	}
	switch {
	case mediaType == ContentTypeJSON, strings.HasSuffix(mediaType, "+json"):
		return DecodeJSON(body)
	case mediaType == ContentTypeForm:
		return DecodeForm(body)
	case mediaType == ContentTypeMultipart:
		return DecodeMultipart(body, params["boundary"])
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Fields{}, nil
	}
	if trimmed[0] == '{' {
		return DecodeJSON(trimmed)
	}
	return DecodeForm(trimmed)
}

// DecodeJSON decodes a JSON object keeping key definition order. Arrays of
// scalars collapse to a single Scalar joined by ", "; arrays that hold objects
// become a Composite keyed by index.
func DecodeJSON(data []byte) (Fields, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Fields{}, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("normalize: invalid json document")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("normalize: json document must be an object, got %s", root.Type)
	}
	return objectFields(root), nil
}

func objectFields(result gjson.Result) Fields {
	builder := newFieldsBuilder(0)
	result.ForEach(func(key, value gjson.Result) bool {
		builder.set(key.String(), jsonValue(value))
		return true
	})
	return builder.build()
}

func jsonValue(result gjson.Result) Value {
	switch {
	case result.IsObject():
		return Composite(objectFields(result))
	case result.IsArray():
		items := result.Array()
		nested := false
		for _, item := range items {
			if item.IsObject() || item.IsArray() {
				nested = true
				break
			}
		}
		if !nested {
			parts := make([]string, 0, len(items))
			for _, item := range items {
				if text := scalarText(item); text != "" {
					parts = append(parts, text)
				}
			}
			return Scalar(strings.Join(parts, ", "))
		}
		fields := make(Fields, 0, len(items))
		for index, item := range items {
			fields = append(fields, Field{Key: strconv.Itoa(index), Value: jsonValue(item)})
		}
		return Composite(fields)
	default:
		return Scalar(scalarText(result))
	}
}

func scalarText(result gjson.Result) string {
	switch result.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return result.Str
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	default:
		return result.Raw
	}
}

// DecodeForm decodes an application/x-www-form-urlencoded body in order.
// Repeated keys are joined by ", ".
func DecodeForm(data []byte) (Fields, error) {
	return decodeURLEncoded(string(data))
}

// DecodeQuery decodes a raw query string with the same rules as DecodeForm.
func DecodeQuery(rawQuery string) (Fields, error) {
	return decodeURLEncoded(strings.TrimPrefix(rawQuery, "?"))
}

func decodeURLEncoded(raw string) (Fields, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Fields{}, nil
	}
	pairs := strings.Split(raw, "&")
	builder := newFieldsBuilder(len(pairs))
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("normalize: invalid form key %q: %w", rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("normalize: invalid form value for %q: %w", key, err)
		}
		if key == "" {
			continue
		}
		builder.appendRepeated(key, value)
	}
	return builder.build(), nil
}

// DecodeMultipart decodes the text parts of a multipart/form-data body.
// File parts are skipped.
func DecodeMultipart(body []byte, boundary string) (Fields, error) {
	if strings.TrimSpace(boundary) == "" {
		return nil, fmt.Errorf("normalize: multipart boundary is required")
	}
	reader := multipart.NewReader(bytes.NewReader(body), boundary)
	builder := newFieldsBuilder(0)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return builder.build(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("normalize: read multipart body: %w", err)
		}
		name := part.FormName()
		if name == "" || part.FileName() != "" {
			_ = part.Close()
			continue
		}
		value, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return nil, fmt.Errorf("normalize: read multipart field %q: %w", name, err)
		}
		builder.appendRepeated(name, string(value))
	}
}
