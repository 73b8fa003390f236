package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/google/go-querystring/query"
)

// BodyFormat selects how the payload of a request is serialized
type BodyFormat string

const (
	BodyJSON      BodyFormat = "json"
	BodyForm      BodyFormat = "form_params"
	BodyMultipart BodyFormat = "multipart"
	BodyRaw       BodyFormat = "body"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// FilePart describes one part of a multipart body. Contents may be a string,
// []byte, io.Reader or any value printable with fmt.
type FilePart struct {
	Name     string
	Contents any
	Filename string
	Headers  map[string]string
}

// normalizeMultipart turns call data into part descriptors. FilePart values pass
// through; plain key/value pairs become {Name: key, Contents: value}. Map keys are
// visited in sorted order so the wire layout is deterministic.
func normalizeMultipart(data any) ([]FilePart, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case []FilePart:
		return append([]FilePart(nil), v...), nil
	case FilePart:
		return []FilePart{v}, nil
	case url.Values:
		var parts []FilePart
		for _, key := range sortedKeys(v) {
			for _, value := range v[key] {
				parts = append(parts, FilePart{Name: key, Contents: value})
			}
		}
		return parts, nil
	case map[string]string:
		parts := make([]FilePart, 0, len(v))
		for _, key := range sortedKeys(v) {
			parts = append(parts, FilePart{Name: key, Contents: v[key]})
		}
		return parts, nil
	case map[string]any:
		parts := make([]FilePart, 0, len(v))
		for _, key := range sortedKeys(v) {
			parts = append(parts, partFromValue(key, v[key]))
		}
		return parts, nil
	case []any:
		parts := make([]FilePart, 0, len(v))
		for i, item := range v {
			part, ok := asFilePart(item)
			if !ok {
				return nil, NewValidationError(fmt.Sprintf("multipart item %d is not a part descriptor", i), "multipart", nil)
			}
			parts = append(parts, part)
		}
		return parts, nil
	default:
		return nil, NewValidationError(fmt.Sprintf("unsupported multipart data type %T", data), "multipart", nil)
	}
}

func partFromValue(key string, value any) FilePart {
	if part, ok := asFilePart(value); ok {
		return part
	}
	return FilePart{Name: key, Contents: value}
}

// asFilePart accepts FilePart values and maps already shaped as a descriptor.
func asFilePart(value any) (FilePart, bool) {
	switch v := value.(type) {
	case FilePart:
		return v, true
	case *FilePart:
		if v != nil {
			return *v, true
		}
	case map[string]any:
		name, ok := v["name"].(string)
		if !ok {
			return FilePart{}, false
		}
		if _, ok := v["contents"]; !ok {
			return FilePart{}, false
		}
		part := FilePart{Name: name, Contents: v["contents"]}
		part.Filename, _ = v["filename"].(string)
		if headers, ok := v["headers"].(map[string]string); ok && len(headers) > 0 {
			part.Headers = headers
		}
		return part, true
	}
	return FilePart{}, false
}

// encodeMultipart writes parts with mime/multipart and returns the body and
// the content type carrying the boundary.
func encodeMultipart(parts []FilePart) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, part := range parts {
		h := make(textproto.MIMEHeader)
		disposition := fmt.Sprintf(`form-data; name="%s"`, escapeQuotes(part.Name))
		if part.Filename != "" {
			disposition += fmt.Sprintf(`; filename="%s"`, escapeQuotes(part.Filename))
			h.Set("Content-Type", "application/octet-stream")
		}
		h.Set("Content-Disposition", disposition)
		for k, v := range part.Headers {
			h.Set(k, v)
		}

		pw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", NewValidationError("failed to create multipart part", part.Name, err)
		}
		if err := writeContents(pw, part.Contents); err != nil {
			return nil, "", NewValidationError("failed to write multipart part", part.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", NewValidationError("failed to close multipart body", "multipart", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeContents(w io.Writer, contents any) error {
	switch c := contents.(type) {
	case nil:
		return nil
	case string:
		_, err := io.WriteString(w, c)
		return err
	case []byte:
		_, err := w.Write(c)
		return err
	case io.Reader:
		_, err := io.Copy(w, c)
		return err
	default:
		_, err := fmt.Fprint(w, c)
		return err
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// encodeJSON marshals data. []byte and json.RawMessage are sent unchanged.
func encodeJSON(data any) ([]byte, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	}
	body, err := json.Marshal(data)
	if err != nil {
		return nil, NewValidationError("failed to encode json body", "json", err)
	}
	return body, nil
}

// encodeForm url-encodes data.
func encodeForm(data any) ([]byte, error) {
	values, err := toValues(data, "form_params")
	if err != nil {
		return nil, err
	}
	return []byte(values.Encode()), nil
}

// toValues converts query/form data into url.Values. Structs are encoded through
// their `url` tags.
func toValues(data any, field string) (url.Values, error) {
	switch v := data.(type) {
	case nil:
		return url.Values{}, nil
	case url.Values:
		return v, nil
	case string:
		values, err := url.ParseQuery(strings.TrimPrefix(v, "?"))
		if err != nil {
			return nil, NewValidationError("invalid query string", field, err)
		}
		return values, nil
	case map[string]string:
		values := url.Values{}
		for k, s := range v {
			values.Set(k, s)
		}
		return values, nil
	case map[string][]string:
		return url.Values(v), nil
	case map[string]any:
		values := url.Values{}
		for k, item := range v {
			appendValue(values, k, item)
		}
		return values, nil
	}

	rv := reflect.ValueOf(data)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, NewValidationError(fmt.Sprintf("unsupported %s type %T", field, data), field, nil)
	}
	values, err := query.Values(data)
	if err != nil {
		return nil, NewValidationError("failed to encode struct", field, err)
	}
	return values, nil
}

func appendValue(values url.Values, key string, item any) {
	switch v := item.(type) {
	case nil:
		values.Add(key, "")
	case string:
		values.Add(key, v)
	case []string:
		for _, s := range v {
			values.Add(key, s)
		}
	case []any:
		for _, s := range v {
			values.Add(key, fmt.Sprint(s))
		}
	default:
		values.Add(key, fmt.Sprint(v))
	}
}

// isEmptyData reports nil values and empty maps, slices and strings.
func isEmptyData(data any) bool {
	if data == nil {
		return true
	}
	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.String:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
