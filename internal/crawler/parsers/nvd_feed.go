package parsers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
)

// Feed extraction errors.
var (
	ErrMalformedFeed = errors.New("malformed feed document")
	ErrMalformedItem = errors.New("malformed feed item")
)

// feedJSON keeps numbers as their literal text so scores pass through verbatim.
var feedJSON = jsoniter.Config{
	EscapeHTML: false,
	UseNumber:  true,
}.Froze()

// FeedItemFields is the partial record extracted from one NVD 1.1 feed item.
type FeedItemFields struct {
	CVEID         string
	Description   string
	CWE           string
	PublishedDate string
	// Impact is the compact serialized impact object, or "" when absent or empty.
	Impact string
}

// ParseFeed splits a feed document into its raw CVE items. A document without
// a CVE_Items key has no items. The document must be valid UTF-8.
func ParseFeed(doc []byte) ([]jsoniter.RawMessage, error) {
	if !utf8.Valid(doc) {
		return nil, fmt.Errorf("%w: invalid UTF-8", ErrMalformedFeed)
	}

	var feed map[string]jsoniter.RawMessage
	if err := feedJSON.Unmarshal(doc, &feed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFeed, err)
	}

	raw, ok := feed["CVE_Items"]
	if !ok || isNull(raw) {
		return nil, nil
	}

	var items []jsoniter.RawMessage
	if err := feedJSON.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: CVE_Items: %w", ErrMalformedFeed, err)
	}

	return items, nil
}

// ExtractItem extracts the fields of one feed item. Missing keys default to "";
// a value of the wrong JSON type at any level is an error for this item only.
func ExtractItem(raw []byte) (FeedItemFields, error) {
	var item map[string]jsoniter.RawMessage
	if err := feedJSON.Unmarshal(raw, &item); err != nil {
		return FeedItemFields{}, fmt.Errorf("%w: %w", ErrMalformedItem, err)
	}

	var (
		fields FeedItemFields
		err    error
	)

	cve, err := decodeObject(item["cve"], "cve")
	if err != nil {
		return FeedItemFields{}, err
	}

	meta, err := objectField(cve, "CVE_data_meta")
	if err != nil {
		return FeedItemFields{}, err
	}

	if fields.CVEID, err = stringField(meta, "ID"); err != nil {
		return FeedItemFields{}, err
	}

	description, err := objectField(cve, "description")
	if err != nil {
		return FeedItemFields{}, err
	}

	descriptionData, err := arrayField(description, "description_data")
	if err != nil {
		return FeedItemFields{}, err
	}

	if fields.Description, err = firstEnglish(descriptionData); err != nil {
		return FeedItemFields{}, err
	}

	if fields.CWE, err = firstProblemType(cve); err != nil {
		return FeedItemFields{}, err
	}

	if fields.Impact, err = compactImpact(item["impact"]); err != nil {
		return FeedItemFields{}, err
	}

	published, err := decodeValue(item["publishedDate"], "publishedDate")
	if err != nil {
		return FeedItemFields{}, err
	}

	if fields.PublishedDate, err = scalarString(published, "publishedDate"); err != nil {
		return FeedItemFields{}, err
	}

	return fields, nil
}

// firstProblemType reads the first English value of the first problemtype entry.
// Later entries are ignored.
func firstProblemType(cve map[string]any) (string, error) {
	problemType, err := objectField(cve, "problemtype")
	if err != nil {
		return "", err
	}

	data, err := arrayField(problemType, "problemtype_data")
	if err != nil || len(data) == 0 {
		return "", err
	}

	first, ok := data[0].(map[string]any)
	if !ok {
		return "", fmt.Errorf("%w: problemtype_data[0] is %T", ErrMalformedItem, data[0])
	}

	descriptions, err := arrayField(first, "description")
	if err != nil {
		return "", err
	}

	return firstEnglish(descriptions)
}

// firstEnglish returns the value of the first entry tagged lang "en".
func firstEnglish(entries []any) (string, error) {
	for i, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			return "", fmt.Errorf("%w: description entry %d is %T", ErrMalformedItem, i, e)
		}

		if lang, _ := entry["lang"].(string); lang != "en" {
			continue
		}

		return stringField(entry, "value")
	}

	return "", nil
}

// compactImpact serializes the impact object. Absent, null, or empty values yield "".
func compactImpact(raw jsoniter.RawMessage) (string, error) {
	if len(raw) == 0 || isFalsy(raw) {
		return "", nil
	}

	var v any
	if err := feedJSON.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("%w: impact: %w", ErrMalformedItem, err)
	}

	// a serialized impact blob is already text
	if s, ok := v.(string); ok {
		return s, nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", fmt.Errorf("%w: impact: %w", ErrMalformedItem, err)
	}

	return buf.String(), nil
}

func decodeValue(raw jsoniter.RawMessage, name string) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var v any
	if err := feedJSON.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedItem, name, err)
	}

	return v, nil
}

func decodeObject(raw jsoniter.RawMessage, name string) (map[string]any, error) {
	v, err := decodeValue(raw, name)
	if err != nil || v == nil {
		return nil, err
	}

	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, want object", ErrMalformedItem, name, v)
	}

	return m, nil
}

// objectField returns m[key] as an object; absent or null yields nil.
func objectField(m map[string]any, key string) (map[string]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, want object", ErrMalformedItem, key, v)
	}

	return obj, nil
}

// arrayField returns m[key] as an array; absent or null yields nil.
func arrayField(m map[string]any, key string) ([]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}

	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, want array", ErrMalformedItem, key, v)
	}

	return arr, nil
}

func stringField(m map[string]any, key string) (string, error) {
	return scalarString(m[key], key)
}

// scalarString renders a JSON scalar as text; objects and arrays are errors.
func scalarString(v any, name string) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case bool:
		return fmt.Sprint(s), nil
	case fmt.Stringer:
		return s.String(), nil
	case float64:
		return fmt.Sprint(s), nil
	default:
		return "", fmt.Errorf("%w: %s is %T, want scalar", ErrMalformedItem, name, v)
	}
}

func isNull(raw []byte) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// isFalsy reports whether raw is null or an empty object, array, or string.
func isFalsy(raw []byte) bool {
	t := bytes.TrimSpace(raw)
	if len(t) > 0 && (t[0] == '{' || t[0] == '[') {
		t = bytes.Join(bytes.Fields(t), nil)
	}

	switch string(t) {
	case "null", "{}", "[]", `""`, "false", "0":
		return true
	}

	return false
}
