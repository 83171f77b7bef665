package tariff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tradetariff/uktt/internal/jsonapi"
)

// Format selects how a response body is returned.
type Format string

// Supported output formats.
const (
	FormatJSON    Format = "json"
	FormatObject  Format = "object"
	FormatJSONAPI Format = "jsonapi"
)

// Formats lists the supported output formats.
var Formats = []Format{FormatJSON, FormatObject, FormatJSONAPI}

// ErrInvalidFormat is returned for an unknown output format.
var ErrInvalidFormat = errors.New("specified invalid format")

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w %s", ErrInvalidFormat, s)
}

// Response is a fetched resource in one of the output formats. Exactly one
// of Raw, Object or Document is the primary value; Raw is always set.
type Response struct {
	Format   Format
	Raw      []byte
	Object   any
	Document *jsonapi.Document
}

// Value returns the format-specific value: the raw body as a string, the
// generic decoded tree, or the JSON:API document.
func (r *Response) Value() any {
	switch r.Format {
	case FormatObject:
		return r.Object
	case FormatJSONAPI:
		return r.Document
	default:
		return string(r.Raw)
	}
}

// Parse decodes body according to format.
func Parse(body []byte, format Format) (*Response, error) {
	resp := &Response{Format: format, Raw: body}
	switch format {
	case FormatJSON:
	case FormatObject:
		if err := json.Unmarshal(body, &resp.Object); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	case FormatJSONAPI:
		doc, err := jsonapi.Parse(body)
		if err != nil {
			return nil, err
		}
		resp.Document = doc
	default:
		return nil, fmt.Errorf("%w %s", ErrInvalidFormat, format)
	}
	return resp, nil
}

// Retrieve fetches resource and parses it in the client's output format.
func (c *Client) Retrieve(ctx context.Context, resource string) (*Response, error) {
	return c.RetrieveAs(ctx, resource, c.format)
}

// RetrieveAs fetches resource and parses it in the given format.
func (c *Client) RetrieveAs(ctx context.Context, resource string, format Format) (*Response, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	body, err := c.Get(ctx, resource)
	if err != nil {
		return nil, err
	}
	if format == FormatJSONAPI && c.validate {
		if err := ValidateDocument(body); err != nil {
			return nil, err
		}
	}
	return Parse(body, format)
}

// Graph fetches resource as a JSON:API document and indexes it.
func (c *Client) Graph(ctx context.Context, resource string) (*Graph, error) {
	resp, err := c.RetrieveAs(ctx, resource, FormatJSONAPI)
	if err != nil {
		return nil, err
	}
	return NewGraph(resp.Document)
}
