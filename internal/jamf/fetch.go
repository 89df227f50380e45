package jamf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
)

const (
	classicPrefix = "/JSSResource/"

	mimeJSON = "application/json"
	mimeXML  = "application/xml"
)

// Format tags which branch of a Payload is populated.
type Format int

const (
	FormatJSON Format = iota + 1
	FormatXML
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatXML:
		return "xml"
	}
	return "unknown"
}

// Payload is a decoded Classic API response. Exactly one of JSON or XML is
// set, as indicated by Format.
type Payload struct {
	Format Format

	// JSON holds the decoded document. Numbers are json.Number.
	JSON any

	// XML is the document's root element.
	XML *etree.Element
}

func jsonPayload(document any) *Payload {
	return &Payload{Format: FormatJSON, JSON: document}
}

func xmlPayload(root *etree.Element) *Payload {
	return &Payload{Format: FormatXML, XML: root}
}

// Fetch retrieves a Classic API resource, preferring JSON and falling back
// to XML for the same path. Some server versions ignore content
// negotiation on parts of the Classic API, so callers must handle both.
func (c *Client) Fetch(ctx context.Context, path string) (*Payload, error) {
	resource := classicPrefix + strings.TrimLeft(path, "/")

	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := req.SetHeader("Accept", mimeJSON).Get(resource)
	if err != nil {
		return nil, &FetchError{Path: resource, Err: err}
	}

	if resp.IsSuccess() && hasMediaType(resp.Header().Get("Content-Type"), "json") {
		document, err := decodeJSON(resp.Body())
		if err == nil {
			logrus.WithFields(logrus.Fields{
				"path":   resource,
				"format": FormatJSON,
			}).Debugln("Fetched resource")
			return jsonPayload(document), nil
		}
		logrus.WithField("path", resource).WithError(err).Debugln("Malformed JSON response, retrying as XML")
	}

	req, err = c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	resp, err = req.SetHeader("Accept", mimeXML).Get(resource)
	if err != nil {
		return nil, &FetchError{Path: resource, Err: err}
	}

	if resp.IsSuccess() && hasMediaType(resp.Header().Get("Content-Type"), "xml") {
		document := etree.NewDocument()
		if err := document.ReadFromBytes(resp.Body()); err != nil {
			return nil, &FetchError{
				Path:       resource,
				StatusCode: resp.StatusCode(),
				Err:        fmt.Errorf("failed to parse XML: %w", err),
			}
		}
		root := document.Root()
		if root == nil {
			return nil, &FetchError{
				Path:       resource,
				StatusCode: resp.StatusCode(),
				Err:        errors.New("XML document has no root element"),
			}
		}
		logrus.WithFields(logrus.Fields{
			"path":   resource,
			"format": FormatXML,
		}).Debugln("Fetched resource")
		return xmlPayload(root), nil
	}

	return nil, &FetchError{
		Path:       resource,
		StatusCode: resp.StatusCode(),
		Body:       truncateBody(resp.String()),
	}
}

func decodeJSON(body []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var document any
	if err := decoder.Decode(&document); err != nil {
		return nil, err
	}
	return document, nil
}

// hasMediaType reports whether a Content-Type header names a json or xml
// media type, including suffixed types such as application/problem+json.
func hasMediaType(contentType string, kind string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(contentType)
	}
	return strings.Contains(mediaType, kind)
}
