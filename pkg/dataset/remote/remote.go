// Client for the annotation service datasets are pulled from.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

var ErrProfileInvalid = errors.New("profile is invalid")

// Profile points at one annotation service endpoint.
type Profile struct {
	// endpoint of the annotation service
	ApiRoot string `yaml:"apiRoot"`

	// credential sent as "Authorization: ApiKey <key>"
	ApiKey string `yaml:"apiKey,omitempty"`
}

// Verify Profile.
//
// # Return
//
// nil if it is valid. Otherwise, ErrProfileInvalid error.
func (p *Profile) Verify() error {
	if u, err := url.Parse(p.ApiRoot); err != nil || !u.IsAbs() {
		return fmt.Errorf("%w: apiRoot is not URL: %s", ErrProfileInvalid, p.ApiRoot)
	}
	return nil
}

type Client interface {
	// ListAnnotations lists the stems of the annotation files in a
	// remote dataset.
	//
	// Args
	//
	// - context.Context
	//
	// - string: slug of the dataset to be listed
	//
	// Returns
	//
	// - []string: stems, in server order
	//
	// - error
	ListAnnotations(ctx context.Context, slug string) ([]string, error)

	// GetAnnotation downloads one annotation file.
	//
	// Args
	//
	// - string: slug of the dataset holding the annotation
	//
	// - string: stem of the annotation to be downloaded
	//
	// Returns
	//
	// - []byte: raw annotation JSON
	//
	// - error
	GetAnnotation(ctx context.Context, slug string, stem string) ([]byte, error)
}

type client struct {
	httpclient *http.Client
	api        string
	apikey     string
}

// create new client for Profile
//
// # Return
//
// - Client: created client
//
// - error: If given profile is invalid, ErrProfileInvalid is returned.
func NewClient(prof *Profile) (Client, error) {
	if err := prof.Verify(); err != nil {
		return nil, err
	}

	return &client{
		httpclient: new(http.Client),
		api:        strings.TrimSuffix(prof.ApiRoot, "/"),
		apikey:     prof.ApiKey,
	}, nil
}

// build URL with path
func (c *client) apipath(path ...string) string {
	parts := []string{c.api}
	for _, p := range path {
		parts = append(parts, strings.TrimPrefix(strings.TrimSuffix(p, "/"), "/"))
	}
	return strings.Join(parts, "/")
}

func (c *client) newRequest(ctx context.Context, method string, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	if c.apikey != "" {
		req.Header.Set("Authorization", "ApiKey "+c.apikey)
	}
	return req, nil
}

func (c *client) ListAnnotations(ctx context.Context, slug string) ([]string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.apipath("datasets", slug, "annotations"))
	if err != nil {
		return nil, err
	}
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	listing := struct {
		Items []struct {
			Stem string `json:"stem"`
		} `json:"items"`
	}{}
	if err := unmarshalJsonResponse(
		resp, &listing,
		MessageFor{
			Status4xx: fmt.Sprintf("listing dataset %s is rejected by server (status code = %d)", slug, resp.StatusCode),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return nil, err
	}

	stems := make([]string, 0, len(listing.Items))
	for _, item := range listing.Items {
		stems = append(stems, item.Stem)
	}
	return stems, nil
}

func (c *client) GetAnnotation(ctx context.Context, slug string, stem string) ([]byte, error) {
	req, err := c.newRequest(
		ctx, http.MethodGet, c.apipath("datasets", slug, "annotations", stem),
	)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return unmarshalStreamResponse(
		resp,
		MessageFor{
			Status4xx: fmt.Sprintf("downloading %s/%s is rejected by server (status code = %d)", slug, stem, resp.StatusCode),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	)
}

type MessageFor map[StatusCodeRange]string

// unmarshal http response which has json content.
//
// return: error if the body cannot be read, is not shaped like v, or
// the status code is in 4xx or 5xx.
func unmarshalJsonResponse[T any](resp *http.Response, v *T, messageFor MessageFor) error {
	scr := StatusCodeRangeOf(resp)
	if scr <= Status2xx {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return fmt.Errorf(
				"unexpected response: %w (status code = %d)", err, resp.StatusCode,
			)
		}
		return nil
	}
	return errorFromResponse(resp, scr, messageFor)
}

func unmarshalStreamResponse(resp *http.Response, messageFor MessageFor) ([]byte, error) {
	scr := StatusCodeRangeOf(resp)
	if scr <= Status2xx {
		return io.ReadAll(resp.Body)
	}
	return nil, errorFromResponse(resp, scr, messageFor)
}

func errorFromResponse(resp *http.Response, scr StatusCodeRange, messageFor MessageFor) error {
	message, ok := messageFor[scr]
	if !ok {
		message = scr.String()
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s; cannot read server message: %w", message, err)
	}

	detail := struct {
		Message *string `json:"message"`
	}{}
	if err := json.Unmarshal(body, &detail); err == nil && detail.Message != nil {
		return fmt.Errorf("%s: %s", message, *detail.Message)
	}
	return fmt.Errorf("%s: %s", message, string(body))
}

type StatusCodeRange int

func (sc StatusCodeRange) String() string {
	switch sc {
	case Status1xx:
		return "informational response"
	case Status2xx:
		return "success"
	case Status3xx:
		return "redirect"
	case Status4xx:
		return "client error"
	case Status5xx:
		return "server error"
	default:
		return fmt.Sprintf("unknown (%d)", sc)
	}
}

func StatusCodeRangeOf(resp *http.Response) StatusCodeRange {
	sc := resp.StatusCode
	if sc < 200 {
		return Status1xx
	}
	if sc < 300 {
		return Status2xx
	}
	if sc < 400 {
		return Status3xx
	}
	if sc < 500 {
		return Status4xx
	}
	if sc < 600 {
		return Status5xx
	}
	return StatusUnknown
}

const (
	StatusUnknown StatusCodeRange = iota
	Status1xx
	Status2xx
	Status3xx
	Status4xx
	Status5xx
)
