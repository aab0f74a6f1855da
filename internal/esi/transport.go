// Package esi is the client for the EVE Swagger Interface, the external
// identity source. It is composed of explicit layers: a base HTTP transport,
// a retrying transport and a caching client on top.
package esi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Getter performs one GET against the external API and returns the raw body.
// Both the base transport and the retrying transport implement it, so the
// layers compose by ordinary interface composition.
type Getter interface {
	Get(ctx context.Context, path string) ([]byte, error)
}

// StatusError is returned for any non-200 response. The retry layer inspects
// the code; everything else treats it as terminal.
type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("esi: %s returned status %d", e.Path, e.Code)
}

// Transport is the base HTTP layer. One instance shares one connection pool
// across every caller.
type Transport struct {
	base      *url.URL
	client    *http.Client
	userAgent string
}

func NewTransport(baseURL string, userAgent string, client *http.Client) (*Transport, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "esi: parse base url")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Transport{
		base:      u,
		client:    client,
		userAgent: userAgent,
	}, nil
}

func (t *Transport) Get(ctx context.Context, path string) ([]byte, error) {
	u := *t.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	q := u.Query()
	q.Set("datasource", "tranquility")
	q.Set("language", "en")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "esi: build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "esi: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, Path: path}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "esi: read response")
	}
	return body, nil
}
