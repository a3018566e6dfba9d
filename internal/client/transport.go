package client

import (
	"context"
	"io"
	"net/http"
)

// TokenSource: откуда BearerTransport берёт токен и как его обновляет.
type TokenSource interface {
	AccessToken() string
	RefreshAccess(ctx context.Context, stale string) (string, error)
}

// BearerTransport подставляет текущий access-токен. На 401 один раз обновляет
// токен и повторяет запрос.
type BearerTransport struct {
	Base   http.RoundTripper
	Source TokenSource
}

func (t *BearerTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.Source.AccessToken()
	if token == "" {
		return t.base().RoundTrip(req)
	}

	resp, err := t.base().RoundTrip(withBearer(req, token))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// тело нельзя перечитать, повторять нечего
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}

	fresh, refreshErr := t.Source.RefreshAccess(req.Context(), token)
	if refreshErr != nil || fresh == "" {
		return resp, nil
	}

	retry := withBearer(req, fresh)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		retry.Body = body
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return t.base().RoundTrip(retry)
}

func withBearer(req *http.Request, token string) *http.Request {
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}
