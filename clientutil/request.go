package clientutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// MaxBodySize caps how much of a response body Request will read.
const MaxBodySize = 32 << 20

type StatusError int

func (se StatusError) Error() string {
	return "status " + strconv.Itoa(int(se))
}

// NetworkError is returned for anything that stops a request from producing a 2xx
// response body: DNS, TLS, timeouts, cancellation, and non-2xx statuses. For the
// latter Err is a [StatusError].
type NetworkError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Request performs a single request with no body and returns the status and the full
// response body. It does not retry.
func Request(ctx context.Context, client *http.Client, method, rawURL string) (int, []byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	neterr := &NetworkError{Method: method, URL: rawURL}
	if u, err := url.Parse(rawURL); err == nil {
		neterr.URL = Redact(u)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		neterr.Err = fmt.Errorf("create request: %w", err)
		return 0, nil, neterr
	}
	resp, err := client.Do(req)
	if err != nil {
		// the url.Error would repeat the unredacted url
		if uerr := (*url.Error)(nil); errors.As(err, &uerr) {
			err = uerr.Err
		}
		neterr.Err = err
		return 0, nil, neterr
	}
	defer resp.Body.Close()

	neterr.StatusCode = resp.StatusCode

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		neterr.Err = fmt.Errorf("read body: %w", err)
		return resp.StatusCode, nil, neterr
	}
	if resp.StatusCode/100 != 2 {
		neterr.Err = StatusError(resp.StatusCode)
		return resp.StatusCode, body, neterr
	}
	return resp.StatusCode, body, nil
}
