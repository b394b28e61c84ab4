package upnp

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/pkg/errors"
)

type transport interface {
	send(ctx context.Context, url string, soapAction string, body []byte) ([]byte, error)
}

// httpTransport performs a single blocking HTTP/1.1 POST per call. Timeouts
// come in through the context, classification of failures happens here.
type httpTransport struct {
	client *http.Client
}

func (t *httpTransport) send(ctx context.Context, url string, soapAction string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Kind: KindOther, URL: url, Err: err}
	}

	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPACTION", soapAction)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TransportError{Kind: classify(ctx, err), URL: url, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Kind: classify(ctx, err), URL: url, Err: err}
	}

	// Faults ride on HTTP 500 with a SOAP body, so anything with a body goes
	// to the codec. Only a bodyless response is a transport failure.
	if len(raw) == 0 {
		return nil, &TransportError{
			Kind: KindOther,
			URL:  url,
			Err:  errors.Errorf("%s with empty body", resp.Status),
		}
	}

	return raw, nil
}

func classify(ctx context.Context, err error) Kind {
	switch {
	case ctx.Err() == context.Canceled || errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		return KindConnectionRefused
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, io.ErrUnexpectedEOF):
		return KindConnectionReset
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}

	return KindOther
}
