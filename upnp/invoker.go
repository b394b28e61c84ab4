package upnp

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/kr/pretty"
	"github.com/pkg/errors"

	"wemo/soap"
)

const (
	DefaultTimeout = 5 * time.Second
	DefaultRetries = 2

	defaultInterval = 500 * time.Millisecond
)

// Client invokes UPnP actions on device control URLs. It holds no per-call
// state, so a single Client may be shared between goroutines.
type Client struct {
	transport     transport
	timeout       time.Duration
	retries       int
	decodeRetries int
	newBackOff    func() backoff.BackOff
	verbose       bool
}

type Option func(*Client)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetries bounds how often a transient transport failure is retried.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// WithDecodeRetries allows retrying on a malformed response. Off by default,
// a response we cannot parse usually means we are talking to the wrong thing.
func WithDecodeRetries(n int) Option {
	return func(c *Client) { c.decodeRetries = n }
}

// WithConstantBackOff waits a fixed interval between attempts.
func WithConstantBackOff(interval time.Duration) Option {
	return func(c *Client) {
		c.newBackOff = func() backoff.BackOff {
			return backoff.NewConstantBackOff(interval)
		}
	}
}

// WithExponentialBackOff grows the wait between attempts. Randomization is
// disabled so the intervals never decrease.
func WithExponentialBackOff(initial time.Duration) Option {
	return func(c *Client) {
		c.newBackOff = func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = initial
			bo.RandomizationFactor = 0
			bo.MaxElapsedTime = 0
			return bo
		}
	}
}

// WithVerbose dumps decoded results to the log.
func WithVerbose(v bool) Option {
	return func(c *Client) { c.verbose = v }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		transport: &httpTransport{client: &http.Client{}},
		timeout:   DefaultTimeout,
		retries:   DefaultRetries,
	}
	WithConstantBackOff(defaultInterval)(c)

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Invoke performs a single action round trip: validate against the registry,
// encode, send with retry, decode. The returned error is exactly one of
// *InvalidRequestError, *TransportError, *soap.Fault or *soap.DecodeError.
func (c *Client) Invoke(ctx context.Context, controlURL string, serviceName string, actionName string, args map[string]string) (*soap.Result, error) {
	svc, ok := LookupService(serviceName)
	if !ok {
		return nil, &InvalidRequestError{Reason: fmt.Sprintf("unknown service %q", serviceName)}
	}

	act, ok := svc.LookupAction(actionName)
	if !ok {
		return nil, &InvalidRequestError{Reason: fmt.Sprintf("service %q has no action %q", serviceName, actionName)}
	}

	ordered, err := orderArgs(act, args)
	if err != nil {
		return nil, err
	}

	body := soap.Encode(svc.URN, act.Name, ordered)
	soapAction := fmt.Sprintf("%q", svc.URN+"#"+act.Name)

	id := uuid.New().String()
	log.Printf("[%s] %s#%s -> %s\n", id, svc.ShortName, act.Name, controlURL)

	bo := c.newBackOff()
	sendsLeft := c.retries
	decodesLeft := c.decodeRetries

	for {
		raw, err := c.send(ctx, controlURL, soapAction, body)
		if err != nil {
			var te *TransportError
			if errors.As(err, &te) && te.Kind.retryable() && sendsLeft > 0 {
				sendsLeft--
				log.Printf("[%s] %s, retrying (%d left)\n", id, te.Kind, sendsLeft)
				if err := c.wait(ctx, bo, controlURL); err != nil {
					return nil, err
				}
				continue
			}
			return nil, err
		}

		res, err := soap.Decode(raw, svc.URN, act.Out)
		if err != nil {
			// A fault is a valid device response and never retried.
			var de *soap.DecodeError
			if errors.As(err, &de) && decodesLeft > 0 {
				decodesLeft--
				log.Printf("[%s] %v, retrying (%d left)\n", id, de, decodesLeft)
				if err := c.wait(ctx, bo, controlURL); err != nil {
					return nil, err
				}
				continue
			}
			return nil, err
		}

		if c.verbose {
			log.Printf("[%s] %s#%s done\n", id, svc.ShortName, act.Name)
			pretty.Logln(res.Values)
		}

		return res, nil
	}
}

// send runs one attempt under the per-attempt timeout.
func (c *Client) send(ctx context.Context, url string, soapAction string, body []byte) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.transport.send(callCtx, url, soapAction, body)
}

func (c *Client) wait(ctx context.Context, bo backoff.BackOff, url string) error {
	d := bo.NextBackOff()
	if d == backoff.Stop {
		return &TransportError{Kind: KindOther, URL: url, Err: errors.New("backoff exhausted")}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return &TransportError{Kind: KindCancelled, URL: url, Err: ctx.Err()}
	}
}

// orderArgs checks that the given arguments are exactly the action's declared
// inputs and puts them in declared order.
func orderArgs(act Action, args map[string]string) ([]soap.Arg, error) {
	ordered := make([]soap.Arg, 0, len(act.In))
	for _, name := range act.In {
		value, ok := args[name]
		if !ok {
			return nil, &InvalidRequestError{Reason: fmt.Sprintf("%s: missing argument %q", act.Name, name)}
		}
		ordered = append(ordered, soap.Arg{Name: name, Value: value})
	}

	if len(args) != len(act.In) {
		for name := range args {
			if !containsName(act.In, name) {
				return nil, &InvalidRequestError{Reason: fmt.Sprintf("%s: unexpected argument %q", act.Name, name)}
			}
		}
	}

	return ordered, nil
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
