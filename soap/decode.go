package soap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Result holds the decoded output arguments of a successful action response.
type Result struct {
	// Values maps every declared output argument to the string the device
	// returned, or "" when the device omitted it.
	Values map[string]string
	// Order lists the argument names in the order the device returned them,
	// omitted arguments last.
	Order []string
	// Raw is the original response envelope.
	Raw []byte
}

// Fault is a device-reported SOAP fault. It is a valid response, not a
// transport failure, and is returned to the caller as-is.
type Fault struct {
	Code   string
	String string
	Detail string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.String)
}

// DecodeError indicates a response that is not a SOAP envelope at all, or one
// with an unexpected shape. Likely a protocol mismatch rather than a
// transient failure.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode: %s: %v", e.Reason, e.Err)
	}
	return "decode: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

type envelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault *faultBody `xml:"Fault"`
		Inner []byte     `xml:",innerxml"`
	} `xml:"Body"`
}

type faultBody struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
	Detail struct {
		Inner string `xml:",innerxml"`
	} `xml:"detail"`
}

// Decode parses a response envelope. It returns the Result on success, a
// *Fault when the body carries a Fault element, and a *DecodeError for
// anything that does not look like a SOAP 1.1 response — including a
// response element outside the service's URN namespace.
func Decode(raw []byte, urn string, outArgs []string) (*Result, error) {
	var env envelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, &DecodeError{Reason: "malformed envelope", Err: err}
	}

	if env.XMLName.Space != EnvelopeNS {
		return nil, &DecodeError{Reason: fmt.Sprintf("unexpected envelope namespace %q", env.XMLName.Space)}
	}

	if env.Body.Fault != nil {
		f := env.Body.Fault
		return nil, &Fault{
			// Devices qualify the code ("s:Client"), the prefix is not
			// meaningful outside the document.
			Code:   trimPrefix(f.Code),
			String: f.String,
			Detail: strings.TrimSpace(f.Detail.Inner),
		}
	}

	returned, err := responseArgs(env.Body.Inner, urn)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Values: make(map[string]string, len(outArgs)),
		Raw:    raw,
	}

	declared := make(map[string]bool, len(outArgs))
	for _, name := range outArgs {
		declared[name] = true
		res.Values[name] = ""
	}
	for _, arg := range returned {
		if declared[arg.Name] {
			res.Values[arg.Name] = arg.Value
			res.Order = append(res.Order, arg.Name)
			delete(declared, arg.Name)
		}
	}
	// Omitted output arguments keep their declared order at the end.
	for _, name := range outArgs {
		if declared[name] {
			res.Order = append(res.Order, name)
		}
	}

	return res, nil
}

// responseArgs walks the body contents and collects the children of the
// action response element in document order.
func responseArgs(inner []byte, urn string) ([]Arg, error) {
	dec := xml.NewDecoder(bytes.NewReader(inner))

	// Find the response element itself.
	var found bool
	for !found {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, &DecodeError{Reason: "body contains no response element"}
		}
		if err != nil {
			return nil, &DecodeError{Reason: "malformed body", Err: err}
		}
		if start, ok := tok.(xml.StartElement); ok {
			if start.Name.Space != urn {
				return nil, &DecodeError{Reason: fmt.Sprintf("response element %q in namespace %q, want %q", start.Name.Local, start.Name.Space, urn)}
			}
			found = true
		}
	}

	var args []Arg
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, &DecodeError{Reason: "truncated response element"}
		}
		if err != nil {
			return nil, &DecodeError{Reason: "malformed response element", Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			var value string
			if err := dec.DecodeElement(&value, &t); err != nil {
				return nil, &DecodeError{Reason: fmt.Sprintf("bad value for %q", t.Name.Local), Err: err}
			}
			args = append(args, Arg{Name: t.Name.Local, Value: value})
		case xml.EndElement:
			// End of the response element.
			return args, nil
		}
	}
}

func trimPrefix(code string) string {
	if i := strings.LastIndex(code, ":"); i >= 0 {
		return code[i+1:]
	}
	return code
}
