package soap

import (
	"bytes"
	"encoding/xml"
)

const (
	// EnvelopeNS is the SOAP 1.1 envelope namespace.
	EnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"

	encodingStyle = "http://schemas.xmlsoap.org/soap/encoding/"
)

// Arg is a single action argument. Values travel as strings, any coercion
// (e.g. "1"/"0" for BinaryState) is up to the caller.
type Arg struct {
	Name  string
	Value string
}

// Encode builds the SOAP 1.1 request envelope for an action. The body element
// is named after the action and namespaced to the service URN, with one child
// element per argument in the order given.
//
//	<s:Envelope xmlns:s="..." s:encodingStyle="...">
//	  <s:Body>
//	    <u:SetBinaryState xmlns:u="urn:Belkin:service:basicevent:1">
//	      <BinaryState>1</BinaryState>
//	    </u:SetBinaryState>
//	  </s:Body>
//	</s:Envelope>
func Encode(urn string, action string, args []Arg) []byte {
	var buf bytes.Buffer

	buf.WriteString(xml.Header)
	buf.WriteString(`<s:Envelope xmlns:s="` + EnvelopeNS + `" s:encodingStyle="` + encodingStyle + `">`)
	buf.WriteString(`<s:Body>`)

	buf.WriteString(`<u:` + action + ` xmlns:u="`)
	xml.EscapeText(&buf, []byte(urn))
	buf.WriteString(`">`)

	for _, arg := range args {
		buf.WriteString(`<` + arg.Name + `>`)
		xml.EscapeText(&buf, []byte(arg.Value))
		buf.WriteString(`</` + arg.Name + `>`)
	}

	buf.WriteString(`</u:` + action + `>`)
	buf.WriteString(`</s:Body>`)
	buf.WriteString(`</s:Envelope>`)

	return buf.Bytes()
}
