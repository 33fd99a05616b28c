package ews

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/njoerd114/ewsync/internal/auth"
)

// Caller executes a single EWS operation: it wraps req in a SOAP envelope,
// posts it to the endpoint, and unmarshals the response body into resp.
// Implemented by [HTTPCaller]; replaced by a fake in tests.
type Caller interface {
	Call(ctx context.Context, req, resp any) error
}

const (
	nsSoap     = "http://schemas.xmlsoap.org/soap/envelope/"
	nsMessages = "http://schemas.microsoft.com/exchange/services/2006/messages"
	nsTypes    = "http://schemas.microsoft.com/exchange/services/2006/types"

	// requestVersion is sent in the RequestServerVersion SOAP header.
	requestVersion = "Exchange2013_SP1"
)

// reqEnvelope is the outgoing SOAP envelope. Namespace prefixes are declared
// here and referenced literally in the operation structs' element names.
type reqEnvelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	NSSoap  string   `xml:"xmlns:soap,attr"`
	NSM     string   `xml:"xmlns:m,attr"`
	NST     string   `xml:"xmlns:t,attr"`
	Header  reqHeader
	Body    reqBody
}

type reqHeader struct {
	XMLName xml.Name `xml:"soap:Header"`
	Version struct {
		Version string `xml:"Version,attr"`
	} `xml:"t:RequestServerVersion"`
}

type reqBody struct {
	XMLName xml.Name `xml:"soap:Body"`
	Payload any
}

// respEnvelope captures the response body as raw inner XML so the operation
// response can be unmarshalled after fault detection.
type respEnvelope struct {
	Body struct {
		Fault *soapFault `xml:"Fault"`
		Inner []byte     `xml:",innerxml"`
	} `xml:"Body"`
}

type soapFault struct {
	Code         string `xml:"faultcode"`
	Text         string `xml:"faultstring"`
	ResponseCode string `xml:"detail>ResponseCode"`
}

// HTTPCaller posts SOAP envelopes to a real EWS endpoint over HTTP, with the
// Authorization header fetched from the token provider on every call so that
// refresh happens transparently.
type HTTPCaller struct {
	endpoint string
	tokens   auth.TokenProvider
	hc       *http.Client
}

// NewHTTPCaller creates a Caller for the given endpoint URL. A nil hc uses a
// client with a 60 second timeout; call timeouts surface as retryable
// network errors.
func NewHTTPCaller(endpoint string, tokens auth.TokenProvider, hc *http.Client) *HTTPCaller {
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPCaller{endpoint: endpoint, tokens: tokens, hc: hc}
}

// Call implements [Caller].
func (c *HTTPCaller) Call(ctx context.Context, req, resp any) error {
	env := reqEnvelope{
		NSSoap: nsSoap,
		NSM:    nsMessages,
		NST:    nsTypes,
	}
	env.Header.Version.Version = requestVersion
	env.Body.Payload = req

	payload, err := xml.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshalling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		bytes.NewReader(append([]byte(xml.Header), payload...)))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")

	authz, err := c.tokens.AuthorizationHeader(ctx)
	if err != nil {
		return fmt.Errorf("resolving credentials: %w", err)
	}
	httpReq.Header.Set("Authorization", authz)

	httpResp, err := c.hc.Do(httpReq)
	if err != nil {
		return err
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	// EWS reports SOAP faults with status 500, so parse the fault before
	// deciding on the status code: a fault carries the response code the
	// retry classifier needs.
	var env2 respEnvelope
	envErr := xml.Unmarshal(body, &env2)
	if envErr == nil && env2.Body.Fault != nil {
		f := env2.Body.Fault
		code := f.ResponseCode
		if code == "" {
			code = f.Code
		}
		return &Fault{ResponseCode: code, Message: f.Text}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return &StatusError{StatusCode: httpResp.StatusCode}
	}
	if envErr != nil {
		return fmt.Errorf("parsing response envelope: %w", envErr)
	}

	if err := xml.Unmarshal(env2.Body.Inner, resp); err != nil {
		return fmt.Errorf("unmarshalling response: %w", err)
	}
	return nil
}
