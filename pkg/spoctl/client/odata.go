package client

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
)

// unwrapOData strips the {d:{results:[...]}}, {d:{...}} and {value:[...]}
// envelopes SharePoint wraps payloads in depending on the accept header.
func unwrapOData(body []byte) []byte {
	var envelope struct {
		D     json.RawMessage `json:"d"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return body
	}
	if len(envelope.D) > 0 {
		var verbose struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(envelope.D, &verbose); err == nil && len(verbose.Results) > 0 {
			return verbose.Results
		}
		return envelope.D
	}
	if len(envelope.Value) > 0 && bytes.HasPrefix(bytes.TrimSpace(envelope.Value), []byte("[")) {
		return envelope.Value
	}
	return body
}

type odataMessage struct {
	Value string `json:"value"`
}

type odataError struct {
	Code    string          `json:"code"`
	Message json.RawMessage `json:"message"`
}

func (e *odataError) text() string {
	if e == nil || len(e.Message) == 0 {
		return ""
	}
	var plain string
	if err := json.Unmarshal(e.Message, &plain); err == nil {
		return plain
	}
	var msg odataMessage
	if err := json.Unmarshal(e.Message, &msg); err == nil {
		return msg.Value
	}
	return ""
}

// decodeError turns an error response into an *HTTPError, preferring the
// OData error message over the raw body.
func decodeError(resp *http.Response, body []byte) error {
	var verbose struct {
		Error json.RawMessage `json:"error"`
	}
	var nometadata struct {
		Error *odataError `json:"odata.error"`
	}
	msg := ""
	if len(body) > 0 {
		if err := json.Unmarshal(body, &nometadata); err == nil {
			msg = nometadata.Error.text()
		}
		if msg == "" {
			if err := json.Unmarshal(body, &verbose); err == nil && len(verbose.Error) > 0 {
				var structured odataError
				if err := json.Unmarshal(verbose.Error, &structured); err == nil {
					msg = structured.text()
				} else {
					_ = json.Unmarshal(verbose.Error, &msg)
				}
			}
		}
	}
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = resp.Status
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: msg}
}
