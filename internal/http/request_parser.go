// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for decoding and validating request bodies
// and query parameters.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"finx/internal/core"
	"finx/internal/session"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

var (
	errMalformedBody = errors.New("malformed JSON body")
	errDerivedField  = errors.New("derived field is read-only")
	errInvalidInput  = errors.New("invalid input")
)

// readBody reads the capped request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return body, nil
}

// decodeJSON decodes a JSON object body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	return unmarshalObject(body, dst)
}

func unmarshalObject(body []byte, dst any) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return fmt.Errorf("%w: empty body", errMalformedBody)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

// decodeRawFields decodes a JSON object body that may only carry raw
// snapshot fields. Any derived field in the top-level object is rejected.
func decodeRawFields(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}

	var keys map[string]json.RawMessage
	if err := unmarshalObject(body, &keys); err != nil {
		return err
	}
	for key := range keys {
		if session.IsDerivedField(key) {
			return fmt.Errorf("%w: %s", errDerivedField, key)
		}
	}
	return unmarshalObject(body, dst)
}

// queryInt parses an integer query parameter, returning def when absent.
func queryInt(q url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errInvalidInput, key)
	}
	return n, nil
}

// queryAmount parses a money or rate query parameter with core.ParseAmount,
// returning def when absent.
func queryAmount(q url.Values, key string, def float64) (float64, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	amount, err := core.ParseAmount(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return amount, nil
}
