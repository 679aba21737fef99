package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"unicode/utf8"

	"github.com/gorilla/mux"
)

// ErrInvalidInput is returned when a request carries an empty or
// malformed path parameter. Such requests never reach the store.
var ErrInvalidInput = errors.New("invalid input")

type getRequest struct {
	Key string
}

type setRequest struct {
	Key   string
	Value string
}

func decodeGet(r *http.Request) (getRequest, error) {
	key, err := pathParam(r, "key")
	if err != nil {
		return getRequest{}, err
	}
	return getRequest{Key: key}, nil
}

func decodeSet(r *http.Request) (setRequest, error) {
	key, err := pathParam(r, "key")
	if err != nil {
		return setRequest{}, err
	}
	value, err := pathParam(r, "value")
	if err != nil {
		return setRequest{}, err
	}
	return setRequest{Key: key, Value: value}, nil
}

// pathParam returns the percent-decoded route variable name. Routes match
// on the escaped path, so an encoded slash stays inside one parameter.
func pathParam(r *http.Request, name string) (string, error) {
	raw := mux.Vars(r)[name]
	value, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: malformed %s: %v", ErrInvalidInput, name, err)
	}
	if value == "" {
		return "", fmt.Errorf("%w: %s must not be empty", ErrInvalidInput, name)
	}
	if !utf8.ValidString(value) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidInput, name)
	}
	return value, nil
}
