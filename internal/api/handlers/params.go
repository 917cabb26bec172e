package handlers

import (
	"net/http"
	"strconv"

	"github.com/aaravmahajanofficial/storefront/internal/errors"
)

// pathID reads a positive integer path parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	if raw == "" {
		return 0, errors.BadRequestError("Missing path parameter '" + name + "'")
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.BadRequestError("Invalid path parameter '" + name + "'").WithDetail(raw)
	}

	return id, nil
}

// pathValue reads a required string path parameter.
func pathValue(r *http.Request, name string) (string, error) {
	v := r.PathValue(name)
	if v == "" {
		return "", errors.BadRequestError("Missing path parameter '" + name + "'")
	}

	return v, nil
}
