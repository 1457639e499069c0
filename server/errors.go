package server

import (
	"encoding/json"
	"errors"
	"evroam/utility"
	"net/http"
)

type errorResponse struct {
	Error string `json:"error"`
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, utility.ErrInvalidStatus), errors.Is(err, utility.ErrInvalidProperty):
		return http.StatusBadRequest
	case errors.Is(err, utility.ErrUnknownEntity):
		return http.StatusNotFound
	case errors.Is(err, utility.ErrAlreadyRegistered), errors.Is(err, utility.ErrAlreadyOpen):
		return http.StatusConflict
	case errors.Is(err, utility.ErrOutOfOrderUpdate):
		return http.StatusConflict
	case errors.Is(err, utility.ErrEntityRetired):
		return http.StatusGone
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}
