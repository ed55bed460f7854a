package utils

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the JSON envelope every endpoint writes.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// GetUintValue returns the value of a nullable uint pointer or zero if nil
func GetUintValue(u *uint) uint {
	if u == nil {
		return 0
	}
	return *u
}

// GetStringValue returns the value of a nullable string pointer or empty string if nil
func GetStringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
