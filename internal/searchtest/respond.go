package searchtest

import (
	"encoding/json"
	"net/http"
)

const contentTypeJSON = "application/json; charset=UTF-8"

// respondJSON writes data with the given status code. HEAD responses carry
// only the status line and headers.
func respondJSON(w http.ResponseWriter, statusCode int, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)

	if _, err = w.Write(jsonData); err != nil {
		return err
	}

	return nil
}

func respondText(w http.ResponseWriter, statusCode int, text string) error {
	w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	w.WriteHeader(statusCode)

	_, err := w.Write([]byte(text))
	return err
}
