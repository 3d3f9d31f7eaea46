package core

import (
	"net/http"

	"github.com/joeydtaylor/steeze-command/pkg/codec"
)

func writeBody(w http.ResponseWriter, c codec.Codec, v any, status int) {
	b, err := c.Marshal(v)
	if err != nil {
		http.Error(w, "encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", c.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, c codec.Codec, err error) {
	code, status := ErrorCode(err)
	writeBody(w, c, ErrorBody{Code: code, Error: err.Error()}, status)
}
