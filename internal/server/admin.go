package server

import (
	_ "embed"
	"net/http"
)

//go:embed admin.html
var adminPage []byte

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(adminPage)
}
