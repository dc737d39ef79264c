package server

import (
	"net/http"
	"strings"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteInstitutions, ChainMiddleware(s.InstitutionsHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteMain, ChainMiddleware(s.MainHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteAgreements, ChainMiddleware(s.AgreementsHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteResults, ChainMiddleware(s.ResultsHandler(), s.HTMLMiddleWare()...))

	s.RegisterRouteHandler("GET "+RouteStaticCSS, ChainMiddleware(s.serveFileHandler(), s.HTMLMiddleWare()...))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := strings.TrimPrefix(r.URL.Path, "/")
		if filePath == "" {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		err := StreamFile(w, r, filePath)
		if err != nil {
			logError("GET", filePath, err.Error())
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
	}
}
