package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/banklink/go-bank-link/aggregator"
	apperrors "github.com/banklink/go-bank-link/internal/errors"
	"github.com/banklink/go-bank-link/server/browsersession"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json"

	// authNotMadeMessage is shown when the user lands on /results
	// without having completed the consent flow.
	authNotMadeMessage = "Authorization to the bank was not made. Try again."
)

// InstitutionsPageData contains data for rendering the institutions page
type InstitutionsPageData struct {
	AppName           string
	Country           string
	ErrorNotification string
	Institutions      []aggregator.Institution
}

// InstitutionsHandler lists the banks available to link (GET /).
// An optional country query narrows the listing; an optional
// error_notification query is shown in the alert box.
func (s *Server) InstitutionsHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("countries.html")
	if err != nil {
		panic("Failed to parse countries template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := s.ensureBrowserSession(w, r)
		if err != nil {
			http.Error(w, "Failed to start session", http.StatusInternalServerError)
			return
		}

		country := r.URL.Query().Get("country")
		institutions, err := s.flow.Institutions(r.Context(), sessionID, country)
		if err != nil {
			s.renderError(w, err)
			return
		}

		data := InstitutionsPageData{
			AppName:           s.config.GetAppName(),
			Country:           country,
			ErrorNotification: r.URL.Query().Get("error_notification"),
			Institutions:      institutions,
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := tmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render countries template")
		}
	}
}

// MainHandler renders the landing page with the country chooser
// (GET /main).
func (s *Server) MainHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("main.html")
	if err != nil {
		panic("Failed to parse main template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data := map[string]interface{}{
			"AppName": s.config.GetAppName(),
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		_ = tmpl.Execute(w, data)
	}
}

// AgreementsHandler creates a consent agreement with the selected bank
// and redirects the user to its authentication page
// (GET /agreements/{institution_id}).
func (s *Server) AgreementsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		institutionID := r.PathValue("institution_id")
		if institutionID == "" {
			http.Redirect(w, r, RouteInstitutions, http.StatusSeeOther)
			return
		}

		sessionID, err := s.ensureBrowserSession(w, r)
		if err != nil {
			http.Error(w, "Failed to start session", http.StatusInternalServerError)
			return
		}

		agreement, err := s.flow.StartAgreement(r.Context(), sessionID, institutionID)
		if err != nil {
			s.renderError(w, err)
			return
		}

		now := time.Now()
		session := browsersession.Session{
			RequisitionID: agreement.RequisitionID,
			InstitutionID: agreement.InstitutionID,
			CreatedAt:     now,
			ExpiresAt:     now.Add(time.Duration(s.config.GetSessionMaxAge()) * time.Second),
		}
		if err := s.sessions.Upsert(sessionID, session); err != nil {
			log.Err(err).Msg("Failed to store browser session")
			http.Error(w, "Failed to store session", http.StatusInternalServerError)
			return
		}

		// The user authenticates with their bank out-of-band; the
		// aggregator redirects them back to /results afterwards.
		http.Redirect(w, r, agreement.ConsentLink, http.StatusSeeOther)
	}
}

// ResultsHandler renders the data fetched for every account linked
// under the session's requisition (GET /results). Reaching it without
// a requisition in the session is not a hard error: the user is routed
// back to the institutions page with a notification.
func (s *Server) ResultsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := s.browserSessionID(r)
		if !ok {
			redirectWithNotification(w, r, authNotMadeMessage)
			return
		}

		session, err := s.sessions.Get(sessionID)
		if err != nil || session.RequisitionID == "" {
			redirectWithNotification(w, r, authNotMadeMessage)
			return
		}

		bundles, err := s.flow.Results(r.Context(), sessionID, session.RequisitionID)
		if err != nil {
			s.renderError(w, err)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		if err := json.NewEncoder(w).Encode(bundles); err != nil {
			log.Err(err).Msg("Failed to encode results payload")
		}
	}
}

// ErrorPageData contains data for rendering the error page
type ErrorPageData struct {
	StatusCode int
	Detail     string
}

// renderError maps a failed upstream call onto the error page. A
// normalized *APIError carries its own status and detail; a malformed
// upstream error body is reported as a generic bad gateway instead of
// crashing the request.
func (s *Server) renderError(w http.ResponseWriter, err error) {
	data := ErrorPageData{
		StatusCode: http.StatusInternalServerError,
		Detail:     "Something went wrong. Try again.",
	}

	var apiErr *aggregator.APIError
	switch {
	case apperrors.As(err, &apiErr):
		data.StatusCode = apiErr.StatusCode
		data.Detail = apiErr.Detail
	case apperrors.Is(err, apperrors.ErrMalformedUpstream):
		data.StatusCode = http.StatusBadGateway
		data.Detail = "The banking service returned an unreadable error."
	}

	log.Error().Err(err).Int("status_code", data.StatusCode).Msg("request failed")

	tmpl, tmplErr := ParseTemplate("error_display.html")
	if tmplErr != nil {
		http.Error(w, data.Detail, data.StatusCode)
		return
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(data.StatusCode)
	if err := tmpl.Execute(w, data); err != nil {
		log.Err(err).Msg("Failed to render error template")
	}
}

func redirectWithNotification(w http.ResponseWriter, r *http.Request, message string) {
	target := RouteInstitutions + "?error_notification=" + url.QueryEscape(message)
	http.Redirect(w, r, target, http.StatusSeeOther)
}
