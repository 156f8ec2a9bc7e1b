package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/farmaleads/leads-cli/internal/campaign"
	"github.com/farmaleads/leads-cli/internal/capture"
	"github.com/farmaleads/leads-cli/internal/store"
	"github.com/farmaleads/leads-cli/internal/template"
	"github.com/farmaleads/leads-cli/pkg/supabase"
)

const (
	maxItemsMin      = 5
	maxItemsMax      = 100
	listLimitMax     = 1000
	defaultListLimit = 500
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	storeOK := s.store.Ping(r.Context()) == nil
	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "ok",
		"store":               storeOK,
		"smtp_configurado":    s.cfg.SMTP.Configured(),
		"serpapi_configurado": s.cfg.SerpAPI.Key != "",
		"auth_configurado":    s.auth != nil,
	})
}

func (s *Server) handleDefaultTemplate(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"asunto": template.DefaultSubject,
		"cuerpo": template.DefaultBody,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeError(w, http.StatusInternalServerError,
			"autenticacion no configurada: define la URL y anon key de Supabase")
		return
	}
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Nombre   string `json:"nombre"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "cuerpo JSON invalido")
		return
	}
	if body.Email == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "email y password son obligatorios")
		return
	}
	if err := s.auth.SignUp(r.Context(), body.Email, body.Password, body.Nombre); err != nil {
		writeError(w, http.StatusBadRequest, eris.Cause(err).Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"detail": "usuario registrado"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeError(w, http.StatusInternalServerError,
			"autenticacion no configurada: define la URL y anon key de Supabase")
		return
	}
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "cuerpo JSON invalido")
		return
	}
	session, err := s.auth.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		if eris.Is(err, supabase.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "credenciales invalidas")
			return
		}
		zap.L().Error("api: login failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "proveedor de identidad no disponible")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r.Context()))
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var params capture.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "cuerpo JSON invalido")
		return
	}
	if params.MaxItems != 0 && (params.MaxItems < maxItemsMin || params.MaxItems > maxItemsMax) {
		writeError(w, http.StatusBadRequest, "max_items debe estar entre 5 y 100")
		return
	}

	result, err := s.capture.Run(r.Context(), params)
	if err != nil {
		if eris.Is(err, capture.ErrInvalidParams) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		zap.L().Error("api: capture run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error guardando los leads capturados")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	filter := store.LeadFilter{Limit: defaultListLimit}
	q := r.URL.Query()

	if raw := q.Get("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			writeError(w, http.StatusBadRequest, "skip debe ser >= 0")
			return
		}
		filter.Skip = skip
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > listLimitMax {
			writeError(w, http.StatusBadRequest, "limit debe estar entre 1 y 1000")
			return
		}
		filter.Limit = limit
	}
	filter.Fuente = q.Get("fuente")
	filter.OnlyPending = q.Get("solo_pendientes") == "true"
	filter.RequireEmail = q.Get("con_email") == "true"

	leads, err := s.store.ListLeads(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: listing leads", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error consultando leads")
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	result, err := s.enrich.EnrichMissing(r.Context())
	if err != nil {
		zap.L().Error("api: enrichment run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error durante el enriquecimiento")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEmailLogs(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id de lead invalido")
		return
	}
	logs, err := s.store.ListEmailLogs(r.Context(), id, 50)
	if err != nil {
		zap.L().Error("api: listing email logs", zap.Int64("lead_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error consultando el historial")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleCampaign(w http.ResponseWriter, r *http.Request) {
	var params campaign.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "cuerpo JSON invalido")
		return
	}
	result, err := s.campaign.Send(r.Context(), params)
	if err != nil {
		zap.L().Error("api: campaign run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error durante la campana")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
