package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/legaldrishti/backend/internal/auth"
	"github.com/legaldrishti/backend/internal/models"
)

type AuthHandler struct {
	svc *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`

	// Lawyer fields
	BarRegistrationNumber string `json:"bar_registration_number"`
	PracticeAreas         string `json:"practice_areas"`
	YearsOfExperience     int    `json:"years_of_experience"`
	CourtOfPractice       string `json:"court_of_practice"`

	// Firm fields
	FirmName           string `json:"firm_name"`
	RegistrationNumber string `json:"registration_number"`
	FirmSize           int    `json:"firm_size"`
	Website            string `json:"website"`
	Address            string `json:"address"`

	City  string `json:"city"`
	State string `json:"state"`
}

func (r registerRequest) base() auth.RegisterInput {
	return auth.RegisterInput{
		Email:    r.Email,
		Password: r.Password,
		FullName: r.FullName,
		Phone:    r.Phone,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	user, err := h.svc.Register(r.Context(), req.base())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) RegisterLawyer(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	user, err := h.svc.RegisterLawyer(r.Context(), req.base(), auth.LawyerProfileInput{
		BarRegistrationNumber: req.BarRegistrationNumber,
		PracticeAreas:         req.PracticeAreas,
		YearsOfExperience:     req.YearsOfExperience,
		CourtOfPractice:       req.CourtOfPractice,
		City:                  req.City,
		State:                 req.State,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) RegisterFirm(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	user, err := h.svc.RegisterFirm(r.Context(), req.base(), auth.FirmProfileInput{
		FirmName:           req.FirmName,
		RegistrationNumber: req.RegistrationNumber,
		FirmSize:           req.FirmSize,
		Website:            req.Website,
		Address:            req.Address,
		City:               req.City,
		State:              req.State,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// RegisterInternal creates operator accounts. The router restricts this
// route to admins.
func (h *AuthHandler) RegisterInternal(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	user, err := h.svc.RegisterInternal(r.Context(), req.base())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	tokens, user, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tokens": tokens, "user": user})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	tokens, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

// Logout acknowledges the client discarding its tokens. Tokens are
// stateless, so there is nothing to revoke server-side.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// currentUser pulls the authenticated user off the context; the JWT
// middleware guarantees it is set on protected routes.
func currentUser(r *http.Request) *models.User {
	return auth.UserFromContext(r.Context())
}
