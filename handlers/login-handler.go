package handlers

import (
	"encoding/json"
	"net/http"

	"tracker-project/tracker-service/logging"
	"tracker-project/tracker-service/models"
	"tracker-project/tracker-service/services"
	"tracker-project/tracker-service/utils"

	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// LoginHandler is the mock authentication collaborator: it checks the
// fixture credentials and issues a token carrying the identity the engine
// authorizes against. It is a stand-in, not a security boundary.
type LoginHandler struct {
	users []models.User
}

func NewLoginHandler(users []models.User) *LoginHandler {
	return &LoginHandler{users: users}
}

func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	hash, ok := services.CredentialHash(req.Email)
	if !ok {
		logging.Logger.Warnf("Event ID: LOGIN_UNKNOWN_USER, Description: Login attempt for unknown email %s", req.Email)
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(req.Password)); err != nil {
		logging.Logger.Warnf("Event ID: LOGIN_BAD_PASSWORD, Description: Failed login attempt for %s", req.Email)
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	var user models.User
	for _, u := range h.users {
		if u.Email == req.Email {
			user = u
			break
		}
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		logging.Logger.Errorf("Event ID: TOKEN_GENERATION_FAILED, Description: Could not generate token for %s: %v", req.Email, err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	logging.Logger.Infof("Event ID: LOGIN_SUCCESS, Description: User %s logged in as %s", user.ID, user.Role)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{Token: token, User: user})
}
