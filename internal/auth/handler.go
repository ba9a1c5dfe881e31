package auth

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/terravest/terravest/internal/identity"
	"github.com/terravest/terravest/internal/ledger"
)

// Handler exposes registration and login endpoints.
type Handler struct {
	ids    *identity.Service
	issuer *Issuer
	ledger ledger.Ledger
	ttl    time.Duration
}

// NewHandler constructs an auth handler. The ledger is used to open the
// user's wallet at registration time so every account starts with one.
func NewHandler(ids *identity.Service, issuer *Issuer, l ledger.Ledger, ttl time.Duration) *Handler {
	return &Handler{ids: ids, issuer: issuer, ledger: l, ttl: ttl}
}

type registerRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	ReferralCode string `json:"referral_code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	KYCStatus   string `json:"kyc_status"`
	WalletID    string `json:"wallet_id,omitempty"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Register creates a user with a pending KYC status, opens their wallet and
// returns a signed access token.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" {
		return fiber.NewError(http.StatusBadRequest, "email is required")
	}

	user, err := h.ids.Register(c.UserContext(), identity.Credentials{
		Email:        req.Email,
		Password:     req.Password,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	w, err := h.ledger.CreateWallet(c.UserContext(), user.ID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	token, err := h.issuer.Issue(user)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(authResponse{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        user.Role,
		KYCStatus:   user.KYCStatus,
		WalletID:    w.ID,
		AccessToken: token,
		ExpiresIn:   int64(h.ttl.Seconds()),
	})
}

// Login validates credentials and returns a signed access token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	user, err := h.ids.Authenticate(c.UserContext(), identity.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}

	token, err := h.issuer.Issue(user)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	resp := authResponse{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        user.Role,
		KYCStatus:   user.KYCStatus,
		AccessToken: token,
		ExpiresIn:   int64(h.ttl.Seconds()),
	}
	if w, err := h.ledger.GetByOwner(c.UserContext(), user.ID); err == nil {
		resp.WalletID = w.ID
	}
	return c.Status(http.StatusOK).JSON(resp)
}
