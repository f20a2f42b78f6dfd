package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Handler exposes the pairing flow: the extension presents the pairing code
// once and receives a bearer token for every later call.
type Handler struct {
	Repo   *Repo
	Tokens TokenService
}

func NewHandler(repo *Repo, tokens TokenService) *Handler {
	return &Handler{Repo: repo, Tokens: tokens}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/pair", h.pair)
	rg.POST("/unpair", AuthMiddleware(h.Tokens, h.Repo), h.unpair)
}

// SeedPassphrase hashes and stores a configured pairing code at startup. A
// changed code replaces the stored hash and revokes existing tokens; an
// unchanged code leaves the token version alone, so restarts do not force a
// re-pair.
func (h *Handler) SeedPassphrase(ctx context.Context, passphrase string) error {
	pairing, err := h.Repo.GetPairing(ctx)
	if err != nil {
		return err
	}
	if pairing != nil && bcrypt.CompareHashAndPassword([]byte(pairing.PassphraseHash), []byte(passphrase)) == nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash pairing code: %w", err)
	}
	return h.Repo.SetPassphraseHash(ctx, string(hash))
}

type pairReq struct {
	Passphrase string `json:"passphrase"`
}

func (h *Handler) pair(c *gin.Context) {
	var req pairReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	passphrase := strings.TrimSpace(req.Passphrase)
	if passphrase == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "passphrase required"})
		return
	}

	pairing, err := h.Repo.GetPairing(c.Request.Context())
	if err != nil || pairing == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "pairing not configured"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(pairing.PassphraseHash), []byte(passphrase)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid passphrase"})
		return
	}

	token, exp, err := h.Tokens.Sign(uuid.NewString(), pairing.TokenVersion)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) unpair(c *gin.Context) {
	if err := h.Repo.BumpTokenVersion(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unpair failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unpaired"})
}
