package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"lovink/backend/internal/models"
)

// PersonaService manages personas and active partners
type PersonaService interface {
	List(ctx context.Context, userID string) ([]models.Persona, error)
	Create(ctx context.Context, userID string, req *models.CreatePersonaRequest) (*models.Persona, error)
	Partners(ctx context.Context, userID string) ([]models.Partner, error)
	Activate(ctx context.Context, userID, personaID string, req models.ActivatePartnerRequest) (*models.Partner, error)
	Deactivate(ctx context.Context, userID, personaID string) error
	AnalyzePortrait(ctx context.Context, image string) models.PortraitAnalysis
}

// PersonaController handles persona and partner endpoints
type PersonaController struct {
	personas PersonaService
}

// NewPersonaController creates a new persona controller
func NewPersonaController(personas PersonaService) *PersonaController {
	return &PersonaController{personas: personas}
}

// RegisterRoutes registers the persona routes on an authenticated group
func (pc *PersonaController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/personas", pc.ListPersonas)
	rg.POST("/personas", pc.CreatePersona)
	rg.POST("/personas/analyze", pc.AnalyzePortrait)

	rg.GET("/partners", pc.ListPartners)
	rg.PUT("/partners/:personaId", pc.ActivatePartner)
	rg.DELETE("/partners/:personaId", pc.DeactivatePartner)
}

func (pc *PersonaController) ListPersonas(c *gin.Context) {
	personas, err := pc.personas.List(c.Request.Context(), userID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"personas": personas})
}

func (pc *PersonaController) CreatePersona(c *gin.Context) {
	var req models.CreatePersonaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := pc.personas.Create(c.Request.Context(), userID(c), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// AnalyzePortrait always answers 200; a failed analysis yields the fallback
func (pc *PersonaController) AnalyzePortrait(c *gin.Context) {
	var req models.AnalyzePortraitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, pc.personas.AnalyzePortrait(c.Request.Context(), req.Image))
}

func (pc *PersonaController) ListPartners(c *gin.Context) {
	partners, err := pc.personas.Partners(c.Request.Context(), userID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"partners": partners})
}

// ActivatePartner activates a persona or edits an active partner's nickname
// and style. The body is optional.
func (pc *PersonaController) ActivatePartner(c *gin.Context) {
	var req models.ActivatePartnerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	p, err := pc.personas.Activate(c.Request.Context(), userID(c), c.Param("personaId"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (pc *PersonaController) DeactivatePartner(c *gin.Context) {
	if err := pc.personas.Deactivate(c.Request.Context(), userID(c), c.Param("personaId")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
