package shares

import (
	"encoding/json"
	"net/http"

	"whispernet/internal/contextutils"
	"whispernet/internal/response"
	"whispernet/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ShareController exposes share-link creation and claiming.
type ShareController struct {
	services *services.ServiceCollection
	logger   *zap.Logger
	builder  *response.Builder
	validate *validator.Validate
}

// NewShareController creates a share controller.
func NewShareController(sc *services.ServiceCollection, logger *zap.Logger, builder *response.Builder) *ShareController {
	return &ShareController{
		services: sc,
		logger:   logger,
		builder:  builder,
		validate: validator.New(),
	}
}

type createLinkBody struct {
	StoryID     int64   `json:"story_id" validate:"required,gt=0"`
	ParentToken *string `json:"parent_token,omitempty"`
}

// CreateLink handles POST /api/v1/shares
func (c *ShareController) CreateLink(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())
	if userID == 0 {
		c.builder.WriteError(w, r, services.NewUnauthorizedError("authentication required"))
		return
	}

	var body createLinkBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		c.builder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}
	if err := c.validate.Struct(&body); err != nil {
		c.builder.WriteValidationError(w, r, "invalid share request", fieldErrors(err))
		return
	}

	result, err := c.services.GetShareService().CreateLink(r.Context(), &services.CreateLinkRequest{
		SenderID:    userID,
		StoryID:     body.StoryID,
		ParentToken: body.ParentToken,
	})
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}
	c.builder.WriteCreated(w, r, result)
}

// GetLink handles GET /api/v1/shares/{token}
func (c *ShareController) GetLink(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		c.builder.WriteError(w, r, services.NewValidationError("missing share token", nil))
		return
	}

	link, err := c.services.GetShareService().GetLinkByToken(r.Context(), token)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}
	c.builder.WriteSuccess(w, r, link)
}

// ClaimLink handles POST /api/v1/shares/{token}/claim
func (c *ShareController) ClaimLink(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())
	if userID == 0 {
		c.builder.WriteError(w, r, services.NewUnauthorizedError("authentication required"))
		return
	}

	token := chi.URLParam(r, "token")
	if token == "" {
		c.builder.WriteError(w, r, services.NewValidationError("missing share token", nil))
		return
	}

	result, err := c.services.GetShareService().ClaimLink(r.Context(), &services.ClaimLinkRequest{
		Token:  token,
		UserID: userID,
	})
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}
	c.builder.WriteSuccess(w, r, result)
}

// fieldErrors flattens validator errors into the response shape.
func fieldErrors(err error) []response.FieldError {
	var fields []response.FieldError
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields = append(fields, response.FieldError{
				Field:   fe.Field(),
				Message: fe.Error(),
				Code:    fe.Tag(),
			})
		}
	}
	return fields
}
