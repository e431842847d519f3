package stories

import (
	"encoding/json"
	"net/http"
	"strconv"

	"whispernet/internal/contextutils"
	"whispernet/internal/response"
	"whispernet/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// StoryController exposes the reader actions on stories.
type StoryController struct {
	services *services.ServiceCollection
	logger   *zap.Logger
	builder  *response.Builder
	validate *validator.Validate
}

// NewStoryController creates a story controller.
func NewStoryController(sc *services.ServiceCollection, logger *zap.Logger, builder *response.Builder) *StoryController {
	return &StoryController{
		services: sc,
		logger:   logger,
		builder:  builder,
		validate: validator.New(),
	}
}

// GetStory handles GET /api/v1/stories/{storyID}
func (c *StoryController) GetStory(w http.ResponseWriter, r *http.Request) {
	storyID, ok := c.storyID(w, r)
	if !ok {
		return
	}

	story, err := c.services.GetStoryService().GetStory(r.Context(), storyID)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}
	c.builder.WriteSuccess(w, r, story)
}

type finishBody struct {
	Timezone string `json:"timezone" validate:"omitempty,max=64"`
}

// FinishStory handles POST /api/v1/stories/{storyID}/finish
func (c *StoryController) FinishStory(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())
	if userID == 0 {
		c.builder.WriteError(w, r, services.NewUnauthorizedError("authentication required"))
		return
	}
	storyID, ok := c.storyID(w, r)
	if !ok {
		return
	}

	var body finishBody
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			c.builder.WriteError(w, r, services.NewValidationError("invalid request body", err))
			return
		}
	}
	if err := c.validate.Struct(&body); err != nil {
		c.builder.WriteError(w, r, services.NewValidationError("invalid finish request", err))
		return
	}

	result, err := c.services.GetStoryService().FinishStory(r.Context(), &services.FinishStoryRequest{
		UserID:   userID,
		StoryID:  storyID,
		Timezone: body.Timezone,
	})
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}
	c.builder.WriteSuccess(w, r, result)
}

type resonanceBody struct {
	Word string `json:"word" validate:"required,max=40"`
}

// LeaveResonance handles POST /api/v1/stories/{storyID}/resonances
func (c *StoryController) LeaveResonance(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())
	if userID == 0 {
		c.builder.WriteError(w, r, services.NewUnauthorizedError("authentication required"))
		return
	}
	storyID, ok := c.storyID(w, r)
	if !ok {
		return
	}

	var body resonanceBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		c.builder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}
	if err := c.validate.Struct(&body); err != nil {
		c.builder.WriteError(w, r, services.NewValidationError("invalid resonance request", err))
		return
	}

	result, err := c.services.GetStoryService().LeaveResonance(r.Context(), &services.ResonanceRequest{
		UserID:  userID,
		StoryID: storyID,
		Word:    body.Word,
	})
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}
	c.builder.WriteCreated(w, r, result)
}

// ListStoryBadges handles GET /api/v1/stories/{storyID}/badges
func (c *StoryController) ListStoryBadges(w http.ResponseWriter, r *http.Request) {
	storyID, ok := c.storyID(w, r)
	if !ok {
		return
	}

	earned, err := c.services.GetBadgeService().ListStoryBadges(r.Context(), storyID)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}
	c.builder.WriteSuccess(w, r, earned)
}

func (c *StoryController) storyID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	storyID, err := strconv.ParseInt(chi.URLParam(r, "storyID"), 10, 64)
	if err != nil || storyID <= 0 {
		c.builder.WriteError(w, r, services.NewValidationError("invalid story id", err))
		return 0, false
	}
	return storyID, true
}
