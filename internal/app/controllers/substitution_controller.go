package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yigit/substitutions/internal/app/models/dto"
	"github.com/yigit/substitutions/internal/app/services"
	"github.com/yigit/substitutions/internal/app/views"
	"github.com/yigit/substitutions/internal/middleware"
	"github.com/yigit/substitutions/internal/pkg/apperrors"
)

// SubstitutionController handles substitution-related operations
type SubstitutionController struct {
	substitutionService services.SubstitutionService
}

// NewSubstitutionController creates a new SubstitutionController
func NewSubstitutionController(substitutionService services.SubstitutionService) *SubstitutionController {
	return &SubstitutionController{
		substitutionService: substitutionService,
	}
}

// GetAllSubstitutions lists the merged substitution relations
// @Summary List substitution relations
// @Description Returns the merged relations; inverse rule pairs appear once with interchangeable=true
// @Tags substitutions
// @Produce json
// @Param interchangeable query bool false "Only bidirectional (true) or one-way (false) relations"
// @Success 200 {object} dto.APIResponse{data=dto.SubstitutionListResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid filter"
// @Router /substitutions [get]
func (c *SubstitutionController) GetAllSubstitutions(ctx *gin.Context) {
	var filter services.ListFilter
	if raw, ok := ctx.GetQuery("interchangeable"); ok {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid interchangeable filter").
				WithField("interchangeable").
				WithDetails("interchangeable must be true or false")
			ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
			return
		}
		filter.Interchangeable = &v
	}

	snap := c.substitutionService.Snapshot()
	items := c.substitutionService.List(filter)

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewSubstitutionListResponse(
		items, string(snap.Status), snap.Message, snap.Received, snap.Dropped, snap.FetchedAt,
	)))
}

// GetSubstitutionByID returns a single relation
// @Summary Get a substitution relation
// @Description Returns the relation retained under the given rule id
// @Tags substitutions
// @Produce json
// @Param id path int true "Rule ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=domain.Relation}
// @Failure 400 {object} dto.ErrorResponse "Invalid ID"
// @Failure 404 {object} dto.ErrorResponse "Not found"
// @Router /substitutions/{id} [get]
func (c *SubstitutionController) GetSubstitutionByID(ctx *gin.Context) {
	raw := ctx.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("invalid substitution ID "+raw).
			WithStatusMsg("Substitution ID must be a valid number").
			WithDetails(map[string]interface{}{"id": raw}))
		return
	}

	relation, err := c.substitutionService.FindByID(id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(relation))
}

// RefreshSubstitutions re-fetches the source
// @Summary Refresh substitution data
// @Description Fetches the rules document again and replaces the current list
// @Tags substitutions
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.SubstitutionListResponse}
// @Failure 502 {object} dto.ErrorResponse "Source unavailable"
// @Failure 422 {object} dto.ErrorResponse "Malformed data"
// @Router /substitutions/refresh [post]
func (c *SubstitutionController) RefreshSubstitutions(ctx *gin.Context) {
	snap, err := c.substitutionService.Refresh(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewSubstitutionListResponse(
		snap.Relations, string(snap.Status), snap.Message, snap.Received, snap.Dropped, snap.FetchedAt,
	)))
}

// Index renders the substitution list page
func (c *SubstitutionController) Index(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, views.IndexTemplate, views.NewPage(c.substitutionService.Snapshot()))
}
