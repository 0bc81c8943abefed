package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/studylion/studypartner-backend/internal/httpx"
	"github.com/studylion/studypartner-backend/internal/models"
	"github.com/studylion/studypartner-backend/internal/repository"
	"github.com/studylion/studypartner-backend/internal/service"
	"github.com/studylion/studypartner-backend/internal/validation"
)

type StudyHandler struct {
	studyService *service.StudyService
	queryService *service.StudyQueryService
}

func NewStudyHandler(studyService *service.StudyService, queryService *service.StudyQueryService) *StudyHandler {
	return &StudyHandler{studyService: studyService, queryService: queryService}
}

func (h *StudyHandler) CreateStudy(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}

	var input service.CreateStudyInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}
	if !validation.ValidateTitle(input.Title) {
		return httpx.BadRequest(c, "invalid_title", "Title is required")
	}
	if !models.ValidStudyType(input.StudyType) {
		return httpx.BadRequest(c, "invalid_study_type", "Invalid study type")
	}

	study, err := h.studyService.CreateStudy(userID, input)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(study.ToResponse())
}

func (h *StudyHandler) UpdateStudy(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}
	studyID, ok := paramUint(c, "studyId")
	if !ok {
		return httpx.BadRequest(c, "invalid_study_id", "Invalid study ID")
	}

	var input service.UpdateStudyInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}

	study, err := h.studyService.UpdateStudy(studyID, userID, input)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(study.ToResponse())
}

func (h *StudyHandler) GetStudy(c *fiber.Ctx) error {
	studyID, ok := paramUint(c, "studyId")
	if !ok {
		return httpx.BadRequest(c, "invalid_study_id", "Invalid study ID")
	}
	viewerID, _ := httpx.LocalUint(c, "userID")

	study, err := h.queryService.GetStudyDetail(studyID, viewerID)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(study)
}

func (h *StudyHandler) DeleteStudy(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}
	studyID, ok := paramUint(c, "studyId")
	if !ok {
		return httpx.BadRequest(c, "invalid_study_id", "Invalid study ID")
	}

	if err := h.studyService.DeleteStudy(studyID, userID); err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Study deleted successfully"})
}

func (h *StudyHandler) JoinStudy(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}
	studyID, ok := paramUint(c, "studyId")
	if !ok {
		return httpx.BadRequest(c, "invalid_study_id", "Invalid study ID")
	}

	study, err := h.studyService.Join(studyID, userID)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(study.ToResponse())
}

func (h *StudyHandler) LeaveStudy(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}
	studyID, ok := paramUint(c, "studyId")
	if !ok {
		return httpx.BadRequest(c, "invalid_study_id", "Invalid study ID")
	}

	if err := h.studyService.Leave(studyID, userID); err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Left study successfully"})
}

func (h *StudyHandler) GetJoinStatus(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}
	studyID, ok := paramUint(c, "studyId")
	if !ok {
		return httpx.BadRequest(c, "invalid_study_id", "Invalid study ID")
	}

	joined, err := h.studyService.IsMember(studyID, userID)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"joined": joined})
}

func (h *StudyHandler) ReconcileStudy(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}
	studyID, ok := paramUint(c, "studyId")
	if !ok {
		return httpx.BadRequest(c, "invalid_study_id", "Invalid study ID")
	}

	count, err := h.studyService.ReconcileParticipants(studyID, userID)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"current_participants": count})
}

func (h *StudyHandler) ListStudies(c *fiber.Ctx) error {
	page := pageFromQuery(c)
	items, total, err := h.queryService.ListStudies(page)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(paged(items, total, page))
}

func (h *StudyHandler) ListByCategory(c *fiber.Ctx) error {
	page := pageFromQuery(c)
	items, total, err := h.queryService.ListByCategory(c.Params("category"), page)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(paged(items, total, page))
}

func (h *StudyHandler) ListByLocation(c *fiber.Ctx) error {
	page := pageFromQuery(c)
	items, total, err := h.queryService.ListByLocation(c.Params("location"), page)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(paged(items, total, page))
}

func (h *StudyHandler) ListByStatus(c *fiber.Ctx) error {
	page := pageFromQuery(c)
	items, total, err := h.queryService.ListByStatus(models.StudyStatus(c.Params("status")), page)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(paged(items, total, page))
}

func (h *StudyHandler) ListPopular(c *fiber.Ctx) error {
	page := pageFromQuery(c)
	items, total, err := h.queryService.ListPopular(page)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(paged(items, total, page))
}

// SearchStudies reads the composite filter from the query string; blank
// parameters impose no constraint.
func (h *StudyHandler) SearchStudies(c *fiber.Ctx) error {
	page := pageFromQuery(c)

	criteria := repository.StudySearch{}
	if v := strings.TrimSpace(c.Query("category")); v != "" {
		criteria.Category = &v
	}
	if v := strings.TrimSpace(c.Query("location")); v != "" {
		criteria.Location = &v
	}
	if v := strings.TrimSpace(c.Query("study_type")); v != "" {
		t := models.StudyType(v)
		criteria.StudyType = &t
	}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		st := models.StudyStatus(v)
		criteria.Status = &st
	}
	if v := c.Query("keyword"); v != "" {
		criteria.Keyword = &v
	}

	items, total, err := h.queryService.Search(criteria, page)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(paged(items, total, page))
}

func (h *StudyHandler) GetMyStudies(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}

	page := pageFromQuery(c)
	items, total, err := h.queryService.MyStudies(userID, page)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(paged(items, total, page))
}
