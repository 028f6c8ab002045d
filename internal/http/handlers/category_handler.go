package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/training-platform/backend/internal/config"
	"github.com/training-platform/backend/internal/http/dto"
	"github.com/training-platform/backend/internal/models"
	"github.com/training-platform/backend/internal/repositories"
	"github.com/training-platform/backend/internal/services"
	"go.uber.org/zap"
)

type CategoryHandler struct {
	cfg        *config.Config
	categories *repositories.CategoryRepo
	courses    *repositories.CourseRepo
	audit      *services.AuditService
	log        *zap.Logger
}

func NewCategoryHandler(cfg *config.Config, categories *repositories.CategoryRepo, courses *repositories.CourseRepo, audit *services.AuditService, log *zap.Logger) *CategoryHandler {
	return &CategoryHandler{cfg: cfg, categories: categories, courses: courses, audit: audit, log: log}
}

func (h *CategoryHandler) List(c *fiber.Ctx) error {
	f := repositories.CategoryFilter{
		Sort:  c.Query("sort", "name"),
		Limit: c.QueryInt("per_page", 15),
	}
	if v := c.Query("search"); v != "" {
		f.Search = &v
	}
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	f.Offset = (page - 1) * f.Limit

	categories, total, err := h.categories.List(c.Context(), f)
	if err != nil {
		h.log.Error("failed to list categories", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.PagedResponse{Data: categories, Total: total, Page: page, PerPage: f.Limit})
}

func (h *CategoryHandler) Get(c *fiber.Ctx) error {
	cat, err := h.load(c)
	if cat == nil {
		return err
	}
	return c.JSON(cat)
}

// Courses lists every course inside one category.
func (h *CategoryHandler) Courses(c *fiber.Ctx) error {
	cat, err := h.load(c)
	if cat == nil {
		return err
	}
	courses, err := h.courses.ListByCategory(c.Context(), cat.ID)
	if err != nil {
		h.log.Error("failed to list courses", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: courses})
}

func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Name == "" || req.Code == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: "name and code are required"})
	}

	cat := &models.CourseCategory{Name: req.Name, Code: req.Code, Description: req.Description}
	if err := h.categories.Create(c.Context(), cat); err != nil {
		h.log.Error("failed to create category", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	if err := recordChange(c, h.audit, h.log, h.cfg.AuditFailOpen,
		"create", models.EntityCourseCategory, cat.ID, nil, cat,
		fmt.Sprintf("Category created: %s", cat.Name)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.Status(fiber.StatusCreated).JSON(cat)
}

func (h *CategoryHandler) Update(c *fiber.Ctx) error {
	cat, err := h.load(c)
	if cat == nil {
		return err
	}

	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	old := *cat
	if req.Name != "" {
		cat.Name = req.Name
	}
	if req.Code != "" {
		cat.Code = req.Code
	}
	if req.Description != nil {
		cat.Description = req.Description
	}

	if err := h.categories.Update(c.Context(), cat); err != nil {
		h.log.Error("failed to update category", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	if err := recordChange(c, h.audit, h.log, h.cfg.AuditFailOpen,
		"update", models.EntityCourseCategory, cat.ID, old, cat,
		fmt.Sprintf("Category updated: %s", cat.Name)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(cat)
}

func (h *CategoryHandler) Delete(c *fiber.Ctx) error {
	cat, err := h.load(c)
	if cat == nil {
		return err
	}

	count, err := h.categories.CourseCount(c.Context(), cat.ID)
	if err != nil {
		h.log.Error("failed to count courses", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	if count > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: "cannot delete a category that still has courses"})
	}

	if err := h.categories.Delete(c.Context(), cat.ID); err != nil {
		h.log.Error("failed to delete category", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	if err := recordChange(c, h.audit, h.log, h.cfg.AuditFailOpen,
		"delete", models.EntityCourseCategory, cat.ID, cat, nil,
		fmt.Sprintf("Category deleted: %s", cat.Name)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// load resolves the :id param to a category. On failure it writes the
// error response and returns a nil category.
func (h *CategoryHandler) load(c *fiber.Ctx) (*models.CourseCategory, error) {
	id, err := c.ParamsInt("id")
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid category id"})
	}
	cat, err := h.categories.GetByID(c.Context(), int64(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "category not found"})
		}
		h.log.Error("failed to load category", zap.Error(err))
		return nil, c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return cat, nil
}
