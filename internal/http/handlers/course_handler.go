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

type CourseHandler struct {
	cfg     *config.Config
	courses *repositories.CourseRepo
	audit   *services.AuditService
	log     *zap.Logger
}

func NewCourseHandler(cfg *config.Config, courses *repositories.CourseRepo, audit *services.AuditService, log *zap.Logger) *CourseHandler {
	return &CourseHandler{cfg: cfg, courses: courses, audit: audit, log: log}
}

func (h *CourseHandler) Get(c *fiber.Ctx) error {
	course, err := h.load(c)
	if course == nil {
		return err
	}
	return c.JSON(course)
}

func (h *CourseHandler) Create(c *fiber.Ctx) error {
	var req dto.CourseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Title == "" || req.Code == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: "title and code are required"})
	}

	course := &models.Course{
		CategoryID:      req.CategoryID,
		Title:           req.Title,
		Code:            req.Code,
		Description:     req.Description,
		StartsAt:        req.StartsAt,
		EndsAt:          req.EndsAt,
		MaxParticipants: req.MaxParticipants,
	}
	if err := h.courses.Create(c.Context(), course); err != nil {
		h.log.Error("failed to create course", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	if err := recordChange(c, h.audit, h.log, h.cfg.AuditFailOpen,
		"create", models.EntityCourse, course.ID, nil, course,
		fmt.Sprintf("Course created: %s", course.Code)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.Status(fiber.StatusCreated).JSON(course)
}

func (h *CourseHandler) Update(c *fiber.Ctx) error {
	course, err := h.load(c)
	if course == nil {
		return err
	}

	var req dto.CourseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	old := *course
	if req.Title != "" {
		course.Title = req.Title
	}
	if req.Code != "" {
		course.Code = req.Code
	}
	if req.CategoryID != nil {
		course.CategoryID = req.CategoryID
	}
	if req.Description != nil {
		course.Description = req.Description
	}
	if req.StartsAt != nil {
		course.StartsAt = req.StartsAt
	}
	if req.EndsAt != nil {
		course.EndsAt = req.EndsAt
	}
	if req.MaxParticipants > 0 {
		course.MaxParticipants = req.MaxParticipants
	}

	if err := h.courses.Update(c.Context(), course); err != nil {
		h.log.Error("failed to update course", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	if err := recordChange(c, h.audit, h.log, h.cfg.AuditFailOpen,
		"update", models.EntityCourse, course.ID, old, course,
		fmt.Sprintf("Course updated: %s", course.Code)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(course)
}

func (h *CourseHandler) Delete(c *fiber.Ctx) error {
	course, err := h.load(c)
	if course == nil {
		return err
	}

	if err := h.courses.Delete(c.Context(), course.ID); err != nil {
		h.log.Error("failed to delete course", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	if err := recordChange(c, h.audit, h.log, h.cfg.AuditFailOpen,
		"delete", models.EntityCourse, course.ID, course, nil,
		fmt.Sprintf("Course deleted: %s", course.Code)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *CourseHandler) load(c *fiber.Ctx) (*models.Course, error) {
	id, err := c.ParamsInt("id")
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid course id"})
	}
	course, err := h.courses.GetByID(c.Context(), int64(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "course not found"})
		}
		h.log.Error("failed to load course", zap.Error(err))
		return nil, c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return course, nil
}
