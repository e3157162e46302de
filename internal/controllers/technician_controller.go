package controllers

import (
	"errors"
	"net/http"

	"service-dispatch/internal/dto"
	"service-dispatch/internal/services"
	apperrors "service-dispatch/pkg/errors"
	"service-dispatch/pkg/middleware"
	"service-dispatch/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TechnicianController serves the technician app: login, the job list and the
// on-site lifecycle actions.
type TechnicianController struct {
	techService     services.TechnicianServiceInterface
	dispatchService services.DispatchServiceInterface
	exportService   services.ScheduleExportServiceInterface
	logger          *zap.Logger
}

func NewTechnicianController(
	techService services.TechnicianServiceInterface,
	dispatchService services.DispatchServiceInterface,
	exportService services.ScheduleExportServiceInterface,
	logger *zap.Logger,
) *TechnicianController {
	return &TechnicianController{
		techService:     techService,
		dispatchService: dispatchService,
		exportService:   exportService,
		logger:          logger,
	}
}

func (c *TechnicianController) Login(ctx echo.Context) error {
	logger := middleware.LoggerFrom(ctx, c.logger)

	var d dto.TechLoginDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}

	tech, err := c.techService.Login(ctx.Request().Context(), d)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			err = apperrors.NewHttpError(http.StatusUnauthorized, "Technician not found", nil, nil)
		}
		return utils.ErrorResponse(ctx, err, logger)
	}
	return utils.SuccessResponse(ctx, tech, "Login successful", http.StatusOK)
}

func (c *TechnicianController) ListJobs(ctx echo.Context) error {
	logger := middleware.LoggerFrom(ctx, c.logger)

	techID, err := utils.ParseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}
	var f dto.JobFilterDTO
	if err := bindAndValidate(ctx, &f); err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}

	jobs, err := c.dispatchService.ListJobs(ctx.Request().Context(), techID, f)
	if err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}
	return utils.SuccessResponse(ctx, jobs, "Jobs retrieved", http.StatusOK)
}

func (c *TechnicianController) ListSchedule(ctx echo.Context) error {
	logger := middleware.LoggerFrom(ctx, c.logger)

	techID, err := utils.ParseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}

	items, err := c.dispatchService.ListSchedule(ctx.Request().Context(), techID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}
	return utils.SuccessResponse(ctx, items, "Schedule retrieved", http.StatusOK)
}

func (c *TechnicianController) ExportSchedule(ctx echo.Context) error {
	logger := middleware.LoggerFrom(ctx, c.logger)

	techID, err := utils.ParseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}

	buf, fileName, err := c.exportService.ExportWeek(ctx.Request().Context(), techID)
	if err != nil {
		return utils.ErrorResponse(ctx, notFoundAs(err, "Technician not found"), logger)
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+fileName)
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (c *TechnicianController) StartJob(ctx echo.Context) error {
	logger := middleware.LoggerFrom(ctx, c.logger)

	id, err := utils.ParseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}

	res, err := c.dispatchService.Start(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, notFoundAs(err, "Job not found or already started"), logger)
	}
	return utils.SuccessResponse(ctx, res, "Job started", http.StatusOK)
}

func (c *TechnicianController) CompleteJob(ctx echo.Context) error {
	logger := middleware.LoggerFrom(ctx, c.logger)

	id, err := utils.ParseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}
	var d dto.CompleteJobDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}

	res, err := c.dispatchService.Complete(ctx.Request().Context(), id, d)
	if err != nil {
		return utils.ErrorResponse(ctx, notFoundAs(err, "Job not found or not in progress"), logger)
	}
	return utils.SuccessResponse(ctx, res, "Job completed successfully", http.StatusOK)
}

func (c *TechnicianController) AddNotes(ctx echo.Context) error {
	logger := middleware.LoggerFrom(ctx, c.logger)

	id, err := utils.ParseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}
	var d dto.AppendNotesDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}

	res, err := c.dispatchService.AppendNotes(ctx.Request().Context(), id, d.Notes)
	if err != nil {
		return utils.ErrorResponse(ctx, notFoundAs(err, "Job not found"), logger)
	}
	return utils.SuccessResponse(ctx, res, "Notes added successfully", http.StatusOK)
}
