package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var scheduleSheetHeaders = []interface{}{
	"Date", "Time", "Request #", "Status", "Priority", "Customer", "Address", "City", "Service", "Est. Duration (min)",
}

type ScheduleExportServiceInterface interface {
	// ExportWeek renders the technician's seven-day schedule as an XLSX job sheet.
	ExportWeek(ctx context.Context, techID uint64) (*bytes.Buffer, string, error)
}

type ScheduleExportService struct {
	dispatch    DispatchServiceInterface
	technicians TechnicianServiceInterface
	logger      *zap.Logger
}

func NewScheduleExportService(dispatch DispatchServiceInterface, technicians TechnicianServiceInterface, logger *zap.Logger) ScheduleExportServiceInterface {
	return &ScheduleExportService{dispatch: dispatch, technicians: technicians, logger: logger}
}

func deref[T any](p *T) interface{} {
	if p == nil {
		return ""
	}
	return *p
}

func (s *ScheduleExportService) ExportWeek(ctx context.Context, techID uint64) (*bytes.Buffer, string, error) {
	tech, err := s.technicians.FindTechnician(ctx, techID)
	if err != nil {
		return nil, "", err
	}
	items, err := s.dispatch.ListSchedule(ctx, techID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("close schedule workbook", zap.Error(err))
		}
	}()

	sheet := "Schedule"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", err
	}
	if err := f.SetSheetRow(sheet, "A1", &scheduleSheetHeaders); err != nil {
		return nil, "", err
	}
	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(sheet, "A1", "J1", style)

	for i, it := range items {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			deref(it.ScheduledDate), deref(it.ScheduledTime), it.RequestID, it.Status, it.Priority,
			it.CustomerName, deref(it.Address), deref(it.City), it.ServiceName, deref(it.EstimatedDurationMinutes),
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, "", err
		}
	}
	_ = f.SetColWidth(sheet, "A", "B", 12)
	_ = f.SetColWidth(sheet, "F", "G", 28)
	_ = f.SetColWidth(sheet, "I", "I", 24)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("write schedule workbook: %w", err)
	}

	fileName := fmt.Sprintf("schedule_tech_%d.xlsx", techID)
	s.logger.Debug("schedule exported", zap.Uint64("tech_id", techID), zap.String("technician", tech.Name), zap.Int("rows", len(items)))
	return buf, fileName, nil
}
