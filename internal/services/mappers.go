package services

import (
	"time"

	"service-dispatch/internal/dto"
	"service-dispatch/internal/entities"
	"service-dispatch/pkg/utils"

	"github.com/aarondl/null/v8"
)

func nullStringPtr(s null.String) *string {
	return s.Ptr()
}

func nullUint64Ptr(u null.Uint64) *uint64 {
	return u.Ptr()
}

func datePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(utils.DateLayout)
	return &s
}

func customerEntityToDTO(c entities.Customer) dto.CustomerDTO {
	return dto.CustomerDTO{
		ID:                  c.ID,
		Name:                c.Name,
		FirstName:           c.FirstName,
		LastName:            c.LastName,
		Phone:               c.Phone,
		Email:               nullStringPtr(c.Email),
		Address:             nullStringPtr(c.Address),
		City:                nullStringPtr(c.City),
		State:               nullStringPtr(c.State),
		Zip:                 nullStringPtr(c.Zip),
		SpecialInstructions: nullStringPtr(c.SpecialInstructions),
	}
}

func serviceTypeEntityToDTO(st *entities.ServiceType) *dto.ServiceTypeDTO {
	if st == nil {
		return nil
	}
	return &dto.ServiceTypeDTO{
		ID:                       st.ID,
		Name:                     st.Name,
		BasePrice:                st.BasePrice,
		EstimatedDurationMinutes: st.EstimatedDurationMinutes,
	}
}

func technicianEntityToDTO(t *entities.Technician) *dto.TechnicianDTO {
	if t == nil {
		return nil
	}
	return &dto.TechnicianDTO{
		ID:             t.ID,
		Name:           t.Name,
		Phone:          t.Phone,
		Email:          nullStringPtr(t.Email),
		Specialization: nullStringPtr(t.Specialization),
		Status:         t.Status,
	}
}

func serviceRecordEntityToDTO(r *entities.ServiceRecord) *dto.ServiceRecordDTO {
	if r == nil {
		return nil
	}
	return &dto.ServiceRecordDTO{
		ID:            r.ID,
		TechID:        nullUint64Ptr(r.TechID),
		ServiceDate:   datePtr(r.ServiceDate),
		WorkPerformed: r.WorkPerformed,
		PartsUsed:     r.PartsUsed,
		TechNotes:     r.TechNotes,
	}
}

func requestDetailToDTO(d *entities.RequestDetail) *dto.BookingDetailDTO {
	req := d.Request
	return &dto.BookingDetailDTO{
		ID:                req.ID,
		Status:            string(req.Status),
		Priority:          req.Priority,
		Source:            string(req.Source),
		ServiceName:       req.ServiceName,
		PreferredDateTime: nullStringPtr(req.PreferredDateTime),
		ScheduledDate:     datePtr(req.ScheduledDate),
		ScheduledTime:     nullStringPtr(req.ScheduledTime),
		ActualStartTime:   req.ActualStartTime,
		ActualEndTime:     req.ActualEndTime,
		Notes:             nullStringPtr(req.Notes),
		IssueDescription:  nullStringPtr(req.IssueDescription),
		CreatedAt:         req.CreatedAt,
		UpdatedAt:         req.UpdatedAt,
		Customer:          customerEntityToDTO(d.Customer),
		ServiceType:       serviceTypeEntityToDTO(d.ServiceType),
		Technician:        technicianEntityToDTO(d.Technician),
		ServiceRecord:     serviceRecordEntityToDTO(d.Record),
	}
}

func jobStatusToDTO(req *entities.ServiceRequest) *dto.JobStatusDTO {
	return &dto.JobStatusDTO{
		RequestID:       req.ID,
		Status:          string(req.Status),
		AssignedTechID:  nullUint64Ptr(req.AssignedTechID),
		ScheduledDate:   datePtr(req.ScheduledDate),
		ScheduledTime:   nullStringPtr(req.ScheduledTime),
		Priority:        req.Priority,
		ActualStartTime: req.ActualStartTime,
		ActualEndTime:   req.ActualEndTime,
		Notes:           nullStringPtr(req.Notes),
	}
}

func jobViewToDTO(j entities.JobView) dto.JobDTO {
	equipment := make([]dto.EquipmentDTO, 0, len(j.Equipment))
	for _, e := range j.Equipment {
		equipment = append(equipment, dto.EquipmentDTO{
			ID:              e.ID,
			EquipmentType:   e.EquipmentType,
			Brand:           nullStringPtr(e.Brand),
			ModelNumber:     nullStringPtr(e.ModelNumber),
			AgeYears:        e.AgeYears.Ptr(),
			LastServiceDate: datePtr(e.LastServiceDate),
		})
	}
	return dto.JobDTO{
		ID:               j.Request.ID,
		Status:           string(j.Request.Status),
		Priority:         j.Request.Priority,
		ServiceName:      j.Request.ServiceName,
		ScheduledDate:    datePtr(j.Request.ScheduledDate),
		ScheduledTime:    nullStringPtr(j.Request.ScheduledTime),
		ActualStartTime:  j.Request.ActualStartTime,
		Notes:            nullStringPtr(j.Request.Notes),
		IssueDescription: nullStringPtr(j.Request.IssueDescription),
		Customer:         customerEntityToDTO(j.Customer),
		ServiceType:      serviceTypeEntityToDTO(j.ServiceType),
		Equipment:        equipment,
	}
}

func scheduleEntryToDTO(e entities.ScheduleEntry) dto.ScheduleItemDTO {
	return dto.ScheduleItemDTO{
		RequestID:                e.RequestID,
		Status:                   string(e.Status),
		Priority:                 e.Priority,
		ScheduledDate:            datePtr(e.ScheduledDate),
		ScheduledTime:            nullStringPtr(e.ScheduledTime),
		CustomerName:             e.CustomerName,
		Address:                  nullStringPtr(e.Address),
		City:                     nullStringPtr(e.City),
		ServiceName:              e.ServiceName,
		EstimatedDurationMinutes: e.EstimatedDurationMinutes.Ptr(),
	}
}
