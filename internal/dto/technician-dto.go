package dto

type TechLoginDTO struct {
	Phone string `json:"phone" validate:"omitempty,phone"`
	Name  string `json:"name" validate:"max=255"`
}

type TechnicianDTO struct {
	ID             uint64  `json:"tech_id"`
	Name           string  `json:"name"`
	Phone          string  `json:"phone"`
	Email          *string `json:"email"`
	Specialization *string `json:"specialization"`
	Status         string  `json:"status"`
}
