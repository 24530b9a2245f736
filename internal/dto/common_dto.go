package dto

import (
	"github.com/jinzhu/copier"

	"github.com/noah-isme/assessment-ops-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationMeta derives the page count from the total.
func NewPaginationMeta(page, perPage int, total int64) PaginationMeta {
	totalPages := 0
	if perPage > 0 {
		totalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return PaginationMeta{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// StudentResponse is the public view of a student.
type StudentResponse struct {
	ID       string  `json:"id"`
	FullName string  `json:"full_name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
}

// NewStudentResponse maps a student model.
func NewStudentResponse(student models.Student) StudentResponse {
	var response StudentResponse
	_ = copier.Copy(&response, &student)
	return response
}

// TestOption is the compact test reference used by selectors.
type TestOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewTestOptions maps tests to selector entries.
func NewTestOptions(tests []models.Test) []TestOption {
	options := make([]TestOption, 0, len(tests))
	for _, test := range tests {
		var option TestOption
		_ = copier.Copy(&option, &test)
		options = append(options, option)
	}
	return options
}
