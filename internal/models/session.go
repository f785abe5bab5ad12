package models

// StartSessionRequest opens a workflow session
type StartSessionRequest struct {
	Flow string `json:"flow" binding:"omitempty,oneof=sign_up sign_up_with_payment token_payment"`
	// StudentID is required for the token_payment flow
	StudentID string `json:"studentId" binding:"required_if=Flow token_payment,omitempty,max=64"`
}

// UpdateApplicantRequest edits fields of the sign-up form by name
type UpdateApplicantRequest struct {
	Fields map[string]string `json:"fields" binding:"required,min=1,max=16"`
}

// VerifyOTPRequest carries the code the applicant received
type VerifyOTPRequest struct {
	Code string `json:"code" binding:"required,max=12"`
}

// PaymentModeRequest selects how the token fee is paid
type PaymentModeRequest struct {
	Mode string `json:"mode" binding:"required,max=32"`
}
