package dto

import "github.com/go-playground/validator/v10"

type LoginRequest struct {
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type ProcessSignalRequest struct {
	Source    string `json:"source" validate:"omitempty,oneof=SCALPING INTRADAY"`
	Text      string `json:"text" validate:"required,min=20"`
	MessageID string `json:"message_id"`
}

var Validate = validator.New()
