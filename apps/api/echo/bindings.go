package echoapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/mrembo/urembo/core"
)

type LoginRequest struct {
	Username string `form:"username" json:"username" validate:"required"`
	Password string `form:"password" json:"password" validate:"required"`
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true)
	return validate.Struct(lr)
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type SuccessResponse struct {
	Success string `json:"success"`
}
