package util

import (
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators 在 gin 的校验引擎上注册自定义规则
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("notblank", notBlank)
}

// notBlank 字符串去掉空白后非空
func notBlank(fl validator.FieldLevel) bool {
	return IsNotBlank(fl.Field().String())
}

func IsNotBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}
