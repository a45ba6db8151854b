package types

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate 是全局单例，validator 内部会缓存结构体信息
var validate = validator.New()

// Validate 按 struct tag 校验 v，失败时返回包装了 ErrValidation 的错误
// 只报告第一个失败的字段
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		return fmt.Errorf("%w: %s: failed on '%s' tag (value: %v)",
			ErrValidation, e.Namespace(), e.Tag(), e.Value())
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}
