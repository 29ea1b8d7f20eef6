package validation

import (
	"fmt"
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Register 向 gin 的校验引擎注册业务自定义标签
//
//	clock   HH:MM 24 小时制
//	weekday 1-6（周一至周六）
//	week    1-53 教学周
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("gin 校验引擎类型不是 validator.Validate")
	}
	return RegisterOn(v)
}

// RegisterOn 在指定 validator 实例上注册自定义标签
func RegisterOn(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"clock":   validateClock,
		"weekday": validateWeekday,
		"week":    validateWeek,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("注册校验标签 %s 失败: %w", tag, err)
		}
	}
	return nil
}

func validateClock(fl validator.FieldLevel) bool {
	return clockPattern.MatchString(fl.Field().String())
}

func validateWeekday(fl validator.FieldLevel) bool {
	d := fl.Field().Int()
	return d >= 1 && d <= 6
}

func validateWeek(fl validator.FieldLevel) bool {
	w := fl.Field().Int()
	return w >= 1 && w <= 53
}
