// Package response задаёт единый формат JSON-ответов вебхука.
package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

// Response — конверт ответа.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// OK возвращает успешный ответ без данных.
func OK() Response {
	return Response{
		Status: StatusOK,
	}
}

// Error возвращает ответ с сообщением об ошибке.
func Error(msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
	}
}

// StatusOKWithData возвращает успешный ответ с произвольными данными.
func StatusOKWithData(data map[string]interface{}) map[string]interface{} {
	result := map[string]interface{}{"status": StatusOK}
	for k, v := range data {
		result[k] = v
	}
	return result
}

// ValidationError собирает ошибки валидации полей в один ответ.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "gt":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be greater than %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}
