// Package apierrors типизированные ошибки шлюза. Обработчики выбирают
// по типу ошибки HTTP-статус ответа; ошибки расчётного сервиса сюда не
// попадают - они несут собственный статус (calcclient.APIError).
package apierrors

import "fmt"

// ValidationError ошибка входных данных запроса: пустой список файлов,
// битый items_meta, неизвестный тип артефакта. Отдаётся как HTTP 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError создаёт ValidationError с отформатированным сообщением.
func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{
		Message: fmt.Sprintf(format, args...),
	}
}

// NotFoundError запрошенный пакет или позиция не найдены. Отдаётся как
// HTTP 404.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// NewNotFoundError создаёт NotFoundError с отформатированным сообщением.
func NewNotFoundError(format string, args ...interface{}) error {
	return &NotFoundError{
		Message: fmt.Sprintf(format, args...),
	}
}
