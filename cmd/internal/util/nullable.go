package util

import "database/sql"

// NullableString преобразует *string в sql.NullString.
// Пустая строка ("") также будет считаться NULL для базы данных.
func NullableString(s *string) sql.NullString {
	if s == nil || *s == "" { // Если указатель nil ИЛИ строка пустая
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}

// Deref безопасно разыменовывает *string: nil превращается в "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
