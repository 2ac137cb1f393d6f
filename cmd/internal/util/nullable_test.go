package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ========== Тесты для Deref ==========

func TestDeref(t *testing.T) {
	t.Run("разыменование непустого указателя", func(t *testing.T) {
		str := "test string"
		result := Deref(&str)
		assert.Equal(t, "test string", result)
	})

	t.Run("разыменование nil указателя", func(t *testing.T) {
		result := Deref(nil)
		assert.Equal(t, "", result)
	})

	t.Run("разыменование пустой строки", func(t *testing.T) {
		str := ""
		result := Deref(&str)
		assert.Equal(t, "", result)
	})
}

// ========== Тесты для NullableString ==========

func TestNullableString(t *testing.T) {
	t.Run("валидная строка", func(t *testing.T) {
		str := "valid string"
		result := NullableString(&str)

		assert.True(t, result.Valid)
		assert.Equal(t, "valid string", result.String)
	})

	t.Run("nil указатель", func(t *testing.T) {
		result := NullableString(nil)

		assert.False(t, result.Valid)
	})

	t.Run("пустая строка", func(t *testing.T) {
		str := ""
		result := NullableString(&str)

		assert.False(t, result.Valid, "пустая строка должна быть невалидной")
	})

	t.Run("строка с пробелами", func(t *testing.T) {
		str := "   "
		result := NullableString(&str)

		assert.True(t, result.Valid, "строка с пробелами валидна")
		assert.Equal(t, "   ", result.String)
	})
}
