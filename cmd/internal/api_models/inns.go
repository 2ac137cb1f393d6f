package api_models

import "strings"

// InnMismatch итог сверки ИНН по всем позициям. Если различных ИНН
// больше одного, объединение результатов в один файл должно быть
// отключено.
type InnMismatch struct {
	HasMismatch bool
	Inns        []string
}

// NormalizeInn убирает все пробельные символы из ИНН.
func NormalizeInn(v *string) string {
	if v == nil {
		return ""
	}
	return strings.Join(strings.Fields(*v), "")
}

// CollectInnMismatch собирает различные непустые ИНН в порядке первого
// появления, без дубликатов. Пустые значения не участвуют в сверке.
func CollectInnMismatch(inns []string) InnMismatch {
	seen := make(map[string]struct{}, len(inns))
	distinct := make([]string, 0, len(inns))
	for _, inn := range inns {
		if inn == "" {
			continue
		}
		if _, ok := seen[inn]; ok {
			continue
		}
		seen[inn] = struct{}{}
		distinct = append(distinct, inn)
	}
	return InnMismatch{
		HasMismatch: len(distinct) > 1,
		Inns:        distinct,
	}
}
