package draft

import (
	"math"
	"regexp"
	"strconv"
	"time"
)

var calcDateRe = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)

// ValidateParams проверяет параметры одного файла и возвращает карту
// поле -> сообщение. Пустая карта означает, что файл готов к отправке.
func ValidateParams(p Params) map[string]string {
	errs := make(map[string]string)

	if p.Category == "" {
		errs["category"] = "укажите категорию задолженности"
	}

	if math.IsNaN(p.RatePercent) || math.IsInf(p.RatePercent, 0) {
		errs["rate_percent"] = "ставка должна быть числом"
	} else if p.RatePercent < 0 {
		errs["rate_percent"] = "ставка не может быть отрицательной"
	}

	if p.OverdueDay < 1 || p.OverdueDay > 31 {
		errs["overdue_day"] = "день просрочки должен быть от 1 до 31"
	}

	if !calcDateRe.MatchString(p.CalcDate) {
		errs["calc_date"] = "дата расчёта должна быть в формате ДД.ММ.ГГГГ"
	} else if !calendarDateValid(p.CalcDate) {
		errs["calc_date"] = "несуществующая календарная дата"
	}

	return errs
}

// calendarDateValid проверяет, что ДД.ММ.ГГГГ указывает на реальный
// день с учётом длины месяца и високосного февраля. time.Date
// нормализует переполнение (32 января -> 1 февраля), поэтому дата
// валидна только если после нормализации она не изменилась.
func calendarDateValid(s string) bool {
	day, _ := strconv.Atoi(s[0:2])
	month, _ := strconv.Atoi(s[3:5])
	year, _ := strconv.Atoi(s[6:10])

	if month < 1 || month > 12 || day < 1 {
		return false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}
