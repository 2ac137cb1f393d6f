// Package draft реализует клиентскую часть жизненного цикла пакета:
// список ещё не отправленных файлов, их инспекцию, параметры расчёта и
// отправку пакета на расчётный сервис.
package draft

import (
	"io"
	"time"

	"github.com/zhukovvlad/peni-go/cmd/internal/api_models"
)

// Phase фаза черновика пакета.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseInspecting Phase = "inspecting"
	PhaseReady      Phase = "ready"
	PhaseProcessing Phase = "processing"
	PhaseError      Phase = "error"
)

// Значения параметров по умолчанию для нового файла.
const (
	DefaultCategory    = "Прочие"
	DefaultRatePercent = 9.0
	DefaultOverdueDay  = 1
)

// Params параметры расчёта одного файла, редактируемые пользователем.
type Params struct {
	Category               string
	RatePercent            float64
	OverdueDay             int    // 1..31
	CalcDate               string // ДД.ММ.ГГГГ
	ExcludeZeroDebtPeriods bool
	AddStateDuty           bool
}

// DefaultParams параметры по умолчанию на заданную дату.
func DefaultParams(now time.Time) Params {
	return Params{
		Category:    DefaultCategory,
		RatePercent: DefaultRatePercent,
		OverdueDay:  DefaultOverdueDay,
		CalcDate:    now.Format("02.01.2006"),
	}
}

// ParamsPatch частичное обновление параметров: nil-поля не меняются.
type ParamsPatch struct {
	Category               *string
	RatePercent            *float64
	OverdueDay             *int
	CalcDate               *string
	ExcludeZeroDebtPeriods *bool
	AddStateDuty           *bool
}

func (p *Params) apply(patch ParamsPatch) {
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.RatePercent != nil {
		p.RatePercent = *patch.RatePercent
	}
	if patch.OverdueDay != nil {
		p.OverdueDay = *patch.OverdueDay
	}
	if patch.CalcDate != nil {
		p.CalcDate = *patch.CalcDate
	}
	if patch.ExcludeZeroDebtPeriods != nil {
		p.ExcludeZeroDebtPeriods = *patch.ExcludeZeroDebtPeriods
	}
	if patch.AddStateDuty != nil {
		p.AddStateDuty = *patch.AddStateDuty
	}
}

// FileSource источник загружаемого файла. Open вызывается один раз в
// момент добавления: байты копируются сразу, чтобы последующие
// изменения исходного файла не испортили отправку.
type FileSource struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// Item один загруженный, но ещё не отправленный файл.
type Item struct {
	ClientFileID string
	File         api_models.FileRef

	// Заполняется инспекцией; после первого заполнения только
	// заменяется целиком, но не сбрасывается.
	Debtor          *api_models.DebtorPreview
	NeedsOcr        bool
	InspectWarning  string
	InspectWarnings []string
	InspectError    string

	Params           Params
	ValidationErrors map[string]string
}

// Snapshot неизменяемый снимок состояния менеджера для потребителей.
type Snapshot struct {
	Phase       Phase
	Items       []Item
	GlobalError string
	MergeXlsx   bool
	CanProcess  bool
	InnMismatch api_models.InnMismatch
}
