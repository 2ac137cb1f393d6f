package api_models

import "strings"

// Статусы пакета, которые отдаёт расчётный сервис.
// Сервис исторически пишет их в верхнем регистре, поэтому все проверки
// идут через нормализацию (см. IsTerminal).
const (
	BatchStatusQueued  = "QUEUED"
	BatchStatusRunning = "RUNNING"
	BatchStatusDone    = "DONE"
	BatchStatusError   = "ERROR"
)

// Статусы отдельного файла внутри пакета.
const (
	ItemStatusPending    = "PENDING"
	ItemStatusInspected  = "INSPECTED"
	ItemStatusProcessing = "PROCESSING"
	ItemStatusDone       = "DONE"
	ItemStatusError      = "ERROR"
)

// Статусы объединённого XLSX.
const (
	MergeStatusMerged  = "MERGED"
	MergeStatusSkipped = "SKIPPED"
	MergeStatusError   = "ERROR"
)

// FileRef стабилизированный снимок загруженного файла: имя плюс байты,
// скопированные в момент добавления. Дальнейшие изменения исходного
// файла на содержимое снимка не влияют.
type FileRef struct {
	Name        string
	ContentType string
	Data        []byte
}

// DebtorPreview краткие сведения о должнике, извлечённые из PDF.
type DebtorPreview struct {
	Name *string `json:"name"`
	Inn  *string `json:"inn"`
}

// InspectItemResult результат быстрой инспекции одного файла.
type InspectItemResult struct {
	Filename       string        `json:"filename"`
	Debtor         DebtorPreview `json:"debtor"`
	NeedsOcr       bool          `json:"needs_ocr"`
	InspectWarning *string       `json:"inspect_warning,omitempty"`
	Warnings       []string      `json:"warnings"`
	Error          *string       `json:"error,omitempty"`
}

type InspectResponse struct {
	Items []InspectItemResult `json:"items"`
}

// ItemCalcParams параметры расчёта пеней для одного файла.
type ItemCalcParams struct {
	CalcDate               string  `json:"calc_date"` // ДД.ММ.ГГГГ
	Category               string  `json:"category"`
	RatePercent            float64 `json:"rate_percent"`
	OverdueDay             int     `json:"overdue_day"` // 1..31
	ExcludeZeroDebtPeriods bool    `json:"exclude_zero_debt_periods"`
	AddStateDuty           bool    `json:"add_state_duty"`
}

// ProcessItemMeta per-file метаданные, которые уходят в items_meta.
// Контракт строгий: никаких alias и опциональных полей.
type ProcessItemMeta struct {
	ClientFileID           string  `json:"client_file_id"`
	FileName               string  `json:"file_name"`
	CalcDate               string  `json:"calc_date"`
	Category               string  `json:"category"`
	RatePercent            float64 `json:"rate_percent"`
	OverdueDay             int     `json:"overdue_day"`
	ExcludeZeroDebtPeriods bool    `json:"exclude_zero_debt_periods"`
	AddStateDuty           bool    `json:"add_state_duty"`
}

// ProcessOptions опции отправки пакета на расчёт.
type ProcessOptions struct {
	MergeXlsx bool
}

type ProcessResponse struct {
	BatchID string `json:"batch_id"`
}

// BatchItem состояние одного файла в пакете. Поля принадлежат серверу,
// клиент их не меняет.
type BatchItem struct {
	ItemID       string `json:"item_id"`
	ClientFileID string `json:"client_file_id"`
	FileName     string `json:"file_name"`

	Status     string  `json:"status"`
	Error      *string `json:"error,omitempty"`
	ErrorCode  *string `json:"error_code,omitempty"`
	ErrorStage *string `json:"error_stage,omitempty"`

	Debtor DebtorPreview  `json:"debtor"`
	Params ItemCalcParams `json:"params"`

	JsonPath *string `json:"json_path,omitempty"`
	XlsxPath *string `json:"xlsx_path,omitempty"`
}

// Batch снимок состояния пакета на сервере. Клиент обновляет его только
// целиком, по результату очередного запроса статуса.
type Batch struct {
	BatchID   string `json:"batch_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"` // ISO 8601

	TotalItems int `json:"total_items"`
	DoneItems  int `json:"done_items"`
	ErrorItems int `json:"error_items"`

	Items []BatchItem `json:"items"`
	Error *string     `json:"error,omitempty"`

	MergeEnabled       bool    `json:"merge_enabled"`
	MergeStatus        *string `json:"merge_status,omitempty"`
	MergeWarning       *string `json:"merge_warning,omitempty"`
	MergeError         *string `json:"merge_error,omitempty"`
	MergedXlsxPath     *string `json:"merged_xlsx_path,omitempty"`
	MergedManifestPath *string `json:"merged_manifest_path,omitempty"`
}

// IsTerminal сообщает, что пакет досчитан и дальше опрашивать нечего.
// Единственная точка, где принимается это решение.
func (b *Batch) IsTerminal() bool {
	switch strings.ToUpper(strings.TrimSpace(b.Status)) {
	case BatchStatusDone, BatchStatusError:
		return true
	}
	return false
}

// Progress агрегированный прогресс пакета для интерфейса.
type Progress struct {
	Total  int
	Done   int
	Errors int
}

func (b *Batch) Progress() Progress {
	return Progress{
		Total:  b.TotalItems,
		Done:   b.DoneItems,
		Errors: b.ErrorItems,
	}
}
