package testutil

import (
	"bytes"
	"io"
	"time"

	"github.com/zhukovvlad/peni-go/cmd/internal/api_models"
	"github.com/zhukovvlad/peni-go/cmd/internal/draft"
)

// TestNow фиксированная "текущая" дата для предсказуемых значений по умолчанию.
var TestNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// CreateTestFileSource создаёт PDF-источник с заданным содержимым.
func CreateTestFileSource(name string, data []byte) draft.FileSource {
	return draft.FileSource{
		Name:        name,
		ContentType: "application/pdf",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// CreateTestPdf создаёт PDF-источник с содержимым по умолчанию.
func CreateTestPdf(name string) draft.FileSource {
	return CreateTestFileSource(name, []byte("%PDF-1.4 test "+name))
}

// CreateInspectResult создаёт результат инспекции одного файла.
func CreateInspectResult(filename, debtorName, inn string) api_models.InspectItemResult {
	return api_models.InspectItemResult{
		Filename: filename,
		Debtor: api_models.DebtorPreview{
			Name: StrPtr(debtorName),
			Inn:  StrPtr(inn),
		},
	}
}

// CreateInspectResponse оборачивает результаты в ответ инспекции.
func CreateInspectResponse(results ...api_models.InspectItemResult) *api_models.InspectResponse {
	return &api_models.InspectResponse{Items: results}
}

// CreateTestBatch создаёт пакет в заданном статусе.
func CreateTestBatch(batchID, status string, items ...api_models.BatchItem) *api_models.Batch {
	b := &api_models.Batch{
		BatchID:    batchID,
		Status:     status,
		CreatedAt:  TestNow.Format(time.RFC3339),
		TotalItems: len(items),
		Items:      items,
	}
	for _, it := range items {
		switch it.Status {
		case api_models.ItemStatusDone:
			b.DoneItems++
		case api_models.ItemStatusError:
			b.ErrorItems++
		}
	}
	return b
}

// CreateTestBatchItem создаёт позицию пакета.
func CreateTestBatchItem(itemID, fileName, status string) api_models.BatchItem {
	return api_models.BatchItem{
		ItemID:       itemID,
		ClientFileID: "client-" + itemID,
		FileName:     fileName,
		Status:       status,
	}
}

// StrPtr возвращает указатель на строку.
func StrPtr(s string) *string {
	return &s
}
