package calcclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhukovvlad/peni-go/cmd/internal/api_models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, nil)
}

func testFiles() []api_models.FileRef {
	return []api_models.FileRef{
		{Name: "a.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 a")},
		{Name: "b.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 b")},
	}
}

func TestInspect(t *testing.T) {
	t.Run("файлы уходят в multipart-поле files", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/api/pdfs/inspect", r.URL.Path)

			require.NoError(t, r.ParseMultipartForm(1<<20))
			files := r.MultipartForm.File["files"]
			require.Len(t, files, 2)
			assert.Equal(t, "a.pdf", files[0].Filename)
			assert.Equal(t, "b.pdf", files[1].Filename)

			json.NewEncoder(w).Encode(api_models.InspectResponse{
				Items: []api_models.InspectItemResult{{Filename: "a.pdf"}, {Filename: "b.pdf"}},
			})
		})

		resp, err := client.Inspect(context.Background(), testFiles())

		require.NoError(t, err)
		require.Len(t, resp.Items, 2)
		assert.Equal(t, "a.pdf", resp.Items[0].Filename)
	})

	t.Run("ошибка сервиса приводится к APIError", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"detail": "файл не является PDF"}`))
		})

		_, err := client.Inspect(context.Background(), testFiles())

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
		assert.Equal(t, "файл не является PDF", apiErr.Message)
	})
}

func TestProcess(t *testing.T) {
	t.Run("метаданные и merge_xlsx уходят полями формы", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/batches/process", r.URL.Path)
			require.NoError(t, r.ParseMultipartForm(1<<20))

			assert.Equal(t, "false", r.FormValue("merge_xlsx"))

			var meta []api_models.ProcessItemMeta
			require.NoError(t, json.Unmarshal([]byte(r.FormValue("items_meta")), &meta))
			require.Len(t, meta, 2)
			assert.Equal(t, "a.pdf", meta[0].FileName)
			assert.Equal(t, 9.5, meta[0].RatePercent)

			json.NewEncoder(w).Encode(api_models.ProcessResponse{BatchID: "batch-99"})
		})

		meta := []api_models.ProcessItemMeta{
			{ClientFileID: "c1", FileName: "a.pdf", CalcDate: "15.06.2025", Category: "Прочие", RatePercent: 9.5, OverdueDay: 1},
			{ClientFileID: "c2", FileName: "b.pdf", CalcDate: "15.06.2025", Category: "Прочие", RatePercent: 9.5, OverdueDay: 1},
		}

		batchID, err := client.Process(context.Background(), testFiles(), meta, api_models.ProcessOptions{MergeXlsx: false})

		require.NoError(t, err)
		assert.Equal(t, "batch-99", batchID)
	})

	t.Run("пустой batch_id в ответе считается ошибкой", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		})

		_, err := client.Process(context.Background(), testFiles(), nil, api_models.ProcessOptions{})

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Contains(t, apiErr.Message, "batch_id")
	})
}

func TestGetBatch(t *testing.T) {
	t.Run("снимок пакета декодируется целиком", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/batches/batch-7", r.URL.Path)
			w.Write([]byte(`{
				"batch_id": "batch-7",
				"status": "RUNNING",
				"created_at": "2025-06-15T12:00:00Z",
				"total_items": 2,
				"done_items": 1,
				"error_items": 0,
				"items": [
					{"item_id": "i1", "client_file_id": "c1", "file_name": "a.pdf", "status": "DONE",
					 "debtor": {"name": "ООО Ромашка", "inn": "7701234567"},
					 "params": {"calc_date": "15.06.2025", "category": "Прочие", "rate_percent": 9.0,
					            "overdue_day": 1, "exclude_zero_debt_periods": false, "add_state_duty": false}}
				],
				"merge_enabled": true,
				"merge_status": "MERGED"
			}`))
		})

		batch, err := client.GetBatch(context.Background(), "batch-7")

		require.NoError(t, err)
		assert.Equal(t, "batch-7", batch.BatchID)
		assert.Equal(t, api_models.BatchStatusRunning, batch.Status)
		assert.False(t, batch.IsTerminal())
		require.Len(t, batch.Items, 1)
		assert.Equal(t, "ООО Ромашка", *batch.Items[0].Debtor.Name)
		require.NotNil(t, batch.MergeStatus)
		assert.Equal(t, api_models.MergeStatusMerged, *batch.MergeStatus)
	})

	t.Run("404 превращается в APIError со статусом", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail": "batch not found"}`))
		})

		_, err := client.GetBatch(context.Background(), "missing")

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.Status)
	})
}

func TestDownload(t *testing.T) {
	t.Run("имя файла берётся из Content-Disposition", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/items/i1/download/xlsx", r.URL.Path)
			w.Header().Set("Content-Disposition", `attachment; filename="result.xlsx"`)
			w.Write([]byte("xlsx-bytes"))
		})

		artifact, err := client.DownloadItemArtifact(context.Background(), "i1", ArtifactXlsx)

		require.NoError(t, err)
		assert.Equal(t, "result.xlsx", artifact.Filename)
		assert.Equal(t, []byte("xlsx-bytes"), artifact.Data)
	})

	t.Run("без заголовка имя остаётся пустым", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pdf-bytes"))
		})

		artifact, err := client.DownloadBatchArtifact(context.Background(), "batch-1", ArtifactPdf)

		require.NoError(t, err)
		assert.Empty(t, artifact.Filename)
		assert.Equal(t, []byte("pdf-bytes"), artifact.Data)
	})

	t.Run("идентификаторы экранируются в пути", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/items/a%2Fb/download/xlsx", r.URL.EscapedPath())
			w.Write([]byte("x"))
		})

		_, err := client.DownloadItemArtifact(context.Background(), "a/b", ArtifactXlsx)

		require.NoError(t, err)
	})
}

func TestNetworkFailure(t *testing.T) {
	t.Run("недоступный сервис даёт 502 с понятным сообщением", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close() // адрес валиден, но никто не слушает
		client := NewClient(srv.URL, time.Second, nil)

		_, err := client.GetBatch(context.Background(), "batch-1")

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadGateway, apiErr.Status)
		assert.Contains(t, apiErr.Message, "недоступен")
	})
}

func TestReadAPIError(t *testing.T) {
	run := func(status int, body string) *APIError {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte(body))
		})
		_, err := client.GetBatch(context.Background(), "x")
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("ожидался *APIError, получено %v", err)
		}
		return apiErr
	}

	t.Run("строковый detail", func(t *testing.T) {
		apiErr := run(http.StatusBadRequest, `{"detail": "items_meta обязателен"}`)
		assert.Equal(t, "items_meta обязателен", apiErr.Message)
	})

	t.Run("структурный detail сериализуется в JSON", func(t *testing.T) {
		apiErr := run(http.StatusUnprocessableEntity, `{"detail": [{"loc": ["files"], "msg": "required"}]}`)
		assert.Contains(t, apiErr.Message, "required")
	})

	t.Run("поле error", func(t *testing.T) {
		apiErr := run(http.StatusInternalServerError, `{"error": "внутренняя ошибка"}`)
		assert.Equal(t, "внутренняя ошибка", apiErr.Message)
	})

	t.Run("не-JSON тело берётся как есть", func(t *testing.T) {
		apiErr := run(http.StatusBadGateway, "upstream timed out")
		assert.Equal(t, "upstream timed out", apiErr.Message)
	})

	t.Run("пустое тело заменяется текстом статуса", func(t *testing.T) {
		apiErr := run(http.StatusServiceUnavailable, "")
		assert.Equal(t, http.StatusText(http.StatusServiceUnavailable), apiErr.Message)
	})
}

func TestSetRateLimit(t *testing.T) {
	t.Run("неположительный rps выключает ограничение", func(t *testing.T) {
		client := NewClient("http://localhost", time.Second, nil)

		client.SetRateLimit(10, 5)
		require.NotNil(t, client.limiter)

		client.SetRateLimit(0, 5)
		assert.Nil(t, client.limiter)
	})
}
