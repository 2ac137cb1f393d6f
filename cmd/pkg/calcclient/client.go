// Package calcclient реализует HTTP-клиент расчётного сервиса пеней:
// инспекция PDF, отправка пакета на расчёт, статус пакета и скачивание
// готовых артефактов. Все ошибки сервиса приводятся к *APIError.
package calcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/zhukovvlad/peni-go/cmd/internal/api_models"
	"github.com/zhukovvlad/peni-go/cmd/pkg/logging"
)

// Виды артефактов, которые умеет отдавать сервис.
const (
	ArtifactXlsx = "xlsx"
	ArtifactPdf  = "pdf"
)

// APIError структурированная ошибка расчётного сервиса: HTTP-статус
// плюс человекочитаемое сообщение. Вызывающий код не должен ветвиться
// по статусу — поле нужно для логов и отображения.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("calc service: %d: %s", e.Status, e.Message)
}

// Client клиент расчётного сервиса.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter // nil, если ограничение не настроено
	logger     *logging.Logger
}

// NewClient создает клиента с общим http.Client и таймаутом на запрос.
func NewClient(baseURL string, timeout time.Duration, logger *logging.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// SetRateLimit включает клиентское ограничение частоты запросов.
// rps <= 0 выключает ограничение.
func (c *Client) SetRateLimit(rps float64, burst int) {
	if rps <= 0 {
		c.limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// Inspect отправляет файлы на быструю инспекцию (извлечение должника и
// проверку текстового слоя).
func (c *Client) Inspect(ctx context.Context, files []api_models.FileRef) (*api_models.InspectResponse, error) {
	body, contentType, err := buildMultipart(files, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки multipart для inspect: %w", err)
	}

	var resp api_models.InspectResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/pdfs/inspect", body, contentType, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Process отправляет пакет на расчёт и возвращает идентификатор пакета.
func (c *Client) Process(ctx context.Context, files []api_models.FileRef, meta []api_models.ProcessItemMeta, opts api_models.ProcessOptions) (string, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации items_meta: %w", err)
	}

	fields := map[string]string{
		"items_meta": string(metaJSON),
		"merge_xlsx": strconv.FormatBool(opts.MergeXlsx),
	}
	body, contentType, err := buildMultipart(files, fields)
	if err != nil {
		return "", fmt.Errorf("ошибка сборки multipart для process: %w", err)
	}

	var resp api_models.ProcessResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/batches/process", body, contentType, &resp); err != nil {
		return "", err
	}
	if resp.BatchID == "" {
		return "", &APIError{Status: http.StatusBadGateway, Message: "сервис не вернул batch_id"}
	}
	return resp.BatchID, nil
}

// GetBatch запрашивает полный снимок состояния пакета.
func (c *Client) GetBatch(ctx context.Context, batchID string) (*api_models.Batch, error) {
	var batch api_models.Batch
	p := "/api/batches/" + url.PathEscape(batchID)
	if err := c.doJSON(ctx, http.MethodGet, p, nil, "", &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// Artifact скачанный файл результата и предложенное сервисом имя.
type Artifact struct {
	Filename string
	Data     []byte
}

// DownloadItemArtifact скачивает результат одного файла (xlsx или pdf).
func (c *Client) DownloadItemArtifact(ctx context.Context, itemID, kind string) (*Artifact, error) {
	p := "/api/items/" + url.PathEscape(itemID) + "/download/" + url.PathEscape(kind)
	return c.download(ctx, p)
}

// DownloadBatchArtifact скачивает сводный артефакт пакета.
func (c *Client) DownloadBatchArtifact(ctx context.Context, batchID, kind string) (*Artifact, error) {
	p := "/api/batches/" + url.PathEscape(batchID) + "/download/" + url.PathEscape(kind)
	return c.download(ctx, p)
}

func (c *Client) download(ctx context.Context, path string) (*Artifact, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения тела ответа: %w", err)
	}

	return &Artifact{
		Filename: filenameFromDisposition(resp.Header.Get("Content-Disposition")),
		Data:     data,
	}, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	resp, err := c.do(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ошибка декодирования ответа %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP-запроса: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Errorf("расчётный сервис недоступен (%s %s): %v", method, path, err)
		}
		return nil, &APIError{
			Status:  http.StatusBadGateway,
			Message: "сервис расчёта пеней временно недоступен",
		}
	}
	return resp, nil
}

// buildMultipart собирает multipart-тело: все файлы идут в поле "files",
// дополнительные поля формы передаются как есть.
func buildMultipart(files []api_models.FileRef, fields map[string]string) (io.Reader, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, f := range files {
		part, err := writer.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

// readAPIError переводит не-200 ответ в *APIError. Тело ожидается в
// формате FastAPI ({"detail": ...}) либо {"error": ...}; при другом
// формате берётся сырой текст.
func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload struct {
		Detail interface{} `json:"detail"`
		Error  string      `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(raw, &payload); err == nil {
		switch {
		case payload.Error != "":
			msg = payload.Error
		case payload.Detail != nil:
			if s, ok := payload.Detail.(string); ok {
				msg = s
			} else {
				b, _ := json.Marshal(payload.Detail)
				msg = string(b)
			}
		}
	}
	if msg == "" {
		msg = string(bytes.TrimSpace(raw))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return &APIError{Status: resp.StatusCode, Message: msg}
}

// filenameFromDisposition достаёт имя файла из Content-Disposition.
func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
