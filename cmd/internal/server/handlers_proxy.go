package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zhukovvlad/peni-go/cmd/internal/api_models"
	"github.com/zhukovvlad/peni-go/cmd/internal/apierrors"
	"github.com/zhukovvlad/peni-go/cmd/internal/history"
	"github.com/zhukovvlad/peni-go/cmd/pkg/calcclient"
)

func (s *Server) HomeHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Peni gateway is running",
	})
}

// inspectHandler принимает multipart с файлами и проксирует их на
// быструю инспекцию расчётного сервиса.
func (s *Server) inspectHandler(c *gin.Context) {
	files, err := formFileRefs(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if len(files) == 0 {
		s.respondError(c, apierrors.NewValidationError("не передано ни одного файла"))
		return
	}

	resp, err := s.client.Inspect(c.Request.Context(), files)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// processBatchHandler проксирует отправку пакета на расчёт и
// записывает пакет в локальную историю.
func (s *Server) processBatchHandler(c *gin.Context) {
	files, err := formFileRefs(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if len(files) == 0 {
		s.respondError(c, apierrors.NewValidationError("не передано ни одного файла"))
		return
	}

	metaJSON := c.PostForm("items_meta")
	if metaJSON == "" {
		s.respondError(c, apierrors.NewValidationError("поле items_meta обязательно"))
		return
	}
	var meta []api_models.ProcessItemMeta
	if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
		s.respondError(c, apierrors.NewValidationError("items_meta должен быть JSON-массивом параметров: %v", err))
		return
	}

	mergeXlsx, err := strconv.ParseBool(c.DefaultPostForm("merge_xlsx", "true"))
	if err != nil {
		s.respondError(c, apierrors.NewValidationError("merge_xlsx должен быть булевым значением"))
		return
	}

	batchID, err := s.client.Process(c.Request.Context(), files, meta, api_models.ProcessOptions{MergeXlsx: mergeXlsx})
	if err != nil {
		s.respondError(c, err)
		return
	}

	if histErr := s.history.Record(history.Entry{
		BatchID:    batchID,
		CreatedAt:  time.Now().UTC(),
		TotalItems: len(files),
		Status:     api_models.BatchStatusRunning,
	}); histErr != nil {
		// История best-effort: отказ записи не роняет отправку.
		s.logger.Warnf("не удалось записать пакет %s в историю: %v", batchID, histErr)
	}

	c.JSON(http.StatusOK, api_models.ProcessResponse{BatchID: batchID})
}

// getBatchHandler отдаёт полный снимок пакета и попутно обновляет
// статус в истории.
func (s *Server) getBatchHandler(c *gin.Context) {
	batchID := c.Param("batch_id")

	batch, err := s.client.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if histErr := s.history.UpdateStatus(batchID, batch.Status); histErr != nil {
		s.logger.Warnf("не удалось обновить историю пакета %s: %v", batchID, histErr)
	}

	c.JSON(http.StatusOK, batch)
}

func (s *Server) downloadItemArtifactHandler(c *gin.Context) {
	kind := c.Param("kind")
	if err := validateArtifactKind(kind); err != nil {
		s.respondError(c, err)
		return
	}

	artifact, err := s.client.DownloadItemArtifact(c.Request.Context(), c.Param("item_id"), kind)
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeArtifact(c, artifact, kind)
}

func (s *Server) downloadBatchArtifactHandler(c *gin.Context) {
	kind := c.Param("kind")
	if err := validateArtifactKind(kind); err != nil {
		s.respondError(c, err)
		return
	}

	artifact, err := s.client.DownloadBatchArtifact(c.Request.Context(), c.Param("batch_id"), kind)
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeArtifact(c, artifact, kind)
}

func validateArtifactKind(kind string) error {
	if kind != calcclient.ArtifactXlsx && kind != calcclient.ArtifactPdf {
		return apierrors.NewValidationError("неизвестный тип артефакта %q (ожидается xlsx или pdf)", kind)
	}
	return nil
}

func writeArtifact(c *gin.Context, artifact *calcclient.Artifact, kind string) {
	contentType := "application/pdf"
	if kind == calcclient.ArtifactXlsx {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if artifact.Filename != "" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	}
	c.Data(http.StatusOK, contentType, artifact.Data)
}

// formFileRefs читает файлы из multipart-формы в байтовые снимки.
func formFileRefs(c *gin.Context) ([]api_models.FileRef, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apierrors.NewValidationError("ожидается multipart-форма: %v", err)
	}

	headers := form.File["files"]
	files := make([]api_models.FileRef, 0, len(headers))
	for _, fh := range headers {
		data, err := readFormFile(fh)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения файла %q: %w", fh.Filename, err)
		}
		files = append(files, api_models.FileRef{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// respondError переводит ошибку в HTTP-ответ: ошибки валидации - 400,
// "не найдено" - 404, типизированные ошибки расчётного сервиса
// сохраняют свой статус, остальное - 500.
func (s *Server) respondError(c *gin.Context, err error) {
	var validationErr *apierrors.ValidationError
	var notFoundErr *apierrors.NotFoundError
	var apiErr *calcclient.APIError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, errorResponse(err))
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, errorResponse(err))
	case errors.As(err, &apiErr):
		s.logger.Errorf("ошибка расчётного сервиса: %v", err)
		c.JSON(apiErr.Status, gin.H{"error": apiErr.Message})
	default:
		s.logger.Errorf("внутренняя ошибка шлюза: %v", err)
		c.JSON(http.StatusInternalServerError, errorResponse(err))
	}
}
