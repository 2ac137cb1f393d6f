// Утилита batchrun отправляет каталог PDF-файлов на расчёт пеней без
// веб-интерфейса: инспекция, отправка пакета, опрос статуса и выгрузка
// готовых артефактов в указанный каталог.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/zhukovvlad/peni-go/cmd/internal/api_models"
	"github.com/zhukovvlad/peni-go/cmd/internal/batchpoll"
	"github.com/zhukovvlad/peni-go/cmd/internal/config"
	"github.com/zhukovvlad/peni-go/cmd/internal/draft"
	"github.com/zhukovvlad/peni-go/cmd/pkg/calcclient"
	"github.com/zhukovvlad/peni-go/cmd/pkg/logging"
)

func main() {
	var (
		dir        = flag.String("dir", ".", "каталог с PDF-файлами постановлений")
		category   = flag.String("category", "", "категория должника для всех файлов")
		rate       = flag.Float64("rate", 0, "ставка пени, % (0 — значение по умолчанию)")
		overdueDay = flag.Int("overdue-day", 0, "день месяца, с которого начисляется пеня (0 — по умолчанию)")
		calcDate   = flag.String("calc-date", "", "дата расчёта в формате ДД.ММ.ГГГГ (по умолчанию — сегодня)")
		merge      = flag.Bool("merge", true, "собирать общий XLSX по пакету")
		out        = flag.String("out", "./peni_out", "каталог для готовых артефактов")
	)
	flag.Parse()

	logger := logging.GetLogger()
	logger.Info("Batch Run Tool")

	if err := godotenv.Load(); err != nil {
		logger.Infof("no .env file loaded: %v", err)
	}

	cfg := config.GetConfig()
	client := calcclient.NewClient(cfg.CalcService.URL, cfg.CalcService.Timeout, logger)
	client.SetRateLimit(cfg.CalcService.RateLimitRPS, cfg.CalcService.RateLimitBurst)

	ctx := context.Background()

	sources, err := collectSources(*dir)
	if err != nil {
		logger.Fatalf("error reading directory %s: %v", *dir, err)
	}
	if len(sources) == 0 {
		logger.Fatalf("no PDF files found in %s", *dir)
	}

	manager := draft.NewManager(client, logger)
	added := manager.AddFiles(sources)
	logger.Infof("Added %d of %d files", added, len(sources))

	manager.SetMergeXlsx(*merge)

	manager.RunInspect(ctx)
	snap := waitDraftSettled(manager)
	if snap.Phase == draft.PhaseError {
		logger.Fatalf("inspect failed: %s", snap.GlobalError)
	}
	reportInspect(logger, snap)

	applyFlags(manager, snap, *category, *rate, *overdueDay, *calcDate)

	snap = manager.Snapshot()
	if !snap.CanProcess {
		for _, it := range snap.Items {
			for field, msg := range it.ValidationErrors {
				logger.Errorf("%s: %s: %s", it.File.Name, field, msg)
			}
		}
		logger.Fatal("batch is not ready to process")
	}

	batchID, err := manager.ProcessBatch(ctx)
	if err != nil {
		logger.Fatalf("error processing batch: %v", err)
	}
	logger.Infof("Batch %s accepted, polling...", batchID)

	poller := batchpoll.New(client, logger)
	poller.Watch(ctx, batchID)
	final := waitBatchFinal(poller)
	poller.Close()

	if final.Batch == nil {
		logger.Fatalf("polling stopped without result: %s", final.Error)
	}
	logger.Infof("Batch %s finished: %s (%d done, %d errors of %d)",
		batchID, final.Batch.Status,
		final.Progress.Done, final.Progress.Errors, final.Progress.Total)

	if err := os.MkdirAll(*out, 0o755); err != nil {
		logger.Fatalf("error creating output directory: %v", err)
	}
	failed := downloadArtifacts(ctx, logger, client, final.Batch, *out)

	if final.Batch.Status == api_models.BatchStatusError || failed {
		os.Exit(1)
	}
}

// collectSources собирает PDF-файлы каталога в детерминированном порядке.
func collectSources(dir string) ([]draft.FileSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var sources []draft.FileSource
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		sources = append(sources, draft.FileSource{
			Name:        entry.Name(),
			ContentType: "application/pdf",
			Open: func() (io.ReadCloser, error) {
				return os.Open(path)
			},
		})
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })

	return sources, nil
}

// waitDraftSettled ждёт завершения инспекции.
func waitDraftSettled(m *draft.Manager) draft.Snapshot {
	for {
		snap := m.Snapshot()
		if snap.Phase != draft.PhaseInspecting {
			return snap
		}
		<-m.Changes()
	}
}

// waitBatchFinal ждёт терминального статуса пакета.
func waitBatchFinal(p *batchpoll.Poller) batchpoll.Snapshot {
	for {
		snap := p.Snapshot()
		if snap.IsFinal {
			return snap
		}
		<-p.Changes()
	}
}

func reportInspect(logger *logging.Logger, snap draft.Snapshot) {
	for _, it := range snap.Items {
		name := "—"
		inn := ""
		if it.Debtor != nil {
			if it.Debtor.Name != nil {
				name = *it.Debtor.Name
			}
			if it.Debtor.Inn != nil {
				inn = *it.Debtor.Inn
			}
		}
		logger.Infof("%s: должник %q, ИНН %q", it.File.Name, name, inn)
		if it.NeedsOcr {
			logger.Warnf("%s: файл потребует OCR", it.File.Name)
		}
		if it.InspectWarning != "" {
			logger.Warnf("%s: %s", it.File.Name, it.InspectWarning)
		}
		if it.InspectError != "" {
			logger.Warnf("%s: ошибка инспекции: %s", it.File.Name, it.InspectError)
		}
	}
	if snap.InnMismatch.HasMismatch {
		logger.Warnf("в пакете несколько разных ИНН: %s", strings.Join(snap.InnMismatch.Inns, ", "))
	}
}

// applyFlags переносит значения флагов в параметры каждого файла.
func applyFlags(m *draft.Manager, snap draft.Snapshot, category string, rate float64, overdueDay int, calcDate string) {
	patch := draft.ParamsPatch{}
	if category != "" {
		patch.Category = &category
	}
	if rate > 0 {
		patch.RatePercent = &rate
	}
	if overdueDay > 0 {
		patch.OverdueDay = &overdueDay
	}
	if calcDate != "" {
		patch.CalcDate = &calcDate
	}
	if patch == (draft.ParamsPatch{}) {
		return
	}
	for _, it := range snap.Items {
		m.UpdateItemParams(it.ClientFileID, patch)
	}
}

// downloadArtifacts выгружает XLSX по каждому успешному файлу и общий
// XLSX пакета, если он был собран. Возвращает true при ошибках выгрузки.
func downloadArtifacts(ctx context.Context, logger *logging.Logger, client *calcclient.Client, batch *api_models.Batch, out string) bool {
	failed := false
	for _, item := range batch.Items {
		if item.Status != api_models.ItemStatusDone {
			continue
		}
		artifact, err := client.DownloadItemArtifact(ctx, item.ItemID, calcclient.ArtifactXlsx)
		if err != nil {
			logger.Errorf("%s: ошибка выгрузки: %v", item.FileName, err)
			failed = true
			continue
		}
		if err := saveArtifact(out, artifact, item.FileName+".xlsx"); err != nil {
			logger.Errorf("%s: ошибка записи: %v", item.FileName, err)
			failed = true
			continue
		}
		logger.Infof("%s: готово", item.FileName)
	}

	if batch.MergeEnabled && batch.MergeStatus != nil && *batch.MergeStatus == api_models.MergeStatusMerged {
		artifact, err := client.DownloadBatchArtifact(ctx, batch.BatchID, calcclient.ArtifactXlsx)
		if err != nil {
			logger.Errorf("ошибка выгрузки общего XLSX: %v", err)
			failed = true
		} else if err := saveArtifact(out, artifact, fmt.Sprintf("batch_%s.xlsx", batch.BatchID)); err != nil {
			logger.Errorf("ошибка записи общего XLSX: %v", err)
			failed = true
		}
	}

	return failed
}

func saveArtifact(dir string, artifact *calcclient.Artifact, fallback string) error {
	name := artifact.Filename
	if name == "" {
		name = fallback
	}
	return os.WriteFile(filepath.Join(dir, filepath.Base(name)), artifact.Data, 0o644)
}
