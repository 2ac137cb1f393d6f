package draft

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhukovvlad/peni-go/cmd/internal/api_models"
	"github.com/zhukovvlad/peni-go/cmd/internal/util"
	"github.com/zhukovvlad/peni-go/cmd/pkg/logging"
)

var (
	// ErrNoItems отправка пустого пакета отклоняется до любого
	// сетевого вызова.
	ErrNoItems = errors.New("draft batch is empty")
	// ErrValidation в пакете есть файлы с ошибками валидации.
	ErrValidation = errors.New("draft batch has validation errors")
)

// Transport сетевой коллаборатор менеджера. Реализуется calcclient,
// в тестах подменяется моком.
type Transport interface {
	Inspect(ctx context.Context, files []api_models.FileRef) (*api_models.InspectResponse, error)
	Process(ctx context.Context, files []api_models.FileRef, meta []api_models.ProcessItemMeta, opts api_models.ProcessOptions) (string, error)
}

// Manager владеет списком черновых позиций на клиентской стороне.
// Все операции синхронизированы одним мьютексом: проверка поколения
// инспекции и применение её результата происходят внутри одной
// критической секции, поэтому устаревший ответ не может перезаписать
// более новое состояние (см. RunInspect и ProcessBatch).
type Manager struct {
	mu sync.Mutex

	phase       Phase
	items       []Item
	globalError string
	mergeXlsx   bool

	// Монотонный счётчик поколений инспекции. Применяется только
	// ответ, чьё поколение всё ещё текущее; любое изменение списка
	// (AddFiles/RemoveItem/ClearAll), повторная инспекция и
	// ProcessBatch двигают счётчик, чтобы опоздавший ответ не тронул
	// состояние, к которому он уже не относится.
	inspectGen uint64

	transport Transport
	logger    *logging.Logger

	now   func() time.Time
	newID func() string

	changes chan struct{}
}

// NewManager создает менеджер черновика пакета.
func NewManager(transport Transport, logger *logging.Logger) *Manager {
	return &Manager{
		phase:     PhaseIdle,
		mergeXlsx: true,
		transport: transport,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
		changes:   make(chan struct{}, 1),
	}
}

// Changes канал уведомлений об изменении состояния. Сигналы
// коалесцируются: подписчик после сигнала читает свежий Snapshot.
func (m *Manager) Changes() <-chan struct{} {
	return m.changes
}

func (m *Manager) notifyLocked() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

// AddFiles фильтрует входные файлы до PDF (по MIME или расширению),
// прочие молча отбрасывает. Для каждого принятого файла снимает
// байтовый снимок, назначает clientFileId и добавляет позицию с
// параметрами по умолчанию. Возвращает число добавленных файлов.
// Любое изменение списка инвалидирует инспекцию в полёте: её результат
// относится к уже не существующему набору файлов.
//
// Если чтение какого-то файла падает, глобальная ошибка выставляется,
// фаза уходит в error, а уже добавленные файлы остаются.
func (m *Manager) AddFiles(sources []FileSource) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	added := 0
	for _, src := range sources {
		if !isPdf(src) {
			continue
		}

		data, err := readAll(src)
		if err != nil {
			m.logger.Errorf("ошибка чтения файла %q: %v", src.Name, err)
			m.inspectGen++
			m.globalError = fmt.Sprintf("не удалось прочитать файл %q: %v", src.Name, err)
			m.phase = PhaseError
			m.notifyLocked()
			return added
		}

		params := DefaultParams(m.now())
		m.items = append(m.items, Item{
			ClientFileID: m.newID(),
			File: api_models.FileRef{
				Name:        src.Name,
				ContentType: "application/pdf",
				Data:        data,
			},
			Params:           params,
			ValidationErrors: ValidateParams(params),
		})
		added++
	}

	if added > 0 {
		m.inspectGen++
		if m.phase == PhaseIdle || m.phase == PhaseInspecting {
			m.phase = PhaseReady
		}
		m.notifyLocked()
	}
	return added
}

func isPdf(src FileSource) bool {
	if strings.EqualFold(src.ContentType, "application/pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(src.Name), ".pdf")
}

func readAll(src FileSource) ([]byte, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// RemoveItem убирает позицию из списка и инвалидирует инспекцию в
// полёте. Пустой список возвращает фазу в idle. clientFileId удалённой
// позиции повторно не используется.
func (m *Manager) RemoveItem(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexLocked(id)
	if idx < 0 {
		return
	}
	m.items = append(m.items[:idx], m.items[idx+1:]...)
	m.inspectGen++
	if len(m.items) == 0 {
		m.phase = PhaseIdle
	} else if m.phase == PhaseInspecting {
		m.phase = PhaseReady
	}
	m.notifyLocked()
}

// ClearAll очищает список, сбрасывает ошибки, инвалидирует инспекцию в
// полёте и возвращает фазу в idle.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = nil
	m.inspectGen++
	m.globalError = ""
	m.phase = PhaseIdle
	m.notifyLocked()
}

// UpdateItemParams частично обновляет параметры позиции и
// перевалидирует только её.
func (m *Manager) UpdateItemParams(id string, patch ParamsPatch) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexLocked(id)
	if idx < 0 {
		return
	}
	m.items[idx].Params.apply(patch)
	m.items[idx].ValidationErrors = ValidateParams(m.items[idx].Params)
	m.notifyLocked()
}

// CopyDown копирует параметры позиции на следующую за ней. На последней
// строке и при неизвестном id ничего не делает.
func (m *Manager) CopyDown(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexLocked(id)
	if idx < 0 || idx >= len(m.items)-1 {
		return
	}
	m.items[idx+1].Params = m.items[idx].Params
	m.items[idx+1].ValidationErrors = ValidateParams(m.items[idx+1].Params)
	m.notifyLocked()
}

// CopyToAll копирует параметры позиции на все остальные.
func (m *Manager) CopyToAll(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexLocked(id)
	if idx < 0 {
		return
	}
	src := m.items[idx].Params
	for i := range m.items {
		if i == idx {
			continue
		}
		m.items[i].Params = src
		m.items[i].ValidationErrors = ValidateParams(m.items[i].Params)
	}
	m.notifyLocked()
}

// MoveUp меняет позицию местами с предыдущей; на границе - no-op.
func (m *Manager) MoveUp(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexLocked(id)
	if idx <= 0 {
		return
	}
	m.items[idx-1], m.items[idx] = m.items[idx], m.items[idx-1]
	m.notifyLocked()
}

// MoveDown меняет позицию местами со следующей; на границе - no-op.
func (m *Manager) MoveDown(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexLocked(id)
	if idx < 0 || idx >= len(m.items)-1 {
		return
	}
	m.items[idx], m.items[idx+1] = m.items[idx+1], m.items[idx]
	m.notifyLocked()
}

// ResetParams возвращает позиции параметры по умолчанию. Операция
// идемпотентна.
func (m *Manager) ResetParams(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexLocked(id)
	if idx < 0 {
		return
	}
	m.items[idx].Params = DefaultParams(m.now())
	m.items[idx].ValidationErrors = ValidateParams(m.items[idx].Params)
	m.notifyLocked()
}

// SetMergeXlsx переключает объединение результатов в один файл.
func (m *Manager) SetMergeXlsx(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mergeXlsx = v
	m.notifyLocked()
}

// RunInspect отправляет текущие файлы на инспекцию. Пустой список -
// no-op. Применяется только ответ текущего поколения: если за время
// запроса список изменился (RemoveItem/AddFiles/повторная инспекция)
// или пакет ушёл в обработку, результат молча отбрасывается - в том
// числе и ошибка, чтобы отменённая инспекция не мигала ошибкой.
func (m *Manager) RunInspect(ctx context.Context) {
	m.mu.Lock()
	if len(m.items) == 0 {
		m.mu.Unlock()
		return
	}
	m.inspectGen++
	gen := m.inspectGen
	m.phase = PhaseInspecting
	m.globalError = ""
	files := m.snapshotFilesLocked()
	m.notifyLocked()
	m.mu.Unlock()

	resp, err := m.transport.Inspect(ctx, files)

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.inspectGen {
		m.logger.Infof("результат инспекции поколения %d отброшен (текущее %d)", gen, m.inspectGen)
		return
	}

	if err != nil {
		m.logger.Errorf("ошибка инспекции: %v", err)
		m.globalError = err.Error()
		m.phase = PhaseError
		m.notifyLocked()
		return
	}

	m.applyInspectLocked(resp)
	m.phase = PhaseReady
	m.notifyLocked()
}

// applyInspectLocked сливает результаты инспекции обратно в список по
// имени файла: по каждому имени результаты потребляют черновые позиции
// в порядке списка (первая ещё не занятая), что поддерживает дубликаты
// имён. Результаты без свободной позиции отбрасываются; позиции без
// результата сохраняют прежние данные должника.
func (m *Manager) applyInspectLocked(resp *api_models.InspectResponse) {
	byName := make(map[string][]int)
	for i := range m.items {
		name := m.items[i].File.Name
		byName[name] = append(byName[name], i)
	}

	for _, res := range resp.Items {
		queue := byName[res.Filename]
		if len(queue) == 0 {
			m.logger.Warnf("результат инспекции для %q не нашёл позиции в черновике", res.Filename)
			continue
		}
		idx := queue[0]
		byName[res.Filename] = queue[1:]

		item := &m.items[idx]
		debtor := res.Debtor
		item.Debtor = &debtor
		item.NeedsOcr = res.NeedsOcr
		item.InspectWarning = util.Deref(res.InspectWarning)
		item.InspectWarnings = append([]string(nil), res.Warnings...)
		item.InspectError = util.Deref(res.Error)
	}
}

// ProcessBatch отправляет пакет на расчёт и возвращает идентификатор
// пакета. Пустой пакет и пакет с ошибками валидации отклоняются до
// сетевого вызова. Счётчик поколений двигается безусловно, поэтому
// ответ любой незавершённой инспекции после этого вызова игнорируется.
// При ошибке транспорта менеджер переходит в error и ошибка
// возвращается вызывающему.
func (m *Manager) ProcessBatch(ctx context.Context) (string, error) {
	m.mu.Lock()
	if len(m.items) == 0 {
		m.mu.Unlock()
		return "", ErrNoItems
	}
	for i := range m.items {
		if len(m.items[i].ValidationErrors) > 0 {
			m.mu.Unlock()
			return "", ErrValidation
		}
	}

	m.inspectGen++ // невыполненная инспекция больше не применится
	m.phase = PhaseProcessing
	m.globalError = ""

	files := m.snapshotFilesLocked()
	meta := make([]api_models.ProcessItemMeta, len(m.items))
	for i := range m.items {
		p := m.items[i].Params
		meta[i] = api_models.ProcessItemMeta{
			ClientFileID:           m.items[i].ClientFileID,
			FileName:               m.items[i].File.Name,
			CalcDate:               p.CalcDate,
			Category:               p.Category,
			RatePercent:            p.RatePercent,
			OverdueDay:             p.OverdueDay,
			ExcludeZeroDebtPeriods: p.ExcludeZeroDebtPeriods,
			AddStateDuty:           p.AddStateDuty,
		}
	}

	merge := m.mergeXlsx && !m.innMismatchLocked().HasMismatch
	m.notifyLocked()
	m.mu.Unlock()

	batchID, err := m.transport.Process(ctx, files, meta, api_models.ProcessOptions{MergeXlsx: merge})

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.logger.Errorf("ошибка отправки пакета: %v", err)
		m.globalError = err.Error()
		m.phase = PhaseError
		m.notifyLocked()
		return "", err
	}

	m.logger.Infof("пакет %s отправлен на расчёт (%d файлов, merge=%v)", batchID, len(meta), merge)
	m.phase = PhaseReady
	m.notifyLocked()
	return batchID, nil
}

// Snapshot снимок состояния для потребителей. Возвращаемые данные
// принадлежат вызывающему; байты файлов разделяются и считаются
// неизменяемыми.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]Item, len(m.items))
	for i := range m.items {
		items[i] = m.copyItemLocked(i)
	}

	return Snapshot{
		Phase:       m.phase,
		Items:       items,
		GlobalError: m.globalError,
		MergeXlsx:   m.mergeXlsx,
		CanProcess:  m.canProcessLocked(),
		InnMismatch: m.innMismatchLocked(),
	}
}

func (m *Manager) copyItemLocked(i int) Item {
	it := m.items[i]
	if it.Debtor != nil {
		d := api_models.DebtorPreview{}
		if it.Debtor.Name != nil {
			name := *it.Debtor.Name
			d.Name = &name
		}
		if it.Debtor.Inn != nil {
			inn := *it.Debtor.Inn
			d.Inn = &inn
		}
		it.Debtor = &d
	}
	it.InspectWarnings = append([]string(nil), it.InspectWarnings...)
	errs := make(map[string]string, len(it.ValidationErrors))
	for k, v := range it.ValidationErrors {
		errs[k] = v
	}
	it.ValidationErrors = errs
	return it
}

func (m *Manager) canProcessLocked() bool {
	if len(m.items) == 0 {
		return false
	}
	if m.phase == PhaseInspecting || m.phase == PhaseProcessing {
		return false
	}
	for i := range m.items {
		if len(m.items[i].ValidationErrors) > 0 {
			return false
		}
	}
	return true
}

func (m *Manager) innMismatchLocked() api_models.InnMismatch {
	inns := make([]string, 0, len(m.items))
	for i := range m.items {
		if m.items[i].Debtor == nil {
			continue
		}
		inns = append(inns, api_models.NormalizeInn(m.items[i].Debtor.Inn))
	}
	return api_models.CollectInnMismatch(inns)
}

func (m *Manager) snapshotFilesLocked() []api_models.FileRef {
	files := make([]api_models.FileRef, len(m.items))
	for i := range m.items {
		files[i] = m.items[i].File
	}
	return files
}

func (m *Manager) indexLocked(id string) int {
	for i := range m.items {
		if m.items[i].ClientFileID == id {
			return i
		}
	}
	return -1
}
