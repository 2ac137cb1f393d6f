// Package batchpoll опрашивает расчётный сервис о состоянии
// отправленного пакета до достижения терминального статуса, с
// эскалирующими задержками и восстановлением после ошибок.
package batchpoll

import (
	"context"
	"sync"
	"time"

	"github.com/zhukovvlad/peni-go/cmd/internal/api_models"
	"github.com/zhukovvlad/peni-go/cmd/pkg/logging"
)

// Phase фаза опроса.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhasePolling Phase = "polling"
	PhaseStable  Phase = "stable"
	PhaseError   Phase = "error"
)

// Задержки между успешными опросами; индекс прижимается к последнему
// элементу.
var pollDelays = []time.Duration{
	1500 * time.Millisecond,
	2500 * time.Millisecond,
	4000 * time.Millisecond,
	6000 * time.Millisecond,
	8000 * time.Millisecond,
}

const (
	errBackoffBase = 2 * time.Second
	errBackoffStep = 1 * time.Second
	errBackoffMax  = 10 * time.Second
)

// Fetcher источник снимков пакета. Реализуется calcclient.
type Fetcher interface {
	GetBatch(ctx context.Context, batchID string) (*api_models.Batch, error)
}

// TimerHandle отменяемый отложенный вызов.
type TimerHandle interface {
	Stop() bool
}

// NewTimerFunc фабрика таймеров; по умолчанию time.AfterFunc. Тесты
// подставляют ручной таймер и управляют срабатыванием сами.
type NewTimerFunc func(d time.Duration, f func()) TimerHandle

func defaultNewTimer(d time.Duration, f func()) TimerHandle {
	return time.AfterFunc(d, f)
}

// Poller опрашивает один пакет по идентификатору. Гарантируется не
// больше одного запланированного опроса в любой момент: новая
// постановка сначала снимает предыдущий таймер. Смена наблюдаемого
// пакета, Reload и Close двигают счётчик поколений, поэтому результат
// запроса, начатого до смены, молча отбрасывается.
type Poller struct {
	mu sync.Mutex

	fetcher Fetcher
	logger  *logging.Logger

	phase   Phase
	batchID string
	batch   *api_models.Batch
	errMsg  string
	attempt int

	gen   uint64
	timer TimerHandle

	ctx      context.Context
	newTimer NewTimerFunc

	changes chan struct{}
}

// New создает поллер в фазе idle.
func New(fetcher Fetcher, logger *logging.Logger) *Poller {
	return &Poller{
		fetcher:  fetcher,
		logger:   logger,
		phase:    PhaseIdle,
		ctx:      context.Background(),
		newTimer: defaultNewTimer,
		changes:  make(chan struct{}, 1),
	}
}

// SetTimerFactory подменяет фабрику таймеров (для тестов).
func (p *Poller) SetTimerFactory(f NewTimerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.newTimer = f
}

// Changes канал уведомлений об изменении состояния (коалесцируется).
func (p *Poller) Changes() <-chan struct{} {
	return p.changes
}

// Watch начинает наблюдение за пакетом: снимает отложенный опрос,
// сбрасывает счётчик попыток и снимок. Пустой идентификатор переводит
// поллер в idle, иначе выполняется немедленный запрос.
func (p *Poller) Watch(ctx context.Context, batchID string) {
	p.mu.Lock()
	p.stopTimerLocked()
	p.gen++
	gen := p.gen
	p.attempt = 0
	p.batch = nil
	p.errMsg = ""
	p.batchID = batchID
	if batchID == "" {
		p.phase = PhaseIdle
		p.notifyLocked()
		p.mu.Unlock()
		return
	}
	p.ctx = ctx
	p.phase = PhaseLoading
	p.notifyLocked()
	p.mu.Unlock()

	go p.tick(gen)
}

// Reload ручное обновление: снимает отложенный опрос, сбрасывает
// попытки и выполняет ровно один запрос. Если пакет всё ещё
// терминален, опрос не возобновляется.
func (p *Poller) Reload() {
	p.mu.Lock()
	if p.batchID == "" {
		p.mu.Unlock()
		return
	}
	p.stopTimerLocked()
	p.gen++
	gen := p.gen
	p.attempt = 0
	p.errMsg = ""
	p.phase = PhaseLoading
	p.notifyLocked()
	p.mu.Unlock()

	go p.tick(gen)
}

// Close прекращает наблюдение. Обязателен при уходе потребителя,
// иначе отложенный опрос продолжит менять состояние, которое никто не
// читает. Запрос, уже ушедший в сеть, не прерывается - его результат
// будет отброшен по счётчику поколений.
func (p *Poller) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTimerLocked()
	p.gen++
	p.phase = PhaseIdle
	p.batchID = ""
}

// tick один цикл опроса. Проверка поколения и применение результата
// происходят в одной критической секции.
func (p *Poller) tick(gen uint64) {
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	ctx := p.ctx
	batchID := p.batchID
	p.mu.Unlock()

	batch, err := p.fetcher.GetBatch(ctx, batchID)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		return
	}

	if err != nil {
		p.errMsg = err.Error()
		p.phase = PhaseError
		p.attempt++
		delay := errBackoffBase + time.Duration(p.attempt)*errBackoffStep
		if delay > errBackoffMax {
			delay = errBackoffMax
		}
		p.logger.Warnf("ошибка статуса пакета %s (попытка %d): %v, повтор через %s", batchID, p.attempt, err, delay)
		p.scheduleLocked(delay, gen)
		p.notifyLocked()
		return
	}

	p.batch = batch
	p.errMsg = ""

	if batch.IsTerminal() {
		p.phase = PhaseStable
		p.attempt = 0
		p.stopTimerLocked()
		p.logger.Infof("пакет %s завершён со статусом %s", batchID, batch.Status)
		p.notifyLocked()
		return
	}

	p.phase = PhasePolling
	idx := p.attempt
	if idx >= len(pollDelays) {
		idx = len(pollDelays) - 1
	}
	p.attempt++
	p.scheduleLocked(pollDelays[idx], gen)
	p.notifyLocked()
}

func (p *Poller) scheduleLocked(d time.Duration, gen uint64) {
	p.stopTimerLocked()
	p.timer = p.newTimer(d, func() {
		p.tick(gen)
	})
}

func (p *Poller) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// Snapshot снимок состояния поллера.
type Snapshot struct {
	Phase       Phase
	BatchID     string
	Batch       *api_models.Batch
	Error       string
	Progress    api_models.Progress
	InnMismatch api_models.InnMismatch
	IsFinal     bool
}

func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Snapshot{
		Phase:   p.phase,
		BatchID: p.batchID,
		Error:   p.errMsg,
	}
	if p.batch != nil {
		b := *p.batch
		s.Batch = &b
		s.Progress = b.Progress()
		s.IsFinal = b.IsTerminal()

		inns := make([]string, 0, len(b.Items))
		for i := range b.Items {
			inns = append(inns, api_models.NormalizeInn(b.Items[i].Debtor.Inn))
		}
		s.InnMismatch = api_models.CollectInnMismatch(inns)
	}
	return s
}

func (p *Poller) notifyLocked() {
	select {
	case p.changes <- struct{}{}:
	default:
	}
}
