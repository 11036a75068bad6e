package audit

/*
Файл recorder.go реализует асинхронную персистентность журнала инспекций.

Ключевые особенности архитектуры:
- Non-blocking Logging: запись в Postgres не стоит на пути ответа агенту,
  события уходят в буферизованный канал.
- Batching: накопление записей и пакетный Bulk Insert по таймеру или при
  достижении лимита пачки.
- Drain Pattern & Graceful Shutdown: при остановке канал закрывается, воркер
  вычитывает остатки и делает финальный flush — записи не теряются при
  перезапуске сервиса.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/sentinel-server/internal/domain"
)

// StorageInterface определяет, куда физически сохраняются записи журнала.
type StorageInterface interface {
	// WriteBatch сохраняет пачку записей за один запрос
	WriteBatch(ctx context.Context, records []domain.LogRecord) error
}

// Recorder — асинхронный пакетный писатель журнала.
type Recorder struct {
	ch     chan domain.LogRecord
	repo   StorageInterface
	logger *zap.Logger
	wg     sync.WaitGroup

	batchSize     int
	flushInterval time.Duration

	// Атомарный флаг (0 - открыт, 1 - закрыт): защита от Log после Stop
	isClosed int32

	// onOverflow дергается при переполнении буфера (метрика load shedding)
	onOverflow func()
}

type Option func(*Recorder)

// WithOverflowHook подключает колбэк на сброс событий при переполнении.
func WithOverflowHook(fn func()) Option {
	return func(r *Recorder) { r.onOverflow = fn }
}

func NewRecorder(repo StorageInterface, logger *zap.Logger, bufferSize, batchSize int, flushInterval time.Duration, opts ...Option) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 500 * time.Millisecond
	}

	r := &Recorder{
		ch:            make(chan domain.LogRecord, bufferSize),
		repo:          repo,
		logger:        logger.With(zap.String("mod", "recorder")),
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) Start() {
	r.wg.Add(1)
	go r.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет.
func (r *Recorder) Stop() {
	atomic.StoreInt32(&r.isClosed, 1)

	// Крошечная пауза, чтобы текущие Log успели проскочить
	time.Sleep(10 * time.Millisecond)

	r.logger.Info("stopping recorder: closing channel and flushing buffer...")
	close(r.ch)
	r.wg.Wait()
	r.logger.Info("recorder stopped gracefully")
}

// Pending сообщает текущую заполненность буфера (для метрик).
func (r *Recorder) Pending() int {
	return len(r.ch)
}

// Log ставит запись в очередь на сохранение. Никогда не блокирует:
// при переполнении буфера запись сбрасывается (load shedding) с ошибкой в лог.
func (r *Recorder) Log(rec domain.LogRecord) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	if atomic.LoadInt32(&r.isClosed) == 1 {
		r.logger.Warn("log record dropped: recorder is stopping", zap.String("request_id", rec.RequestID))
		return
	}

	select {
	case r.ch <- rec:
	default:
		if r.onOverflow != nil {
			r.onOverflow()
		}
		r.logger.Error("audit_buffer_overflow",
			zap.String("request_id", rec.RequestID),
			zap.String("host", rec.Host),
		)
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	batch := make([]domain.LogRecord, 0, r.batchSize)
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			// Background: основной контекст на выходе может быть уже закрыт
			if err := r.repo.WriteBatch(context.Background(), batch); err != nil {
				r.logger.Error("log flush failed", zap.Error(err), zap.Int("batch", len(batch)))
			}
			batch = batch[:0]
		}
	}

	for {
		select {
		case rec, ok := <-r.ch:
			if !ok {
				// Канал закрыт в Stop(): дочитали остатки — финальный сброс
				flush()
				r.logger.Info("recorder worker finished")
				return
			}
			batch = append(batch, rec)
			if len(batch) >= r.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
