package monitor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// DepthFetcher определяет интерфейс для получения приблизительной глубины DLQ
type DepthFetcher interface {
	// Depth возвращает приблизительное количество сообщений в очереди
	Depth(ctx context.Context) (int64, error)
}

// Alert описывает сработавший порог DLQ
type Alert struct {
	Queue     string    `json:"queue"`
	Depth     int64     `json:"depth"`
	Threshold int       `json:"threshold"`
	FiredAt   time.Time `json:"fired_at"`
}

// Alerter определяет интерфейс доставки алертов
// Монитор отвечает только за пороговое правило; куда уходит алерт
// (webhook, лог) - дело реализации
type Alerter interface {
	Alert(ctx context.Context, alert Alert) error
}

// Monitor наблюдает за глубиной DLQ и поднимает алерт при превышении порога
//
// Правило: алерт срабатывает, когда глубина >= threshold в пределах одного
// периода оценки. Состояние алерта переключается по фронту: повторные периоды
// выше порога не генерируют новых алертов, пока глубина не опустится ниже
// порога и не превысит его снова.
type Monitor struct {
	logger    *zap.Logger
	fetcher   DepthFetcher
	alerter   Alerter
	queue     string
	threshold int
	interval  time.Duration

	inAlarm bool
	gauge   metric.Int64Gauge
}

// New создаёт новый Monitor
func New(logger *zap.Logger, fetcher DepthFetcher, alerter Alerter, queue string, threshold int, interval time.Duration) *Monitor {
	if threshold <= 0 {
		threshold = 5
	}
	if interval <= 0 {
		interval = 60 * time.Second
	}

	// Глубина DLQ пишется в otel gauge; без установленного SDK это noop
	meter := otel.Meter("monitor")
	gauge, _ := meter.Int64Gauge("dlq_depth", metric.WithDescription("Approximate number of messages in the DLQ"))

	return &Monitor{
		logger:    logger,
		fetcher:   fetcher,
		alerter:   alerter,
		queue:     queue,
		threshold: threshold,
		interval:  interval,
		gauge:     gauge,
	}
}

// Run запускает цикл наблюдения и блокируется до отмены контекста
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("starting dlq monitor",
		zap.String("queue", m.queue),
		zap.Int("threshold", m.threshold),
		zap.Duration("interval", m.interval),
	)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Оцениваем сразу при старте, не дожидаясь первого тика
	if err := m.evaluate(ctx); err != nil {
		m.logger.Error("failed to evaluate dlq depth", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("dlq monitor context cancelled, stopping")
			return nil
		case <-ticker.C:
			if err := m.evaluate(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				m.logger.Error("failed to evaluate dlq depth", zap.Error(err))
			}
		}
	}
}

// evaluate выполняет один период оценки порогового правила
func (m *Monitor) evaluate(ctx context.Context) error {
	depth, err := m.fetcher.Depth(ctx)
	if err != nil {
		return err
	}

	m.gauge.Record(ctx, depth, metric.WithAttributes(attribute.String("queue", m.queue)))

	m.logger.Debug("dlq depth sampled",
		zap.String("queue", m.queue),
		zap.Int64("depth", depth),
	)

	if depth >= int64(m.threshold) {
		if m.inAlarm {
			// Уже в состоянии алерта, повторно не шлём
			return nil
		}
		m.inAlarm = true

		alert := Alert{
			Queue:     m.queue,
			Depth:     depth,
			Threshold: m.threshold,
			FiredAt:   time.Now().UTC(),
		}

		m.logger.Warn("dlq depth threshold crossed, raising alert",
			zap.String("queue", m.queue),
			zap.Int64("depth", depth),
			zap.Int("threshold", m.threshold),
		)

		if err := m.alerter.Alert(ctx, alert); err != nil {
			// Сбрасываем состояние, чтобы повторить алерт на следующем периоде
			m.inAlarm = false
			return err
		}
		return nil
	}

	if m.inAlarm {
		m.inAlarm = false
		m.logger.Info("dlq depth back below threshold",
			zap.String("queue", m.queue),
			zap.Int64("depth", depth),
			zap.Int("threshold", m.threshold),
		)
	}

	return nil
}
