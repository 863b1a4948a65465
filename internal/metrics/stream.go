package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "voxel"

// StreamMetrics собирает Prometheus-метрики потоковой загрузки чанков и освещения.
// Нулевой указатель допустим: все методы в этом случае ничего не делают.
type StreamMetrics struct {
	requested      prometheus.Counter
	generated      prometheus.Counter
	loaded         prometheus.Counter
	decodeFailures *prometheus.CounterVec
	integrated     prometheus.Counter
	discarded      prometheus.Counter
	retired        prometheus.Counter
	saved          prometheus.Counter
	saveFailures   prometheus.Counter
	lightingSteps  prometheus.Counter

	activeChunks  prometheus.Gauge
	pendingJobs   prometheus.Gauge
	lightingQueue prometheus.Gauge

	jobDuration *prometheus.HistogramVec
}

// NewStreamMetrics создаёт метрики и регистрирует их в reg.
// При reg == nil метрики не регистрируются нигде.
func NewStreamMetrics(reg prometheus.Registerer) *StreamMetrics {
	m := &StreamMetrics{
		requested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream",
			Name: "chunks_requested_total",
			Help: "Число заданий на загрузку или генерацию чанков.",
		}),
		generated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream",
			Name: "chunks_generated_total",
			Help: "Чанков, созданных генератором ландшафта.",
		}),
		loaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream",
			Name: "chunks_loaded_total",
			Help: "Чанков, прочитанных из хранилища.",
		}),
		decodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream",
			Name: "decode_failures_total",
			Help: "Записей чанков, отброшенных при декодировании, по причине.",
		}, []string{"kind"}),
		integrated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream",
			Name: "chunks_integrated_total",
			Help: "Чанков, установленных в сетку мира.",
		}),
		discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream",
			Name: "jobs_discarded_total",
			Help: "Завершённых заданий, отброшенных из-за выхода за радиус или ошибки.",
		}),
		retired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream",
			Name: "chunks_retired_total",
			Help: "Чанков, выгруженных из сетки мира.",
		}),
		saved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream",
			Name: "chunks_saved_total",
			Help: "Успешно записанных чанков.",
		}),
		saveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream",
			Name: "save_failures_total",
			Help: "Ошибок записи чанков.",
		}),
		lightingSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "lighting",
			Name: "steps_total",
			Help: "Шагов релаксации освещения.",
		}),
		activeChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "stream",
			Name: "chunks_loaded",
			Help: "Чанков в сетке мира.",
		}),
		pendingJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "stream",
			Name: "jobs_pending",
			Help: "Заданий в очереди, в работе или ожидающих интеграции.",
		}),
		lightingQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "lighting",
			Name: "queue_depth",
			Help: "Блоков в очереди освещения.",
		}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "stream",
			Name:    "job_duration_seconds",
			Help:    "Время выполнения задания воркером.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"source"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.requested, m.generated, m.loaded, m.decodeFailures, m.integrated,
			m.discarded, m.retired, m.saved, m.saveFailures, m.lightingSteps,
			m.activeChunks, m.pendingJobs, m.lightingQueue, m.jobDuration,
		)
	}
	return m
}

func (m *StreamMetrics) ChunkRequested() {
	if m != nil {
		m.requested.Inc()
	}
}

// JobFinished учитывает выполненное воркером задание
func (m *StreamMetrics) JobFinished(loaded bool, d time.Duration) {
	if m == nil {
		return
	}
	source := "generated"
	if loaded {
		source = "loaded"
		m.loaded.Inc()
	} else {
		m.generated.Inc()
	}
	m.jobDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *StreamMetrics) DecodeFailed(kind string) {
	if m != nil {
		m.decodeFailures.WithLabelValues(kind).Inc()
	}
}

func (m *StreamMetrics) ChunkIntegrated() {
	if m != nil {
		m.integrated.Inc()
	}
}

func (m *StreamMetrics) JobDiscarded() {
	if m != nil {
		m.discarded.Inc()
	}
}

func (m *StreamMetrics) ChunkRetired() {
	if m != nil {
		m.retired.Inc()
	}
}

// ChunkSaved учитывает результат записи чанка
func (m *StreamMetrics) ChunkSaved(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.saveFailures.Inc()
		return
	}
	m.saved.Inc()
}

func (m *StreamMetrics) LightingSteps(n int) {
	if m != nil && n > 0 {
		m.lightingSteps.Add(float64(n))
	}
}

// SetGauges обновляет текущие размеры мира и очередей
func (m *StreamMetrics) SetGauges(chunks, pendingJobs, lightingQueue int) {
	if m == nil {
		return
	}
	m.activeChunks.Set(float64(chunks))
	m.pendingJobs.Set(float64(pendingJobs))
	m.lightingQueue.Set(float64(lightingQueue))
}
