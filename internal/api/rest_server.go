package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/middleware"
	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/stream"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// StatusSource отдаёт последний опубликованный снимок состояния.
// Реализация должна быть безопасна для вызова из горутин HTTP-сервера.
type StatusSource interface {
	Status() stream.Status
}

// RestServer представляет HTTP-сервер статуса симуляции
type RestServer struct {
	router  *gin.Engine
	server  *http.Server
	source  StatusSource
	level   *storage.LevelInfo
	started time.Time
	logger  *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Addr     string               // адрес для запуска сервера
	Source   StatusSource         // источник статуса
	Level    *storage.LevelInfo   // метаданные уровня, может быть nil
	Registry *prometheus.Registry // реестр метрик для /metrics, может быть nil
	Logger   *logging.Logger
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый сервер статуса
func NewRestServer(config Config) *RestServer {
	if config.Addr == "" {
		config.Addr = ":8088"
	}
	if config.Logger == nil {
		config.Logger = logging.NewNopLogger()
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.NewRequestLogger(config.Logger).Handler())

	if config.Registry != nil {
		promMw := middleware.NewPrometheusMiddleware("voxel_api", config.Registry)
		router.Use(promMw.Handler())
		promMw.RegisterMetricsEndpoint(router, config.Registry)
	}

	rs := &RestServer{
		router:  router,
		source:  config.Source,
		level:   config.Level,
		started: time.Now(),
		logger:  config.Logger,
	}
	rs.server = &http.Server{
		Addr:              config.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	rs.setupRoutes()
	return rs
}

// setupRoutes настраивает маршруты
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/status", rs.handleStatus)
		api.GET("/level", rs.handleLevel)
	}
}

// Handler возвращает обработчик запросов, используется в тестах
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// handleHealth возвращает статус здоровья сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(rs.started).Round(time.Second).String(),
	})
}

// handleStatus возвращает снимок последнего кадра
func (rs *RestServer) handleStatus(c *gin.Context) {
	if rs.source == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{
			Success: false,
			Message: "Симуляция не запущена",
		})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Состояние мира",
		Data:    rs.source.Status(),
	})
}

func (rs *RestServer) handleLevel(c *gin.Context) {
	if rs.level == nil {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: "Уровень не открыт",
		})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Метаданные уровня",
		Data:    rs.level,
	})
}

// Start запускает сервер в фоне. Ошибка привязки к адресу возвращается сразу.
func (rs *RestServer) Start() error {
	ln, err := net.Listen("tcp", rs.server.Addr)
	if err != nil {
		return err
	}
	rs.logger.Info("Сервер статуса слушает %s", ln.Addr())
	go func() {
		if err := rs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rs.logger.Error("Сервер статуса остановлен с ошибкой: %v", err)
		}
	}()
	return nil
}

// Stop корректно останавливает сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}
