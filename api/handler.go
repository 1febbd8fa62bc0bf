package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"cycle-trader/internal/config"
	"cycle-trader/internal/cycle"
	"cycle-trader/internal/engine"
	"cycle-trader/internal/processor"
	"cycle-trader/internal/storage"
)

type Handler struct {
	db      *pgxpool.Pool
	cfg     *config.Config
	loader  *engine.DataLoader
	reports *storage.ReportStore
	jobs    *engine.JobPool
	logger  *zap.Logger
}

func NewHandler(db *pgxpool.Pool, cfg *config.Config, jobs *engine.JobPool, reports *storage.ReportStore, logger *zap.Logger) *Handler {
	return &Handler{
		db:      db,
		cfg:     cfg,
		loader:  engine.NewDataLoader(db),
		reports: reports,
		jobs:    jobs,
		logger:  logger,
	}
}

// Auth Handlers

func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	var userID int64
	err = h.db.QueryRow(c.Request.Context(),
		"INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id",
		req.Email, string(hash)).Scan(&userID)

	if err != nil {
		h.logger.Error("failed to register user", zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "user created", "id": userID})
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var userID int64
	var hash string
	err := h.db.QueryRow(c.Request.Context(),
		"SELECT id, password_hash FROM users WHERE email = $1", req.Email).Scan(&userID, &hash)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token := issueToken(userID)
	c.JSON(http.StatusOK, gin.H{"token": token, "user_id": userID})
}

// Market data

func (h *Handler) GetHistoryKLines(c *gin.Context) {
	symbol := c.Param("symbol")
	period := c.DefaultQuery("period", "1m")

	end := time.Now()
	start := end.Add(-24 * time.Hour)
	if v := c.Query("start"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			start = t
		}
	}
	if v := c.Query("end"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			end = t
		}
	}

	candles, err := h.loader.LoadCandles(c.Request.Context(), symbol, start, end, period)
	if err != nil {
		h.logger.Error("failed to load klines", zap.String("symbol", symbol), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load klines"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "klines": candles})
}

// Backtest

type backtestRequest struct {
	Symbols        []string               `json:"symbols" binding:"required,min=1"`
	Period         string                 `json:"period"`
	Start          time.Time              `json:"start" binding:"required"`
	End            time.Time              `json:"end" binding:"required"`
	Strategy       string                 `json:"strategy"`
	StrategyConfig map[string]interface{} `json:"strategy_config"`
	ResampleTo     string                 `json:"resample_to"` // optional, e.g. "1h"
	InitialCapital *float64               `json:"initial_capital"`
	MaxPositions   *int                   `json:"max_positions"`
}

// RunBacktest loads the requested bar series, queues a backtest job and
// returns its ID. Results arrive via GET /backtest/:id and on the
// "backtest.reports.<id>" push subject.
func (h *Handler) RunBacktest(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Period == "" {
		req.Period = "1m"
	}

	series, err := h.loader.LoadSeries(c.Request.Context(), req.Symbols, req.Start, req.End, req.Period)
	if err != nil {
		h.logger.Error("failed to load series", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load bar data"})
		return
	}

	if req.ResampleTo != "" {
		window, err := time.ParseDuration(req.ResampleTo)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid resample_to duration"})
			return
		}
		resampler, err := processor.NewResampler(window, h.logger)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		for symbol, bars := range series {
			series[symbol] = resampler.Resample(bars)
		}
	}

	params := h.engineParams(req)
	if err := params.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := engine.Job{
		ID:     uuid.NewString(),
		Params: params,
		Series: series,
	}
	if !h.jobs.Submit(job) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backtest queue full"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}

func (h *Handler) GetBacktest(c *gin.Context) {
	report, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// engineParams merges request overrides over the configured defaults.
func (h *Handler) engineParams(req backtestRequest) engine.Params {
	params := engine.Params{
		Thresholds: cycle.Thresholds{
			Warning: h.cfg.WarningLevel,
			Strong:  h.cfg.StrongLevel,
			Exit:    h.cfg.ExitLevel,
		},
		MaxPositions:   h.cfg.MaxPositions,
		InitialCapital: decimal.NewFromFloat(h.cfg.InitialCapital),
		TakeProfitRate: decimal.NewFromFloat(h.cfg.TakeProfitRate),
		StopLossRate:   decimal.NewFromFloat(h.cfg.StopLossRate),
		FeeRate:        decimal.NewFromFloat(h.cfg.FeeRate),
		ShortPeriod:    h.cfg.ShortPeriod,
		LongPeriod:     h.cfg.LongPeriod,
		StrategyType:   "cycle",
		StrategyConfig: req.StrategyConfig,
	}
	if req.Strategy != "" {
		params.StrategyType = req.Strategy
	}
	if req.InitialCapital != nil {
		params.InitialCapital = decimal.NewFromFloat(*req.InitialCapital)
	}
	if req.MaxPositions != nil {
		params.MaxPositions = *req.MaxPositions
	}
	return params
}
