package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"sales-forecaster/pkg/services"

	"github.com/gin-gonic/gin"
)

// maxPeriodHours は集計期間の上限（30日）です。
const maxPeriodHours = 24 * 30

// maxRecentRuns は1回のリクエストで返す実行ログの上限です。
const maxRecentRuns = 1000

// MonitoringHandler は予測実行ログの参照ハンドラです。
type MonitoringHandler struct {
	runs *services.MonitoringService
}

// NewMonitoringHandler は新しいMonitoringHandlerを生成します。
func NewMonitoringHandler(runs *services.MonitoringService) *MonitoringHandler {
	return &MonitoringHandler{runs: runs}
}

// GetLogs は period（例: 1h, 24h, 7d）の範囲で実行ログを集計して返します。
func (h *MonitoringHandler) GetLogs(c *gin.Context) {
	hours, err := parsePeriodHours(c.DefaultQuery("period", "24h"))
	if err != nil {
		respondError(c, &services.ValidationError{Field: "period", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.runs.GetDashboardData(hours))
}

// GetRecentRuns は新しい順に実行ログを返します。model を指定するとそのモデルに絞り込みます。
func (h *MonitoringHandler) GetRecentRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		respondError(c, &services.ValidationError{Field: "limit", Message: "limit must be a positive integer"})
		return
	}
	if limit > maxRecentRuns {
		limit = maxRecentRuns
	}
	runs := h.runs.Recent(limit, c.Query("model"))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    runs,
		"count":   len(runs),
	})
}

// parsePeriodHours accepts "<n>h" or "<n>d".
func parsePeriodHours(period string) (int, error) {
	period = strings.TrimSpace(strings.ToLower(period))
	if len(period) < 2 {
		return 0, fmt.Errorf("invalid period %q", period)
	}
	n, err := strconv.Atoi(period[:len(period)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid period %q", period)
	}
	hours := n
	switch period[len(period)-1] {
	case 'h':
	case 'd':
		hours = n * 24
	default:
		return 0, fmt.Errorf("invalid period %q", period)
	}
	if hours > maxPeriodHours {
		return 0, fmt.Errorf("period %q exceeds %d days", period, maxPeriodHours/24)
	}
	return hours, nil
}
