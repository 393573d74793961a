package handlers

import (
	"context"
	"errors"
	"net/http"

	"sales-forecaster/pkg/services"

	"github.com/gin-gonic/gin"
)

// statusForError はエラー種別をHTTPステータスに対応付けます。
func statusForError(err error) int {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusRequestTimeout
	}
	switch services.ErrorKind(err) {
	case "no_models_found":
		return http.StatusServiceUnavailable
	case "missing_dataset_file":
		return http.StatusNotFound
	case "validation":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// statusForKind は画面描画用にエラー種別文字列からステータスを返します。
func statusForKind(kind string) int {
	switch kind {
	case "":
		return http.StatusOK
	case "no_models_found":
		return http.StatusServiceUnavailable
	case "missing_dataset_file":
		return http.StatusNotFound
	case "validation":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the standard error body.
func respondError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{
		"success": false,
		"error":   err.Error(),
		"kind":    services.ErrorKind(err),
	})
}
