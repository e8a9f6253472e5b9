package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmendezr/plantchat/internal/apperrors"
)

type predictFailureRequest struct {
	SensorData json.RawMessage `json:"sensorData"`
}

func (s *Server) handlePredictFailure(c *gin.Context) {
	var req predictFailureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "datos de sensores son requeridos"})
		return
	}

	outcome, err := s.deps.Predictions.Predict(c.Request.Context(), currentUserID(c), req.SensorData)

	if s.deps.Metrics != nil {
		label := "ok"
		if err != nil {
			label = apperrors.KindOf(err).String()
		}
		s.deps.Metrics.PredictionsTotal.WithLabelValues(label).Inc()
	}

	if err != nil {
		// A computed prediction that merely failed to persist is still
		// handed back so the caller does not lose it.
		if outcome != nil {
			c.JSON(statusFor(err), gin.H{
				"success":    false,
				"error":      apperrors.PublicMessage(err),
				"prediction": outcome,
				"timestamp":  outcome.RequestedAt,
			})
			return
		}
		c.JSON(statusFor(err), gin.H{"success": false, "error": apperrors.PublicMessage(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"prediction": outcome,
		"timestamp":  outcome.RequestedAt,
	})
}

func (s *Server) handlePredictionHistory(c *gin.Context) {
	limit, err := parseLimit(c, s.deps.PredictionHistoryLimit)
	if err != nil {
		s.fail(c, err)
		return
	}

	records, err := s.deps.Predictions.History(c.Request.Context(), currentUserID(c), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "predictions": records})
}

func (s *Server) handleHistoricalData(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": s.deps.Dataset.All()})
}

func (s *Server) handleEfficiencyStats(c *gin.Context) {
	stats := s.deps.Dataset.EfficiencyStats(c.Query("maquina_id"))
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

func (s *Server) handleMachineData(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": s.deps.Dataset.ByMachine(c.Param("machineId"))})
}

func (s *Server) handleFailureData(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": s.deps.Dataset.Failures()})
}

func (s *Server) handleMachines(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "machines": s.deps.Dataset.Machines()})
}

func (s *Server) handleOperators(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "operators": s.deps.Dataset.Operators()})
}
