package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tripcourier/tripcourier/internal/orchestrator"
	"github.com/tripcourier/tripcourier/pkg/tools"
)

// turnRequest is the POST /v1/turns payload.
type turnRequest struct {
	SessionID      string `json:"sessionId" validate:"omitempty,max=128"`
	UserID         string `json:"userId" validate:"omitempty,max=128"`
	Message        string `json:"message" validate:"required,min=1,max=4096"`
	ForceAgentMode bool   `json:"forceAgentMode"`
}

// handleTurn runs one conversation turn. Invalid payloads are rejected
// before the orchestrator (and therefore the model) is touched; degraded
// turns still return their assembled response with an error code.
func (s *Server) handleTurn(c *gin.Context) {
	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"errorCode": orchestrator.ErrCodeValidation,
			"message":   "malformed request body",
		})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"errorCode": orchestrator.ErrCodeValidation,
			"message":   "message is required and must be at most 4096 characters",
		})
		return
	}

	resp, err := s.orch.Turn(c.Request.Context(), orchestrator.Request{
		SessionID:      req.SessionID,
		UserID:         req.UserID,
		Message:        req.Message,
		ForceAgentMode: req.ForceAgentMode,
	})
	if err != nil {
		s.log.WithError(err).Error("turn failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"errorCode": orchestrator.ErrCodeInternal,
			"message":   "turn processing failed",
		})
		return
	}

	c.JSON(statusForTurn(resp), resp)
}

// statusForTurn maps turn outcomes to HTTP statuses. A degraded turn that
// produced a usable fallback answer is still a 200; only store failures are
// service errors at the transport level.
func statusForTurn(resp *orchestrator.Response) int {
	switch resp.ErrorCode {
	case orchestrator.ErrCodeValidation:
		return http.StatusBadRequest
	case orchestrator.ErrCodeContextStore:
		return http.StatusServiceUnavailable
	default:
		return http.StatusOK
	}
}

// handleListTools returns the registered tool descriptors.
func (s *Server) handleListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": s.invoker.Registry().List()})
}

// handleInvokeTool runs one tool directly, outside any conversation.
func (s *Server) handleInvokeTool(c *gin.Context) {
	name := c.Param("name")

	args := tools.Args{}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&args); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"errorCode": tools.ErrCodeInvalidToolInput,
				"message":   "request body must be a JSON object of tool arguments",
			})
			return
		}
	}

	result := s.invoker.Invoke(c.Request.Context(), name, args)
	s.log.WithFields(logrus.Fields{
		"tool": name,
		"ok":   result.OK(),
	}).Debug("direct tool invocation")

	c.JSON(statusForResult(result), result)
}

func statusForResult(result *tools.Result) int {
	if result.OK() {
		return http.StatusOK
	}
	switch result.Err.Code {
	case tools.ErrCodeToolNotFound:
		return http.StatusNotFound
	case tools.ErrCodeInvalidToolInput:
		return http.StatusBadRequest
	case tools.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case tools.ErrCodeProviderTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
