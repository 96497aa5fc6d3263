package api

import (
	"net/http"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/labstack/echo/v4"
)

type executeRequest struct {
	ToolName string         `json:"toolName"`
	Args     map[string]any `json:"args"`
}

type executeResponse struct {
	Success   bool            `json:"success"`
	Tool      string          `json:"tool"`
	Result    any             `json:"result,omitempty"`
	Cached    bool            `json:"cached"`
	Timestamp strfmt.DateTime `json:"timestamp"`
	Error     string          `json:"error,omitempty"`
}

func (s *Server) executeTool(c echo.Context) error {
	var req executeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if strings.TrimSpace(req.ToolName) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "toolName is required")
	}
	if _, ok := s.res.Tools.Get(req.ToolName); !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown tool "+req.ToolName)
	}

	res, err := s.res.Orch.Execute(c.Request().Context(), req.ToolName, req.Args)
	if err != nil {
		return c.JSON(http.StatusOK, executeResponse{
			Success: false,
			Tool:    req.ToolName,
			Error:   err.Error(),
		})
	}

	return c.JSON(http.StatusOK, executeResponse{
		Success:   true,
		Tool:      req.ToolName,
		Result:    res.Data,
		Cached:    res.Cached,
		Timestamp: res.Timestamp,
	})
}
