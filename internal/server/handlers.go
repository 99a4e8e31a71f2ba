package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/boundou-sig/deliblist/internal/deliberation"
	"github.com/boundou-sig/deliblist/internal/export"
	"github.com/boundou-sig/deliblist/internal/types"
)

// runResponse is the body returned after an upload and by GET.
type runResponse struct {
	RunID      string                   `json:"run_id"`
	Type       types.SubmissionType     `json:"type"`
	Source     string                   `json:"source"`
	LoadedAt   string                   `json:"loaded_at"`
	Report     deliberation.Report      `json:"report"`
	Rejections []deliberation.Rejection `json:"rejections"`
	Stats      deliberation.Stats       `json:"stats"`
	Preview    previewResponse          `json:"preview"`
}

type previewResponse struct {
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
	Total   int                 `json:"total"`
}

func sendError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"error":      true,
		"message":    message,
		"request_id": GetRequestID(c),
	})
}

// handleUpload processes an uploaded submission and stores the result.
func (s *Server) handleUpload(c *gin.Context) {
	var mode types.SubmissionType
	if raw := c.Query("type"); raw != "" {
		parsed, err := types.ParseSubmissionType(raw)
		if err != nil {
			sendError(c, http.StatusBadRequest, err.Error())
			return
		}
		mode = parsed
	}

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", s.cfg.Server.MaxUploadMB))
			return
		}
		sendError(c, http.StatusBadRequest, "missing multipart field 'file'")
		return
	}

	file, err := header.Open()
	if err != nil {
		sendError(c, http.StatusBadRequest, "failed to open upload")
		return
	}
	defer file.Close()

	sheet, err := s.conv.ReadUpload(file, header.Filename)
	if err != nil {
		s.session.Clear()
		_ = c.Error(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	mode = s.conv.DetectType(header.Filename, sheet, mode)
	result, err := s.session.Load(sheet, mode, s.conv.Options())
	if err != nil {
		_ = c.Error(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := result.Report.Check(); err != nil {
		s.logger.Error("count invariant violated", "source", result.Source, "error", err)
	}

	response, err := s.response(result, s.cfg.Server.PreviewRows)
	if err != nil {
		s.session.Clear()
		_ = c.Error(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("processed upload", "file", header.Filename, "type", mode,
		"run_id", result.RunID, "records", result.Report.ValidOutputCount,
		"rejected", result.Report.RejectedCount, "request_id", GetRequestID(c))
	c.JSON(http.StatusCreated, response)
}

// handleCurrent returns the stored report.
func (s *Server) handleCurrent(c *gin.Context) {
	result, ok := s.current(c)
	if !ok {
		return
	}
	response, err := s.response(result, s.cfg.Server.PreviewRows)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, response)
}

// handlePreview returns the first rows of the list, ?limit= rows (default
// from the configuration, negative for all).
func (s *Server) handlePreview(c *gin.Context) {
	result, ok := s.current(c)
	if !ok {
		return
	}

	limit := s.cfg.Server.PreviewRows
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			sendError(c, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	preview, err := s.preview(result, limit)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, preview)
}

// handleExport streams the list as an attachment.
func (s *Server) handleExport(c *gin.Context) {
	result, ok := s.current(c)
	if !ok {
		return
	}

	format := s.cfg.Format()
	if raw := c.Query("format"); raw != "" {
		parsed, err := export.ParseFormat(raw)
		if err != nil {
			sendError(c, http.StatusBadRequest, err.Error())
			return
		}
		format = parsed
	}

	table, err := s.conv.BuildTable(result)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, table, format, s.cfg.CSVOutput()); err != nil {
		_ = c.Error(err)
		sendError(c, http.StatusInternalServerError, "failed to write list")
		return
	}

	name := export.FileName(s.cfg.OutputFileFormat, result.Type, format, result.Source, s.now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// handleReset clears the session.
func (s *Server) handleReset(c *gin.Context) {
	s.session.Clear()
	c.Status(http.StatusNoContent)
}

// current returns the stored result or answers 404.
func (s *Server) current(c *gin.Context) (*deliberation.Result, bool) {
	result, ok := s.session.Current()
	if !ok {
		sendError(c, http.StatusNotFound, "no deliberation list loaded")
	}
	return result, ok
}

func (s *Server) response(result *deliberation.Result, previewRows int) (runResponse, error) {
	preview, err := s.preview(result, previewRows)
	if err != nil {
		return runResponse{}, err
	}

	rejections := result.Rejections
	if rejections == nil {
		rejections = []deliberation.Rejection{}
	}

	return runResponse{
		RunID:      result.RunID,
		Type:       result.Type,
		Source:     result.Source,
		LoadedAt:   s.session.LoadedAt().Format("2006-01-02T15:04:05Z07:00"),
		Report:     result.Report,
		Rejections: rejections,
		Stats:      deliberation.Summarize(result),
		Preview:    preview,
	}, nil
}

func (s *Server) preview(result *deliberation.Result, limit int) (previewResponse, error) {
	table, err := s.conv.BuildTable(result)
	if err != nil {
		return previewResponse{}, err
	}
	head := table.Head(limit)
	return previewResponse{
		Columns: head.Headers(),
		Rows:    head.Maps(),
		Total:   len(table.Rows),
	}, nil
}
