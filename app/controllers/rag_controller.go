package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aihub/rag-go/internal/di"
	apperrors "github.com/aihub/rag-go/internal/errors"
	"github.com/aihub/rag-go/internal/knowledge"
	"github.com/aihub/rag-go/internal/logger"
	"github.com/aihub/rag-go/internal/services"
)

var validate = validator.New()

// AskRequest 问答请求体
type AskRequest struct {
	Question string `json:"question" validate:"required"`
	TopK     int    `json:"topK" validate:"omitempty,min=1,max=50"`
}

// IngestRequest 批量入库请求体
type IngestRequest struct {
	Documents []services.Document `json:"documents" validate:"required,min=1,max=10,dive"`
}

type RagController struct {
	BaseController
	askService    *services.AskService
	ingestService *services.IngestService
	fileParser    *knowledge.FileParserManager
}

// Prepare beego按请求重建控制器，这里从容器惰性解析服务
func (c *RagController) Prepare() {
	if c.askService != nil {
		return
	}
	err := di.Invoke(func(ask *services.AskService, ingest *services.IngestService, parser *knowledge.FileParserManager) {
		c.askService = ask
		c.ingestService = ingest
		c.fileParser = parser
	})
	if err != nil {
		logger.Error("failed to resolve services", zap.Error(err))
		c.JSONError(http.StatusInternalServerError, "service unavailable")
		c.StopRun()
	}
}

// POST /api/rag/ask
func (c *RagController) Ask() {
	var req AskRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONAppError(apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSONAppError(apperrors.NewValidationError(validationMessage(err)))
		return
	}

	result, err := c.askService.Ask(c.Ctx.Request.Context(), req.Question, req.TopK)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(result)
}

// POST /api/rag/ingest
func (c *RagController) Ingest() {
	var req IngestRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONAppError(apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSONAppError(apperrors.NewValidationError(validationMessage(err)))
		return
	}

	result, err := c.ingestService.Ingest(c.Ctx.Request.Context(), req.Documents)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(result)
}

// POST /api/rag/ingest/file
// 上传文件入库。文档ID缺省为文件名去扩展名，标题缺省为文件名。
func (c *RagController) IngestFile() {
	file, header, err := c.GetFile("file")
	if err != nil {
		c.JSONAppError(apperrors.NewValidationError("file is required"))
		return
	}
	defer file.Close()

	content, err := c.fileParser.ParseFile(file, header.Filename)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	docID := strings.TrimSpace(c.GetString("id"))
	if docID == "" {
		docID = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}
	title := strings.TrimSpace(c.GetString("title"))
	if title == "" {
		title = header.Filename
	}

	result, err := c.ingestService.Ingest(c.Ctx.Request.Context(), []services.Document{{
		ID:      docID,
		Title:   title,
		Content: content,
	}})
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(result)
}

// validationMessage 将第一条校验失败转换为可读消息
func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid request"
	}
	first := verrs[0]
	field := first.Field()
	if field == strings.ToUpper(field) {
		field = strings.ToLower(field)
	} else {
		field = strings.ToLower(field[:1]) + field[1:]
	}
	switch first.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, first.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, first.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
