package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"chat-team/backend/models"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// HandlerFunc 是會回傳錯誤的 handler，錯誤交給 Handle 統一轉成 JSON 回應
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// fallbackBody 在序列化失敗時使用，內容與 ErrServerError 相同
var fallbackBody = []byte(`{"errors":[{"code":"ServerError","message":"The server encountered an unrecoverable error."}]}`)

// ErrorHandler 攔截下游所有 panic，記錄後回傳統一格式的錯誤回應，不會再往外拋
func ErrorHandler(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := wrapResponseWriter(w)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					// net/http 用它靜默中斷連線，交回給 server 處理
					panic(rec)
				}
				err := panicError(rec)
				logger.Error("An exception occurred: "+err.Error(),
					"method", r.Method,
					"path", r.URL.Path,
					"error", err,
					"stack", string(debug.Stack()),
				)
				writeError(logger, rw, r, err)
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

// Handle 將 HandlerFunc 轉成 http.Handler，回傳的錯誤與 panic 走同一條路徑
func Handle(logger *slog.Logger, fn HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		status, _ := ParseError(err)
		if status >= http.StatusInternalServerError {
			logger.Error("An exception occurred: "+err.Error(), "method", r.Method, "path", r.URL.Path, "error", err)
		} else {
			logger.Warn("request failed: "+err.Error(), "method", r.Method, "path", r.URL.Path, "status", status)
		}
		writeError(logger, w, r, err)
	})
}

// WriteError 依錯誤分類寫出狀態碼與 JSON 錯誤回應
func WriteError(w http.ResponseWriter, err error) error {
	status, errs := ParseError(err)

	body, marshalErr := json.Marshal(models.ApiErrorResponse{Errors: errs})
	if marshalErr != nil {
		status, body = http.StatusInternalServerError, fallbackBody
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, writeErr := w.Write(body)
	return errors.Join(marshalErr, writeErr)
}

func writeError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	// 標頭已經送出就無法再改狀態碼，只能記錄
	if hw, ok := w.(interface{ HeaderWritten() bool }); ok && hw.HeaderWritten() {
		logger.Warn("response already started, error not sent to client", "path", r.URL.Path, "error", err)
		return
	}
	if writeErr := WriteError(w, err); writeErr != nil {
		logger.Error("Failed to write error response", "path", r.URL.Path, "error", writeErr)
	}
}

// ParseError 將任意錯誤對應到 HTTP 狀態碼與錯誤條目，對所有輸入都有結果
func ParseError(err error) (int, []models.Error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		return http.StatusBadRequest, lo.Map(validationErrs, func(fe validator.FieldError, _ int) models.Error {
			return models.Error{
				Code:    "Validation." + fe.Field(),
				Message: fmt.Sprintf("%s failed on the '%s' rule", fe.Field(), fe.Tag()),
			}
		})
	}

	if domainErrs := collectDomainErrors(err); len(domainErrs) > 0 {
		// 伺服器錯誤一律使用通用訊息，不洩漏內部細節
		if domainErrs[0].Kind == models.KindServerError {
			return http.StatusInternalServerError, []models.Error{models.ErrServerError.Entry()}
		}
		return domainErrs[0].Kind.StatusCode(), lo.Map(domainErrs, func(e *models.DomainError, _ int) models.Error {
			return e.Entry()
		})
	}

	return http.StatusInternalServerError, []models.Error{models.ErrServerError.Entry()}
}

// collectDomainErrors 取出錯誤鏈中的 DomainError；errors.Join 的錯誤只有在全部同分類時才合併
func collectDomainErrors(err error) []*models.DomainError {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var all []*models.DomainError
		for _, e := range joined.Unwrap() {
			var domainErr *models.DomainError
			if !errors.As(e, &domainErr) {
				return nil
			}
			all = append(all, domainErr)
		}
		if len(all) == 0 {
			return nil
		}
		kind := all[0].Kind
		if lo.EveryBy(all, func(e *models.DomainError) bool { return e.Kind == kind }) {
			return all
		}
		return nil
	}

	var domainErr *models.DomainError
	if errors.As(err, &domainErr) {
		return []*models.DomainError{domainErr}
	}
	return nil
}

func panicError(rec any) error {
	if err, ok := rec.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", rec)
}
