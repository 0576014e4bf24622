package models

import "net/http"

// ErrorKind 錯誤分類，決定 HTTP 狀態碼
type ErrorKind int

const (
	KindServerError ErrorKind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindUnauthorized
	KindForbidden
	KindMethodNotAllowed
)

// AllErrorKinds 回傳所有錯誤分類
func AllErrorKinds() []ErrorKind {
	return []ErrorKind{KindServerError, KindNotFound, KindValidation, KindConflict, KindUnauthorized, KindForbidden, KindMethodNotAllowed}
}

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindValidation:
		return "Validation"
	case KindConflict:
		return "Conflict"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindMethodNotAllowed:
		return "MethodNotAllowed"
	default:
		return "ServerError"
	}
}

// StatusCode 將錯誤分類對應到 HTTP 狀態碼，未知的分類一律 500
func (k ErrorKind) StatusCode() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Error 錯誤回應中的單一條目
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ApiErrorResponse 所有錯誤回應共用的 JSON 結構
type ApiErrorResponse struct {
	Errors []Error `json:"errors"`
}

// DomainError 領域層錯誤，帶有分類與對外可見的 code/message
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Code + ": " + e.Message
}

// Entry 轉成回應用的錯誤條目
func (e *DomainError) Entry() Error {
	return Error{Code: e.Code, Message: e.Message}
}

func newDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message}
}

// NewValidationError 建立驗證失敗錯誤
func NewValidationError(code, message string) *DomainError {
	return newDomainError(KindValidation, code, message)
}

var (
	// General
	ErrServerError      = newDomainError(KindServerError, "ServerError", "The server encountered an unrecoverable error.")
	ErrUnauthorized     = newDomainError(KindUnauthorized, "General.Unauthorized", "Authentication is required.")
	ErrInvalidPayload   = newDomainError(KindValidation, "General.InvalidPayload", "The request body could not be parsed.")
	ErrInvalidID        = newDomainError(KindValidation, "General.InvalidId", "The identifier in the path is not valid.")
	ErrRouteNotFound    = newDomainError(KindNotFound, "General.RouteNotFound", "The requested resource does not exist.")
	ErrMethodNotAllowed = newDomainError(KindMethodNotAllowed, "General.MethodNotAllowed", "The requested method is not supported for this resource.")

	// User
	ErrUserNotFound       = newDomainError(KindNotFound, "User.NotFound", "The user with the specified identifier was not found.")
	ErrEmailAlreadyExists = newDomainError(KindConflict, "User.DuplicateEmail", "The specified email is already in use.")
	ErrInvalidCredentials = newDomainError(KindUnauthorized, "User.InvalidCredentials", "The specified email or password is incorrect.")

	// Chat
	ErrChatNotFound = newDomainError(KindNotFound, "Chat.NotFound", "The chat with the specified identifier was not found.")

	// ChatMember
	ErrMemberNotFound      = newDomainError(KindNotFound, "ChatMember.NotFound", "The user is not a member of the chat.")
	ErrMemberAlreadyExists = newDomainError(KindConflict, "ChatMember.AlreadyExists", "The user is already a member of the chat.")
	ErrInvalidRole         = newDomainError(KindValidation, "ChatMember.InvalidRole", "The specified role is not valid.")
	ErrOwnerRoleNotGranted = newDomainError(KindValidation, "ChatMember.OwnerRoleNotGranted", "The owner role cannot be granted.")
	ErrNotChatMember       = newDomainError(KindForbidden, "ChatMember.NotMember", "The operation requires chat membership.")
	ErrNotChatAdmin        = newDomainError(KindForbidden, "ChatMember.NotAdmin", "The operation requires chat admin privileges.")
	ErrOwnerImmutable      = newDomainError(KindForbidden, "ChatMember.OwnerImmutable", "The chat owner cannot be changed or removed.")
)
