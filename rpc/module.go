package rpc

import (
	"errors"
	"net/http"

	"nftmarket/native/common"
	"nftmarket/native/market"
)

const (
	codeInvalidParams = -32602
	codeServerError   = -32000
)

type ModuleError struct {
	HTTPStatus int
	Code       int
	Message    string
	Data       interface{}
}

func (e *ModuleError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidParams(message string, data interface{}) *ModuleError {
	return &ModuleError{HTTPStatus: http.StatusBadRequest, Code: codeInvalidParams, Message: message, Data: data}
}

// moduleError translates engine errors into wire errors. State machine
// rejections surface as conflicts so clients can distinguish them from
// malformed requests.
func moduleError(err error) *ModuleError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, market.ErrItemNotFound), errors.Is(err, market.ErrOrderNotFound):
		return &ModuleError{HTTPStatus: http.StatusNotFound, Code: codeInvalidParams, Message: err.Error()}
	case errors.Is(err, market.ErrNotAuthorized):
		return &ModuleError{HTTPStatus: http.StatusForbidden, Code: codeServerError, Message: err.Error()}
	case errors.Is(err, market.ErrInvalidAmount), errors.Is(err, market.ErrBidTooLow):
		return &ModuleError{HTTPStatus: http.StatusBadRequest, Code: codeInvalidParams, Message: err.Error()}
	case errors.Is(err, market.ErrInvalidState),
		errors.Is(err, market.ErrAuctionNotComplete),
		errors.Is(err, market.ErrHasBidder):
		return &ModuleError{HTTPStatus: http.StatusConflict, Code: codeServerError, Message: err.Error()}
	case errors.Is(err, market.ErrLedgerFailure):
		return &ModuleError{HTTPStatus: http.StatusBadGateway, Code: codeServerError, Message: err.Error()}
	case errors.Is(err, common.ErrModulePaused):
		return &ModuleError{HTTPStatus: http.StatusServiceUnavailable, Code: codeServerError, Message: err.Error()}
	default:
		return &ModuleError{HTTPStatus: http.StatusInternalServerError, Code: codeServerError, Message: err.Error()}
	}
}
