package operations

import (
	"errors"
	"fmt"

	"github.com/BatmanBruc/ofmbot/internal/i18n"
	"github.com/BatmanBruc/ofmbot/internal/messages"
	"github.com/BatmanBruc/ofmbot/internal/pdf"
	"github.com/BatmanBruc/ofmbot/internal/translate"
	"github.com/BatmanBruc/ofmbot/types"
)

var (
	ErrNoFiles        = errors.New("session has no files")
	ErrNeedParam      = errors.New("required parameter is missing")
	ErrNeedPDF        = errors.New("a PDF file is required")
	ErrNeedImageOrPDF = errors.New("an image or a PDF is required")
	ErrUnsupported    = errors.New("unsupported conversion")
	ErrEmptyOCR       = errors.New("ocr produced no text")
	ErrUnknownOp      = errors.New("unknown operation")
)

type ParamError struct {
	Key string
}

func (e *ParamError) Error() string { return fmt.Sprintf("parameter %q is required", e.Key) }

func (e *ParamError) Is(target error) bool { return target == ErrNeedParam }

type UnsupportedError struct {
	From string
	To   string
}

func (e *UnsupportedError) Error() string { return fmt.Sprintf("cannot convert %s to %s", e.From, e.To) }

func (e *UnsupportedError) Is(target error) bool { return target == ErrUnsupported }

// Explain turns an operation error into the message shown to the user.
// Unexpected failures get the generic text.
func Explain(lang i18n.Lang, op types.Operation, err error) string {
	var paramErr *ParamError
	var convErr *UnsupportedError
	switch {
	case err == nil:
		return messages.Done(lang)
	case errors.As(err, &paramErr):
		return messages.NeedParam(lang, paramErr.Key)
	case errors.As(err, &convErr):
		return messages.UnsupportedConversion(lang, convErr.From, convErr.To)
	case errors.Is(err, ErrNoFiles):
		return messages.NoFiles(lang)
	case errors.Is(err, ErrNeedPDF):
		return messages.NeedPDF(lang)
	case errors.Is(err, ErrNeedImageOrPDF):
		return messages.NeedImageOrPDF(lang, op)
	case errors.Is(err, pdf.ErrInvalidRange):
		return messages.ParamUsage(lang, types.ParamRange)
	case errors.Is(err, pdf.ErrNoPages):
		return messages.InvalidRange(lang)
	case errors.Is(err, ErrEmptyOCR):
		return messages.OCREmpty(lang)
	case errors.Is(err, translate.ErrInvalidTarget):
		return messages.ParamUsage(lang, types.ParamLang)
	}
	return messages.ErrorDefault(lang)
}
