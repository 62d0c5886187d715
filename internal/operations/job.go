package operations

import (
	"strings"

	"github.com/google/uuid"

	"github.com/BatmanBruc/ofmbot/internal/formats"
	"github.com/BatmanBruc/ofmbot/internal/i18n"
	"github.com/BatmanBruc/ofmbot/types"
)

// Job is a detached snapshot of a finished session.
type Job struct {
	ID     string
	UserID int64
	ChatID int64
	Op     types.Operation
	Files  []types.FileRef
	Params map[string]string
	Lang   i18n.Lang
}

func NewJob(s *types.Session) *Job {
	c := s.Clone()
	return &Job{
		ID:     uuid.NewString(),
		UserID: c.UserID,
		ChatID: c.ChatID,
		Op:     c.Op,
		Files:  c.Files,
		Params: c.Params,
		Lang:   i18n.Parse(c.Lang),
	}
}

func (j *Job) Param(key string) string {
	if j.Params == nil {
		return ""
	}
	return strings.TrimSpace(j.Params[key])
}

// Validate checks a job before it is queued: files are present and the
// operation's required parameters are set.
func Validate(j *Job) error {
	if len(j.Files) == 0 {
		return ErrNoFiles
	}
	switch j.Op {
	case types.OpMerge, types.OpPageNum:
		if firstPDF(j.Files) < 0 {
			return ErrNeedPDF
		}
	case types.OpSplit:
		if j.Param(types.ParamRange) == "" {
			return &ParamError{Key: types.ParamRange}
		}
		if firstPDF(j.Files) < 0 {
			return ErrNeedPDF
		}
	case types.OpWatermark:
		if j.Param(types.ParamText) == "" {
			return &ParamError{Key: types.ParamText}
		}
		if firstPDF(j.Files) < 0 {
			return ErrNeedPDF
		}
	case types.OpOCR, types.OpTranslate:
		if firstPDF(j.Files) < 0 && len(images(j.Files)) == 0 {
			return ErrNeedImageOrPDF
		}
	case types.OpConvert:
		target := j.Param(types.ParamTarget)
		if target == "" {
			return &ParamError{Key: types.ParamTarget}
		}
		if _, err := planConvert(j.Files[0].Name, target); err != nil {
			return err
		}
	default:
		return ErrUnknownOp
	}
	return nil
}

func firstPDF(files []types.FileRef) int {
	for i, f := range files {
		if formats.IsPDF(f.Name) {
			return i
		}
	}
	return -1
}

func images(files []types.FileRef) []int {
	idx := make([]int, 0)
	for i, f := range files {
		if formats.IsImage(f.Name) {
			idx = append(idx, i)
		}
	}
	return idx
}
