package types

type Operation string

const (
	OpConvert   Operation = "convert"
	OpMerge     Operation = "merge"
	OpSplit     Operation = "split"
	OpPageNum   Operation = "pagenum"
	OpWatermark Operation = "watermark"
	OpOCR       Operation = "ocr"
	OpTranslate Operation = "translate"
)

var Operations = []Operation{OpConvert, OpMerge, OpSplit, OpPageNum, OpWatermark, OpOCR, OpTranslate}

func (o Operation) Valid() bool {
	for _, op := range Operations {
		if op == o {
			return true
		}
	}
	return false
}

type FileKind string

const (
	FileKindDocument FileKind = "document"
	FileKindPhoto    FileKind = "photo"
)

// Session parameter keys.
const (
	ParamTarget   = "target"
	ParamRange    = "range"
	ParamText     = "text"
	ParamLang     = "tgt"
	ParamPosition = "pos"
)

// Usage counters shown on the admin page.
const (
	CounterStart  = "start"
	CounterResume = "resume"
)

func CounterNames() []string {
	names := []string{CounterStart, CounterResume}
	for _, op := range Operations {
		names = append(names, string(op))
	}
	return names
}
