package domain

import (
	"path/filepath"
	"strings"
)

// QueryStage names the step a contract query reached before it finished.
type QueryStage string

const (
	StageReceived       QueryStage = "received"
	StageValidated      QueryStage = "validated"
	StagePaymentChecked QueryStage = "payment_checked"
	StageExtracted      QueryStage = "extracted"
	StageAnswered       QueryStage = "answered"
)

// Upload is a contract file persisted in temporary storage for the duration
// of one query.
type Upload struct {
	Key      string `json:"key"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

func (u Upload) Extension() string {
	return strings.ToLower(filepath.Ext(u.Filename))
}

type Answer struct {
	Text string `json:"answer"`
}
