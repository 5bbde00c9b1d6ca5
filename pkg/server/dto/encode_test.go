package dto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeRequestValidate(t *testing.T) {
	valid := func() EncodeRequest {
		return EncodeRequest{
			Rows:      []map[string]any{{"text": "hello"}},
			InputCol:  "text",
			OutputCol: "embedding",
			ModelID:   "bert-base-uncased",
		}
	}

	tests := []struct {
		name    string
		mutate  func(r *EncodeRequest)
		maxRows int
		wantErr error
		errText string
	}{
		{name: "valid", mutate: func(r *EncodeRequest) {}},
		{name: "no rows", mutate: func(r *EncodeRequest) { r.Rows = nil }, wantErr: ErrEmptyRows},
		{name: "too many rows", mutate: func(r *EncodeRequest) { r.Rows = append(r.Rows, map[string]any{"text": "x"}) }, maxRows: 1, errText: "exceeds maximum"},
		{name: "no input column", mutate: func(r *EncodeRequest) { r.InputCol = " " }, wantErr: ErrEmptyInputCol},
		{name: "no output column", mutate: func(r *EncodeRequest) { r.OutputCol = "" }, wantErr: ErrEmptyOutputCol},
		{name: "long column name", mutate: func(r *EncodeRequest) { r.OutputCol = strings.Repeat("a", MaxColumnNameLength+1) }, errText: "maximum length"},
		{name: "same columns", mutate: func(r *EncodeRequest) { r.OutputCol = "text" }, wantErr: ErrSameColumns},
		{name: "no model", mutate: func(r *EncodeRequest) { r.ModelID = "" }, wantErr: ErrEmptyModelID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			err := req.Validate(tt.maxRows)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errText != "":
				assert.ErrorContains(t, err, tt.errText)
			default:
				assert.NoError(t, err)
			}
		})
	}
}
