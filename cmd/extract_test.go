package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/lease-abstract/internal/model"
	"github.com/sells-group/lease-abstract/internal/pdftext"
)

func TestVerifyCitations_BadTextConfigLeavesResult(t *testing.T) {
	result := &model.MergedExtraction{ExtractionPass: *model.NewExtractionPass()}
	result.Citations["monthly_base_rent"] = model.Citation{Page: 2, Quote: "Monthly rent of $15,000"}

	err := verifyCitations(context.Background(), pdftext.Config{Provider: "mistral"}, []byte("%PDF-1.4"), result)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "mistral_api_key")

	c := result.Citations["monthly_base_rent"]
	assert.Nil(t, c.Verified)
	assert.Equal(t, 2, c.Page)
}
