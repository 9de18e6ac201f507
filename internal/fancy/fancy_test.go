package fancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStyledTextKeepsContent(t *testing.T) {
	funcs := map[string]func(string) string{
		"header":  HeaderText,
		"valid":   ValidText,
		"error":   ErrorText,
		"path":    PathText,
		"summary": SummaryText,
		"count":   CountText,
		"frame":   FrameText,
	}
	for name, fn := range funcs {
		t.Run(name, func(t *testing.T) {
			assert.Contains(t, fn("content"), "content")
		})
	}
}
