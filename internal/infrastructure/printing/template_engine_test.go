package printing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateEngine_Render(t *testing.T) {
	engine := NewTemplateEngine()

	t.Run("renders template with data", func(t *testing.T) {
		out, err := engine.Render("test", `<p>{{.Name}}</p>`, map[string]string{"Name": "Main Campus"})
		require.NoError(t, err)
		assert.Equal(t, "<p>Main Campus</p>", out)
	})

	t.Run("rejects empty content", func(t *testing.T) {
		_, err := engine.Render("test", "", nil)
		require.Error(t, err)
		var rerr *RenderError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, ErrCodeInvalidHTML, rerr.Code)
	})

	t.Run("rejects invalid template syntax", func(t *testing.T) {
		_, err := engine.Render("test", `{{.Unclosed`, nil)
		require.Error(t, err)
		var rerr *RenderError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, ErrCodeInvalidHTML, rerr.Code)
	})

	t.Run("escapes HTML in values", func(t *testing.T) {
		out, err := engine.Render("test", `{{.V}}`, map[string]string{"V": "<script>"})
		require.NoError(t, err)
		assert.NotContains(t, out, "<script>")
	})
}

func TestTemplateEngine_Functions(t *testing.T) {
	engine := NewTemplateEngine()

	render := func(t *testing.T, content string, data interface{}) string {
		t.Helper()
		out, err := engine.Render("test", content, data)
		require.NoError(t, err)
		return out
	}

	t.Run("formatMoney", func(t *testing.T) {
		out := render(t, `{{formatMoney .}}`, decimal.NewFromFloat(1234.5))
		assert.Equal(t, "$1,234.50", out)
	})

	t.Run("formatMoney negative", func(t *testing.T) {
		out := render(t, `{{formatMoneyRaw .}}`, decimal.NewFromFloat(-9876543.21))
		assert.Equal(t, "-9,876,543.21", out)
	})

	t.Run("formatDate", func(t *testing.T) {
		out := render(t, `{{formatDate .}}`, time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC))
		assert.Equal(t, "2026-03-15", out)
	})

	t.Run("formatDate zero time", func(t *testing.T) {
		out := render(t, `{{formatDate .}}`, time.Time{})
		assert.Equal(t, "", out)
	})

	t.Run("formatDateTime nil pointer", func(t *testing.T) {
		out := render(t, `{{formatDateTime .}}`, (*time.Time)(nil))
		assert.Equal(t, "", out)
	})

	t.Run("formatPercent", func(t *testing.T) {
		out := render(t, `{{formatPercent .}}`, decimal.NewFromFloat(0.105))
		assert.Equal(t, "10.5%", out)
	})

	t.Run("default with empty string", func(t *testing.T) {
		out := render(t, `{{default "N/A" .}}`, "")
		assert.Equal(t, "N/A", out)
	})

	t.Run("shortUUID", func(t *testing.T) {
		id := uuid.MustParse("a1b2c3d4-0000-0000-0000-000000000000")
		out := render(t, `{{shortUUID .}}`, id)
		assert.Equal(t, "A1B2C3D4", out)
	})
}

func TestToDecimal(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  decimal.Decimal
	}{
		{"decimal", decimal.NewFromInt(5), decimal.NewFromInt(5)},
		{"int", 7, decimal.NewFromInt(7)},
		{"float64", 2.5, decimal.NewFromFloat(2.5)},
		{"string", "3.14", decimal.NewFromFloat(3.14)},
		{"invalid string", "abc", decimal.Zero},
		{"unsupported type", struct{}{}, decimal.Zero},
		{"nil decimal pointer", (*decimal.Decimal)(nil), decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(toDecimal(tt.input)))
		})
	}
}
